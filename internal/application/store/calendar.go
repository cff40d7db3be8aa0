package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/ports"
)

// EventStore holds the events of one calendar board
type EventStore struct {
	base
	api ports.ItemAPI

	items []entities.Item
}

// EventSnapshot is a deep copy of the store state for subscribers
type EventSnapshot struct {
	Items   []entities.Item
	Loading bool
	Err     error
}

// NewEventStore creates an empty event store
func NewEventStore(api ports.ItemAPI, log *logger.Logger) *EventStore {
	return &EventStore{
		base: newBase("calendar", log),
		api:  api,
	}
}

// Snapshot returns a deep copy of the current state
func (s *EventStore) Snapshot() EventSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return EventSnapshot{
		Items:   cloneItems(s.items),
		Loading: s.loading,
		Err:     s.err,
	}
}

// InRange returns events overlapping [from, to), using the event's
// start (or due date as fallback) for placement
func (s *EventStore) InRange(from, to time.Time) []entities.Item {
	snap := s.Snapshot()
	out := make([]entities.Item, 0, len(snap.Items))
	for i := range snap.Items {
		at := snap.Items[i].Event().Start()
		if at == nil {
			at = snap.Items[i].DueDate
		}
		if at == nil {
			continue
		}
		if !at.Before(from) && at.Before(to) {
			out = append(out, snap.Items[i])
		}
	}
	return out
}

// Fetch replaces the event list wholesale with server state
func (s *EventStore) Fetch(ctx context.Context, boardID uuid.UUID) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	items, err := s.api.ListItems(ctx, boardID)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.items = items
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// Create appends the server-confirmed event
func (s *EventStore) Create(ctx context.Context, req ports.CreateItemRequest) (*entities.Item, error) {
	item, err := s.api.CreateItem(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	s.mu.Lock()
	s.items = append(s.items, *item)
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return item, nil
}

// Update waits for confirmation, then replaces the matching element
func (s *EventStore) Update(ctx context.Context, id uuid.UUID, req ports.UpdateItemRequest) (*entities.Item, error) {
	item, err := s.api.UpdateItem(ctx, id, req)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	s.mu.Lock()
	if idx := findItem(s.items, id); idx >= 0 {
		s.items[idx] = *item
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return item, nil
}

// Delete removes the event only after the server confirmed
func (s *EventStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.api.DeleteItem(ctx, id); err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}

	s.mu.Lock()
	if idx := findItem(s.items, id); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// Reschedule optimistically moves the event to the new start/end and
// persists the updated metadata; on failure the snapshot is restored.
func (s *EventStore) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	var meta entities.Metadata

	return s.optimistic(id, "reschedule",
		func() (func(), bool) {
			idx := findItem(s.items, id)
			if idx < 0 {
				return nil, false
			}
			prev := s.items[idx].Clone()
			ev := s.items[idx].Event()
			ev.SetStart(start)
			ev.SetEnd(end)
			meta = s.items[idx].Metadata.Clone()
			return func() {
				if i := findItem(s.items, id); i >= 0 {
					s.items[i] = prev
				}
			}, true
		},
		func() error {
			item, err := s.api.UpdateItem(ctx, id, ports.UpdateItemRequest{Metadata: meta})
			if err != nil {
				return err
			}
			s.mu.Lock()
			if idx := findItem(s.items, id); idx >= 0 {
				s.items[idx] = *item
			}
			s.mu.Unlock()
			s.notify()
			return nil
		})
}

// SetReminder optimistically writes the reminder metadata
func (s *EventStore) SetReminder(ctx context.Context, id uuid.UUID, at *time.Time) error {
	return s.optimistic(id, "set_reminder",
		func() (func(), bool) {
			idx := findItem(s.items, id)
			if idx < 0 {
				return nil, false
			}
			prev := s.items[idx].Clone()
			if at != nil {
				s.items[idx].Event().SetReminder(*at)
			} else if s.items[idx].Metadata != nil {
				delete(s.items[idx].Metadata, "reminder")
			}
			return func() {
				if i := findItem(s.items, id); i >= 0 {
					s.items[i] = prev
				}
			}, true
		},
		func() error {
			_, err := s.api.SetReminder(ctx, id, at)
			return err
		})
}
