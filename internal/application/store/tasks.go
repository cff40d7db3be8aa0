package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/ports"
)

// ActiveTimer is the in-memory pointer for the running timer. Starting
// a timer is purely local; only stopping persists anything.
type ActiveTimer struct {
	ItemID    uuid.UUID
	StartedAt time.Time
}

// TaskStore holds the items of one task-style board (kanban, checklist
// or timer) and the optimistic actions operating on them.
type TaskStore struct {
	base
	api ports.ItemAPI

	items   []entities.Item
	current *entities.Item
	timer   *ActiveTimer

	now func() time.Time
}

// TaskSnapshot is a deep copy of the store state for subscribers
type TaskSnapshot struct {
	Items   []entities.Item
	Current *entities.Item
	Timer   *ActiveTimer
	Loading bool
	Err     error
}

// NewTaskStore creates an empty task store
func NewTaskStore(api ports.ItemAPI, log *logger.Logger) *TaskStore {
	return &TaskStore{
		base: newBase("tasks", log),
		api:  api,
		now:  time.Now,
	}
}

// Snapshot returns a deep copy of the current state
func (s *TaskStore) Snapshot() TaskSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := TaskSnapshot{
		Items:   cloneItems(s.items),
		Loading: s.loading,
		Err:     s.err,
	}
	if s.current != nil {
		cur := s.current.Clone()
		snap.Current = &cur
	}
	if s.timer != nil {
		t := *s.timer
		snap.Timer = &t
	}
	return snap
}

// Fetch replaces the item list wholesale with the board's server
// state. On failure stale items stay visible and Err is set.
func (s *TaskStore) Fetch(ctx context.Context, boardID uuid.UUID) error {
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

// Create inserts the server-confirmed item at the tail. Nothing is
// applied before confirmation, so a failure changes no local state.
func (s *TaskStore) Create(ctx context.Context, req ports.CreateItemRequest) (*entities.Item, error) {
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

// Update waits for confirmation and then replaces the matching
// element (and current, if it is the same id) with the server state.
func (s *TaskStore) Update(ctx context.Context, id uuid.UUID, req ports.UpdateItemRequest) (*entities.Item, error) {
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
	if s.current != nil && s.current.ID == id {
		cur := item.Clone()
		s.current = &cur
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return item, nil
}

// Delete removes the element only after the server confirmed
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
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
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// SetCurrent selects the detail element; unknown ids clear it
func (s *TaskStore) SetCurrent(id uuid.UUID) {
	s.mu.Lock()
	if idx := findItem(s.items, id); idx >= 0 {
		cur := s.items[idx].Clone()
		s.current = &cur
	} else {
		s.current = nil
	}
	s.mu.Unlock()
	s.notify()
}

// Complete optimistically toggles the item between completed and
// pending, keeping the completed_at invariant both ways. A missing
// element is a no-op; a server failure restores the exact snapshot.
func (s *TaskStore) Complete(ctx context.Context, id uuid.UUID, completed bool) error {
	return s.optimistic(id, "complete",
		func() (func(), bool) {
			idx := findItem(s.items, id)
			if idx < 0 {
				return nil, false
			}
			prev := s.items[idx].Clone()
			s.items[idx].Complete(completed, s.now())
			return func() { s.restoreItem(prev) }, true
		},
		func() error {
			item, err := s.api.CompleteItem(ctx, id, completed)
			if err != nil {
				return err
			}
			s.reconcile(*item)
			return nil
		})
}

// Move optimistically removes the item from this board's collection;
// on failure the element reappears at its old index.
func (s *TaskStore) Move(ctx context.Context, id uuid.UUID, boardID uuid.UUID) error {
	return s.optimistic(id, "move",
		func() (func(), bool) {
			idx := findItem(s.items, id)
			if idx < 0 {
				return nil, false
			}
			prev := s.items[idx].Clone()
			prevIdx := idx
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return func() {
				if prevIdx > len(s.items) {
					prevIdx = len(s.items)
				}
				s.items = append(s.items[:prevIdx], append([]entities.Item{prev}, s.items[prevIdx:]...)...)
			}, true
		},
		func() error {
			_, err := s.api.MoveItem(ctx, id, boardID)
			return err
		})
}

// SetReminder optimistically writes the reminder metadata
func (s *TaskStore) SetReminder(ctx context.Context, id uuid.UUID, at *time.Time) error {
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
			return func() { s.restoreItem(prev) }, true
		},
		func() error {
			item, err := s.api.SetReminder(ctx, id, at)
			if err != nil {
				return err
			}
			s.reconcile(*item)
			return nil
		})
}

// Reorder applies the explicit target ordering immediately and
// restores the exact previous array when the server rejects it.
func (s *TaskStore) Reorder(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) error {
	return s.optimistic(boardID, "reorder",
		func() (func(), bool) {
			prev := cloneItems(s.items)
			s.items = reorderByIDs(s.items, ids)
			return func() { s.items = prev }, true
		},
		func() error {
			return s.api.ReorderItems(ctx, boardID, ids)
		})
}

// StartTimer records the active timer pointer; no network call
func (s *TaskStore) StartTimer(id uuid.UUID) {
	s.mu.Lock()
	s.timer = &ActiveTimer{ItemID: id, StartedAt: s.now()}
	s.mu.Unlock()
	s.notify()
}

// ActiveTimer returns a copy of the running timer, if any
func (s *TaskStore) ActiveTimer() *ActiveTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return nil
	}
	t := *s.timer
	return &t
}

// StopTimer accumulates elapsed wall-clock time into the item's
// time_spent metadata, clears the pointer, and persists the new
// cumulative value. A persistence failure keeps the local
// accumulation; the tracked time is never rolled back.
func (s *TaskStore) StopTimer(ctx context.Context) (time.Duration, error) {
	s.mu.Lock()
	if s.timer == nil {
		s.mu.Unlock()
		return 0, nil
	}
	timer := *s.timer
	s.timer = nil
	elapsed := s.now().Sub(timer.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	idx := findItem(s.items, timer.ItemID)
	if idx < 0 {
		s.mu.Unlock()
		s.notify()
		return elapsed, nil
	}
	s.items[idx].Task().AddTimeSpent(elapsed)
	meta := s.items[idx].Metadata.Clone()
	s.mu.Unlock()
	s.notify()

	if _, err := s.api.UpdateItem(ctx, timer.ItemID, ports.UpdateItemRequest{Metadata: meta}); err != nil {
		s.logger.Warnw("Timer persistence failed, keeping local accumulation",
			"item_id", timer.ItemID, "elapsed", elapsed.String(), "error", err.Error())
		return elapsed, err
	}
	return elapsed, nil
}

// restoreItem puts the snapshot back in place of the live element.
// Called under the store lock from rollback closures.
func (s *TaskStore) restoreItem(prev entities.Item) {
	if idx := findItem(s.items, prev.ID); idx >= 0 {
		s.items[idx] = prev
	}
	if s.current != nil && s.current.ID == prev.ID {
		cur := prev.Clone()
		s.current = &cur
	}
}

// reconcile replaces the local element with the server response when
// it is still present. Takes the store lock itself.
func (s *TaskStore) reconcile(item entities.Item) {
	s.mu.Lock()
	if idx := findItem(s.items, item.ID); idx >= 0 {
		s.items[idx] = item
	}
	if s.current != nil && s.current.ID == item.ID {
		cur := item.Clone()
		s.current = &cur
	}
	s.mu.Unlock()
	s.notify()
}
