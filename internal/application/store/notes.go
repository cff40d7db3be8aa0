package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/ports"
)

// NoteStore holds the items of one notes board
type NoteStore struct {
	base
	api ports.ItemAPI

	items []entities.Item
}

// NoteSnapshot is a deep copy of the store state for subscribers
type NoteSnapshot struct {
	Items   []entities.Item
	Loading bool
	Err     error
}

// NewNoteStore creates an empty note store
func NewNoteStore(api ports.ItemAPI, log *logger.Logger) *NoteStore {
	return &NoteStore{
		base: newBase("notes", log),
		api:  api,
	}
}

// Snapshot returns a deep copy of the current state
func (s *NoteStore) Snapshot() NoteSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NoteSnapshot{
		Items:   cloneItems(s.items),
		Loading: s.loading,
		Err:     s.err,
	}
}

// PinnedFirst returns the notes with pinned ones ahead, each group
// keeping its stored order
func (s *NoteStore) PinnedFirst() []entities.Item {
	snap := s.Snapshot()
	out := make([]entities.Item, 0, len(snap.Items))
	for i := range snap.Items {
		if snap.Items[i].Note().Pinned() {
			out = append(out, snap.Items[i])
		}
	}
	for i := range snap.Items {
		if !snap.Items[i].Note().Pinned() {
			out = append(out, snap.Items[i])
		}
	}
	return out
}

// Fetch replaces the note list wholesale with server state
func (s *NoteStore) Fetch(ctx context.Context, boardID uuid.UUID) error {
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

// Create prepends the server-confirmed note; newest notes show first
func (s *NoteStore) Create(ctx context.Context, req ports.CreateItemRequest) (*entities.Item, error) {
	item, err := s.api.CreateItem(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return nil, err
	}

	s.mu.Lock()
	s.items = append([]entities.Item{*item}, s.items...)
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return item, nil
}

// Update waits for confirmation, then replaces the matching element
func (s *NoteStore) Update(ctx context.Context, id uuid.UUID, req ports.UpdateItemRequest) (*entities.Item, error) {
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

// Delete removes the note only after the server confirmed
func (s *NoteStore) Delete(ctx context.Context, id uuid.UUID) error {
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

// TogglePin optimistically flips the pinned flag and persists the new
// metadata; on failure the exact snapshot is restored.
func (s *NoteStore) TogglePin(ctx context.Context, id uuid.UUID) error {
	var meta entities.Metadata

	return s.optimistic(id, "toggle_pin",
		func() (func(), bool) {
			idx := findItem(s.items, id)
			if idx < 0 {
				return nil, false
			}
			prev := s.items[idx].Clone()
			note := s.items[idx].Note()
			note.SetPinned(!note.Pinned())
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
