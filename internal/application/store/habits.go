package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/ports"
)

// HabitStore holds the habits of one habit board together with their
// per-day completion sets and the derived streak counters.
type HabitStore struct {
	base
	api ports.ItemAPI

	items       []entities.Item
	completions map[uuid.UUID]map[string]bool

	now func() time.Time
}

// HabitSnapshot is a deep copy of the store state for subscribers
type HabitSnapshot struct {
	Items       []entities.Item
	Completions map[uuid.UUID]map[string]bool
	Loading     bool
	Err         error
}

// NewHabitStore creates an empty habit store
func NewHabitStore(api ports.ItemAPI, log *logger.Logger) *HabitStore {
	return &HabitStore{
		base:        newBase("habits", log),
		api:         api,
		completions: map[uuid.UUID]map[string]bool{},
		now:         time.Now,
	}
}

// Snapshot returns a deep copy of the current state
func (s *HabitStore) Snapshot() HabitSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	comp := make(map[uuid.UUID]map[string]bool, len(s.completions))
	for id, days := range s.completions {
		cp := make(map[string]bool, len(days))
		for d, v := range days {
			cp[d] = v
		}
		comp[id] = cp
	}

	return HabitSnapshot{
		Items:       cloneItems(s.items),
		Completions: comp,
		Loading:     s.loading,
		Err:         s.err,
	}
}

// Fetch replaces the habit list wholesale with server state
func (s *HabitStore) Fetch(ctx context.Context, boardID uuid.UUID) error {
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

// FetchCompletions loads the recorded days for one habit and
// recomputes its streak from them.
func (s *HabitStore) FetchCompletions(ctx context.Context, id uuid.UUID) error {
	completions, err := s.api.ListHabitCompletions(ctx, id)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.notify()
		return err
	}

	days := make(map[string]bool, len(completions))
	for _, c := range completions {
		days[c.Day] = true
	}

	s.mu.Lock()
	s.completions[id] = days
	if idx := findItem(s.items, id); idx >= 0 {
		s.items[idx].Habit().SetStreak(entities.StreakFrom(days, s.now()))
	}
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// Create appends the server-confirmed habit
func (s *HabitStore) Create(ctx context.Context, req ports.CreateItemRequest) (*entities.Item, error) {
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
func (s *HabitStore) Update(ctx context.Context, id uuid.UUID, req ports.UpdateItemRequest) (*entities.Item, error) {
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

// Delete removes the habit and its completion set after confirmation
func (s *HabitStore) Delete(ctx context.Context, id uuid.UUID) error {
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
	delete(s.completions, id)
	s.err = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// MarkComplete optimistically records or clears the day in the habit's
// completion set and recomputes the derived streak; on failure both
// the set and the streak revert to the captured snapshot.
func (s *HabitStore) MarkComplete(ctx context.Context, id uuid.UUID, day string, done bool) error {
	return s.optimistic(id, "mark_complete",
		func() (func(), bool) {
			idx := findItem(s.items, id)
			if idx < 0 {
				return nil, false
			}

			prevItem := s.items[idx].Clone()
			prevDays := s.completions[id]
			days := make(map[string]bool, len(prevDays)+1)
			for d, v := range prevDays {
				days[d] = v
			}
			if done {
				days[day] = true
			} else {
				delete(days, day)
			}
			s.completions[id] = days
			s.items[idx].Habit().SetStreak(entities.StreakFrom(days, s.now()))

			return func() {
				if i := findItem(s.items, id); i >= 0 {
					s.items[i] = prevItem
				}
				if prevDays == nil {
					delete(s.completions, id)
				} else {
					s.completions[id] = prevDays
				}
			}, true
		},
		func() error {
			return s.api.CompleteHabit(ctx, id, day, done)
		})
}
