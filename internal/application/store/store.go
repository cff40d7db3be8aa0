// Package store holds the observable entity stores backing the client.
// Reads flow server -> store -> subscriber; optimistic writes apply
// locally first and roll back to the captured snapshot when the server
// rejects them.
package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
)

// base carries the state every store shares: loading/error flags,
// change subscribers, and the per-key locks that serialize optimistic
// actions touching the same element.
type base struct {
	mu      sync.Mutex
	name    string
	loading bool
	err     error
	logger  *logger.Logger

	watchMu  sync.Mutex
	watchers map[int]func()
	nextID   int

	locks keyedLocks
}

func newBase(name string, log *logger.Logger) base {
	return base{
		name:     name,
		logger:   log.WithComponent("store." + name),
		watchers: map[int]func(){},
	}
}

// Watch registers a change callback and returns its unsubscribe func.
// Callbacks run synchronously after every state change, outside the
// store lock; they must read through Snapshot, not retained pointers.
func (b *base) Watch(fn func()) func() {
	b.watchMu.Lock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = fn
	b.watchMu.Unlock()

	return func() {
		b.watchMu.Lock()
		delete(b.watchers, id)
		b.watchMu.Unlock()
	}
}

func (b *base) notify() {
	b.watchMu.Lock()
	fns := make([]func(), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.watchMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Err returns the last recorded action error
func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Loading reports whether a fetch is in flight
func (b *base) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// ClearErr resets the recorded error
func (b *base) ClearErr() {
	b.mu.Lock()
	b.err = nil
	b.mu.Unlock()
	b.notify()
}

// optimistic runs the shared snapshot/mutate/confirm/rollback sequence.
// apply runs under the store lock: it captures the snapshot, mutates
// local state to the desired post-condition, and returns the rollback
// closure; returning ok=false means the target element is gone and the
// whole action is a no-op. Actions for the same key are serialized, so
// a second toggle waits for the first confirmation instead of racing it.
func (b *base) optimistic(key uuid.UUID, action string, apply func() (rollback func(), ok bool), call func() error) error {
	release := b.locks.lock(key)
	defer release()

	b.mu.Lock()
	rollback, ok := apply()
	if !ok {
		b.mu.Unlock()
		return nil
	}
	b.err = nil
	b.mu.Unlock()
	b.notify()

	if err := call(); err != nil {
		b.mu.Lock()
		rollback()
		b.err = err
		b.mu.Unlock()
		b.notify()
		b.logger.LogStoreAction(b.name, action, true, err)
		return err
	}

	b.logger.LogStoreAction(b.name, action, false, nil)
	return nil
}

// keyedLocks hands out one mutex per key; keys are never evicted,
// which is fine for session-scoped stores.
type keyedLocks struct {
	mu sync.Mutex
	m  map[uuid.UUID]*sync.Mutex
}

func (k *keyedLocks) lock(key uuid.UUID) (release func()) {
	k.mu.Lock()
	if k.m == nil {
		k.m = map[uuid.UUID]*sync.Mutex{}
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func findItem(items []entities.Item, id uuid.UUID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItems(items []entities.Item) []entities.Item {
	out := make([]entities.Item, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// reorderByIDs rebuilds the slice in the explicit target order; ids
// not present locally are skipped, local elements not listed keep
// their relative order at the tail. Positions follow the new indexes.
func reorderByIDs(items []entities.Item, ids []uuid.UUID) []entities.Item {
	out := make([]entities.Item, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(ids))

	for _, id := range ids {
		if idx := findItem(items, id); idx >= 0 {
			out = append(out, items[idx])
			seen[id] = true
		}
	}
	for i := range items {
		if !seen[items[i].ID] {
			out = append(out, items[i])
		}
	}
	for i := range out {
		out[i].Position = i
	}
	return out
}
