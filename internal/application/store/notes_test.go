package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/ports"
)

func newTestNoteStore(t *testing.T, items ...entities.Item) (*NoteStore, *fakeItemAPI, uuid.UUID) {
	t.Helper()
	boardID := uuid.New()
	for i := range items {
		items[i].BoardID = boardID
	}
	api := newFakeItemAPI(items...)
	s := NewNoteStore(api, logger.NewNop())
	if err := s.Fetch(context.Background(), boardID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return s, api, boardID
}

func TestNoteStoreTogglePinPersistsAndFlips(t *testing.T) {
	note := testItem(uuid.Nil, "n", 0)
	s, api, _ := newTestNoteStore(t, note)

	if err := s.TogglePin(context.Background(), note.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !s.Snapshot().Items[0].Note().Pinned() {
		t.Fatal("expected note pinned after toggle")
	}
	if n := api.callCount("update"); n != 1 {
		t.Fatalf("expected one persistence call, got %d", n)
	}

	if err := s.TogglePin(context.Background(), note.ID); err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if s.Snapshot().Items[0].Note().Pinned() {
		t.Fatal("expected note unpinned after second toggle")
	}
}

func TestNoteStoreTogglePinRollsBackExactly(t *testing.T) {
	note := testItem(uuid.Nil, "n", 0)
	note.Metadata = entities.Metadata{"color": "amber"}
	s, api, _ := newTestNoteStore(t, note)

	before := s.Snapshot().Items[0]

	api.setFail(true)
	err := s.TogglePin(context.Background(), note.ID)
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}

	after := s.Snapshot().Items[0]
	if !itemsEqual(before, after) {
		t.Fatalf("rollback must restore the exact note:\nbefore %+v\nafter  %+v", before, after)
	}
	if s.Err() == nil {
		t.Fatal("expected Err to be set after rollback")
	}
}

func TestNoteStoreTogglePinMissingIDIsNoOp(t *testing.T) {
	s, api, _ := newTestNoteStore(t, testItem(uuid.Nil, "n", 0))

	if err := s.TogglePin(context.Background(), uuid.New()); err != nil {
		t.Fatalf("missing id must not error, got %v", err)
	}
	if n := api.callCount("update"); n != 0 {
		t.Fatalf("missing id must not reach the server, got %d calls", n)
	}
}

func TestNoteStoreCreatePrepends(t *testing.T) {
	old := testItem(uuid.Nil, "old", 0)
	s, _, boardID := newTestNoteStore(t, old)

	created, err := s.Create(context.Background(), ports.CreateItemRequest{BoardID: boardID, Title: "new"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	snap := s.Snapshot()
	if snap.Items[0].ID != created.ID {
		t.Fatal("new note must show first")
	}
	if snap.Items[1].ID != old.ID {
		t.Fatal("existing notes must follow")
	}
}

func TestNoteStorePinnedFirst(t *testing.T) {
	a := testItem(uuid.Nil, "a", 0)
	b := testItem(uuid.Nil, "b", 1)
	b.Metadata = entities.Metadata{"pinned": true}
	c := testItem(uuid.Nil, "c", 2)
	s, _, _ := newTestNoteStore(t, a, b, c)

	out := s.PinnedFirst()
	if len(out) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(out))
	}
	if out[0].ID != b.ID {
		t.Fatalf("pinned note must lead, got %s", out[0].Title)
	}
	if out[1].ID != a.ID || out[2].ID != c.ID {
		t.Fatal("unpinned notes must keep their stored order")
	}
}
