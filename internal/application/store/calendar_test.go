package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
)

func newTestEventStore(t *testing.T, items ...entities.Item) (*EventStore, *fakeItemAPI, uuid.UUID) {
	t.Helper()
	boardID := uuid.New()
	for i := range items {
		items[i].BoardID = boardID
	}
	api := newFakeItemAPI(items...)
	s := NewEventStore(api, logger.NewNop())
	if err := s.Fetch(context.Background(), boardID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return s, api, boardID
}

func TestEventStoreRescheduleMovesAndPersists(t *testing.T) {
	ev := testItem(uuid.Nil, "standup", 0)
	ev.Event().SetStart(time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))
	ev.Event().SetEnd(time.Date(2026, 8, 24, 9, 30, 0, 0, time.UTC))
	s, api, _ := newTestEventStore(t, ev)

	newStart := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	newEnd := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	if err := s.Reschedule(context.Background(), ev.ID, newStart, newEnd); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	got := s.Snapshot().Items[0].Event()
	if got.Start() == nil || !got.Start().Equal(newStart) {
		t.Fatalf("expected start %s, got %v", newStart, got.Start())
	}
	if got.End() == nil || !got.End().Equal(newEnd) {
		t.Fatalf("expected end %s, got %v", newEnd, got.End())
	}
	if n := api.callCount("update"); n != 1 {
		t.Fatalf("expected one persistence call, got %d", n)
	}
}

func TestEventStoreRescheduleRollsBackExactly(t *testing.T) {
	ev := testItem(uuid.Nil, "standup", 0)
	ev.Event().SetStart(time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC))
	s, api, _ := newTestEventStore(t, ev)

	before := s.Snapshot().Items[0]

	api.setFail(true)
	err := s.Reschedule(context.Background(), ev.ID,
		time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC))
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}

	after := s.Snapshot().Items[0]
	if !itemsEqual(before, after) {
		t.Fatalf("rollback must restore the exact event:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestEventStoreInRange(t *testing.T) {
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	inWeek := testItem(uuid.Nil, "in", 0)
	inWeek.Event().SetStart(monday.Add(26 * time.Hour))
	nextWeek := testItem(uuid.Nil, "out", 1)
	nextWeek.Event().SetStart(monday.AddDate(0, 0, 8))
	due := testItem(uuid.Nil, "due", 2)
	d := monday.Add(50 * time.Hour)
	due.DueDate = &d
	undated := testItem(uuid.Nil, "none", 3)

	s, _, _ := newTestEventStore(t, inWeek, nextWeek, due, undated)

	got := s.InRange(monday, monday.AddDate(0, 0, 7))
	if len(got) != 2 {
		t.Fatalf("expected 2 events in range, got %d", len(got))
	}
	for _, it := range got {
		if it.Title != "in" && it.Title != "due" {
			t.Fatalf("unexpected event %q in range", it.Title)
		}
	}
}

func TestEventStoreSetReminderClears(t *testing.T) {
	ev := testItem(uuid.Nil, "standup", 0)
	ev.Event().SetReminder(time.Date(2026, 8, 24, 8, 45, 0, 0, time.UTC))
	s, _, _ := newTestEventStore(t, ev)

	if err := s.SetReminder(context.Background(), ev.ID, nil); err != nil {
		t.Fatalf("clear reminder: %v", err)
	}
	if s.Snapshot().Items[0].Event().Reminder() != nil {
		t.Fatal("expected reminder cleared")
	}
}
