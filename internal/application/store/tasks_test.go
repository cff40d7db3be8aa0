package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/ports"
)

func newTestTaskStore(t *testing.T, items ...entities.Item) (*TaskStore, *fakeItemAPI, uuid.UUID) {
	t.Helper()
	boardID := uuid.New()
	for i := range items {
		items[i].BoardID = boardID
	}
	api := newFakeItemAPI(items...)
	s := NewTaskStore(api, logger.NewNop())
	if err := s.Fetch(context.Background(), boardID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return s, api, boardID
}

func TestTaskStoreFetchReplacesWholesale(t *testing.T) {
	boardID := uuid.New()
	a := testItem(boardID, "a", 0)
	b := testItem(boardID, "b", 1)
	api := newFakeItemAPI(a, b)
	s := NewTaskStore(api, logger.NewNop())

	if err := s.Fetch(context.Background(), boardID); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := len(s.Snapshot().Items); got != 2 {
		t.Fatalf("expected 2 items after fetch, got %d", got)
	}

	// A second fetch drops items the server no longer returns.
	if err := api.DeleteItem(context.Background(), a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Fetch(context.Background(), boardID); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != b.ID {
		t.Fatalf("expected only %s after refetch, got %+v", b.ID, snap.Items)
	}
}

func TestTaskStoreFetchEmptyBoard(t *testing.T) {
	api := newFakeItemAPI()
	s := NewTaskStore(api, logger.NewNop())

	if err := s.Fetch(context.Background(), uuid.New()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Items) != 0 {
		t.Fatalf("expected empty collection, got %d items", len(snap.Items))
	}
	if snap.Err != nil {
		t.Fatalf("empty board must not set an error, got %v", snap.Err)
	}
}

func TestTaskStoreFetchFailureKeepsStaleItems(t *testing.T) {
	s, api, boardID := newTestTaskStore(t, testItem(uuid.Nil, "a", 0))

	api.setFail(true)
	if err := s.Fetch(context.Background(), boardID); err == nil {
		t.Fatal("expected fetch error")
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 {
		t.Fatalf("stale items must stay visible, got %d", len(snap.Items))
	}
	if snap.Err == nil {
		t.Fatal("expected Err to be set after failed fetch")
	}
	if snap.Loading {
		t.Fatal("loading must clear after a failed fetch")
	}
}

func TestTaskStoreCompleteRollsBackExactly(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	item.Metadata = entities.Metadata{"priority": "high", "tags": []string{"x", "y"}}
	s, api, _ := newTestTaskStore(t, item)

	before := s.Snapshot().Items[0]

	api.setFail(true)
	err := s.Complete(context.Background(), item.ID, true)
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}

	after := s.Snapshot()
	if !itemsEqual(before, after.Items[0]) {
		t.Fatalf("rollback must restore the exact snapshot:\nbefore %+v\nafter  %+v", before, after.Items[0])
	}
	if after.Err == nil {
		t.Fatal("expected Err to be set after rollback")
	}
}

func TestTaskStoreCompleteMaintainsCompletedAt(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	s, _, _ := newTestTaskStore(t, item)

	if err := s.Complete(context.Background(), item.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got := s.Snapshot().Items[0]
	if got.Status != entities.ItemStatusCompleted {
		t.Fatalf("expected completed status, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed item must carry completed_at")
	}

	if err := s.Complete(context.Background(), item.ID, false); err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	got = s.Snapshot().Items[0]
	if got.Status != entities.ItemStatusPending {
		t.Fatalf("expected pending status, got %s", got.Status)
	}
	if got.CompletedAt != nil {
		t.Fatal("pending item must not carry completed_at")
	}
}

func TestTaskStoreCompleteIsIdempotent(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	s, _, _ := newTestTaskStore(t, item)

	if err := s.Complete(context.Background(), item.ID, true); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	first := s.Snapshot().Items[0]

	if err := s.Complete(context.Background(), item.ID, true); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	second := s.Snapshot().Items[0]

	if first.Status != second.Status {
		t.Fatalf("repeated completion changed status: %s -> %s", first.Status, second.Status)
	}
	if (first.CompletedAt == nil) != (second.CompletedAt == nil) {
		t.Fatal("repeated completion changed completed_at presence")
	}
}

func TestTaskStoreCompleteMissingIDIsNoOp(t *testing.T) {
	s, api, _ := newTestTaskStore(t, testItem(uuid.Nil, "a", 0))

	before := s.Snapshot()
	if err := s.Complete(context.Background(), uuid.New(), true); err != nil {
		t.Fatalf("missing id must not error, got %v", err)
	}
	after := s.Snapshot()

	if len(after.Items) != len(before.Items) || !itemsEqual(before.Items[0], after.Items[0]) {
		t.Fatal("missing id must not change state")
	}
	if after.Err != nil {
		t.Fatalf("missing id must not set Err, got %v", after.Err)
	}
	if n := api.callCount("complete"); n != 0 {
		t.Fatalf("missing id must not reach the server, got %d calls", n)
	}
}

func TestTaskStoreConcurrentTogglesSerialize(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	s, api, _ := newTestTaskStore(t, item)

	done := make(chan error, 2)
	go func() { done <- s.Complete(context.Background(), item.ID, true) }()
	go func() { done <- s.Complete(context.Background(), item.ID, false) }()
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	// Both toggles reached the server, one after the other, and the
	// local element matches one of the two well-formed outcomes.
	if n := api.callCount("complete"); n != 2 {
		t.Fatalf("expected 2 serialized server calls, got %d", n)
	}
	got := s.Snapshot().Items[0]
	switch got.Status {
	case entities.ItemStatusCompleted:
		if got.CompletedAt == nil {
			t.Fatal("completed outcome must carry completed_at")
		}
	case entities.ItemStatusPending:
		if got.CompletedAt != nil {
			t.Fatal("pending outcome must not carry completed_at")
		}
	default:
		t.Fatalf("unexpected status %s", got.Status)
	}
}

func TestTaskStoreMoveRollbackRestoresIndex(t *testing.T) {
	a := testItem(uuid.Nil, "a", 0)
	b := testItem(uuid.Nil, "b", 1)
	c := testItem(uuid.Nil, "c", 2)
	s, api, _ := newTestTaskStore(t, a, b, c)

	api.setFail(true)
	if err := s.Move(context.Background(), b.ID, uuid.New()); err == nil {
		t.Fatal("expected move error")
	}

	snap := s.Snapshot()
	if len(snap.Items) != 3 {
		t.Fatalf("expected 3 items after rollback, got %d", len(snap.Items))
	}
	if snap.Items[1].ID != b.ID {
		t.Fatalf("rollback must reinsert at the old index, got order %v %v %v",
			snap.Items[0].Title, snap.Items[1].Title, snap.Items[2].Title)
	}
}

func TestTaskStoreMoveRemovesOnSuccess(t *testing.T) {
	a := testItem(uuid.Nil, "a", 0)
	b := testItem(uuid.Nil, "b", 1)
	s, _, _ := newTestTaskStore(t, a, b)

	if err := s.Move(context.Background(), a.ID, uuid.New()); err != nil {
		t.Fatalf("move: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != b.ID {
		t.Fatalf("moved item must leave the collection, got %+v", snap.Items)
	}
}

func TestTaskStoreReorderAppliesAndReverts(t *testing.T) {
	a := testItem(uuid.Nil, "a", 0)
	b := testItem(uuid.Nil, "b", 1)
	c := testItem(uuid.Nil, "c", 2)
	s, api, boardID := newTestTaskStore(t, a, b, c)

	target := []uuid.UUID{c.ID, a.ID, b.ID}
	if err := s.Reorder(context.Background(), boardID, target); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	snap := s.Snapshot()
	for i, id := range target {
		if snap.Items[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, snap.Items[i].ID)
		}
		if snap.Items[i].Position != i {
			t.Fatalf("position field not rewritten at index %d: %d", i, snap.Items[i].Position)
		}
	}

	// A rejected reorder restores the previous array exactly.
	before := s.Snapshot().Items
	api.setFail(true)
	if err := s.Reorder(context.Background(), boardID, []uuid.UUID{b.ID, c.ID, a.ID}); err == nil {
		t.Fatal("expected reorder error")
	}
	after := s.Snapshot().Items
	for i := range before {
		if !itemsEqual(before[i], after[i]) {
			t.Fatalf("rollback must restore the previous order at index %d", i)
		}
	}
}

func TestTaskStoreStopTimerAccumulates(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	s, _, _ := newTestTaskStore(t, item)

	base := time.Now()
	now := base
	s.now = func() time.Time { return now }

	s.StartTimer(item.ID)
	if at := s.ActiveTimer(); at == nil || at.ItemID != item.ID {
		t.Fatal("expected active timer for the item")
	}

	now = base.Add(90 * time.Second)
	elapsed, err := s.StopTimer(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if elapsed != 90*time.Second {
		t.Fatalf("expected 90s elapsed, got %s", elapsed)
	}
	if s.ActiveTimer() != nil {
		t.Fatal("timer pointer must clear after stop")
	}
	if got := s.Snapshot().Items[0].Task().TimeSpent(); got != 90*time.Second {
		t.Fatalf("expected 90s accumulated, got %s", got)
	}

	// A second run adds on top; tracked time never decreases.
	s.StartTimer(item.ID)
	now = now.Add(30 * time.Second)
	if _, err := s.StopTimer(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if got := s.Snapshot().Items[0].Task().TimeSpent(); got != 120*time.Second {
		t.Fatalf("expected 120s accumulated, got %s", got)
	}
}

func TestTaskStoreStopTimerKeepsAccumulationOnFailure(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	s, api, _ := newTestTaskStore(t, item)

	base := time.Now()
	now := base
	s.now = func() time.Time { return now }

	s.StartTimer(item.ID)
	now = base.Add(45 * time.Second)

	api.setFail(true)
	elapsed, err := s.StopTimer(context.Background())
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if elapsed != 45*time.Second {
		t.Fatalf("expected 45s elapsed, got %s", elapsed)
	}

	// The persistence failure is surfaced, but the tracked time stays.
	if got := s.Snapshot().Items[0].Task().TimeSpent(); got != 45*time.Second {
		t.Fatalf("local accumulation must survive a persistence failure, got %s", got)
	}
}

func TestTaskStoreStopTimerWithoutStart(t *testing.T) {
	s, _, _ := newTestTaskStore(t, testItem(uuid.Nil, "a", 0))

	elapsed, err := s.StopTimer(context.Background())
	if err != nil {
		t.Fatalf("stop without start must not error, got %v", err)
	}
	if elapsed != 0 {
		t.Fatalf("expected zero elapsed, got %s", elapsed)
	}
}

func TestTaskStoreSetReminderRollsBack(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	s, api, _ := newTestTaskStore(t, item)

	before := s.Snapshot().Items[0]
	at := time.Now().Add(time.Hour)

	api.setFail(true)
	if err := s.SetReminder(context.Background(), item.ID, &at); err == nil {
		t.Fatal("expected reminder error")
	}
	after := s.Snapshot().Items[0]
	if !itemsEqual(before, after) {
		t.Fatal("rollback must restore the element without the reminder")
	}
}

func TestTaskStoreCreateFailureChangesNothing(t *testing.T) {
	s, api, boardID := newTestTaskStore(t, testItem(uuid.Nil, "a", 0))

	api.setFail(true)
	_, err := s.Create(context.Background(), ports.CreateItemRequest{BoardID: boardID, Title: "b"})
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 {
		t.Fatalf("failed create must not insert, got %d items", len(snap.Items))
	}
	if snap.Err == nil {
		t.Fatal("expected Err to be set")
	}
}

func TestTaskStoreDeleteWaitsForConfirmation(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	s, api, _ := newTestTaskStore(t, item)

	api.setFail(true)
	if err := s.Delete(context.Background(), item.ID); err == nil {
		t.Fatal("expected delete error")
	}
	if len(s.Snapshot().Items) != 1 {
		t.Fatal("failed delete must keep the element")
	}

	api.setFail(false)
	if err := s.Delete(context.Background(), item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.Snapshot().Items) != 0 {
		t.Fatal("confirmed delete must remove the element")
	}
}

func TestTaskStoreWatchNotifiesAndUnsubscribes(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	s, _, _ := newTestTaskStore(t, item)

	var fires int
	unsubscribe := s.Watch(func() { fires++ })

	if err := s.Complete(context.Background(), item.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if fires == 0 {
		t.Fatal("expected at least one notification")
	}

	seen := fires
	unsubscribe()
	if err := s.Complete(context.Background(), item.ID, false); err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if fires != seen {
		t.Fatal("unsubscribed watcher must not fire")
	}
}

func TestTaskStoreClearErr(t *testing.T) {
	item := testItem(uuid.Nil, "a", 0)
	s, api, _ := newTestTaskStore(t, item)

	api.setFail(true)
	_ = s.Complete(context.Background(), item.ID, true)
	if s.Err() == nil {
		t.Fatal("expected recorded error")
	}
	s.ClearErr()
	if s.Err() != nil {
		t.Fatal("ClearErr must reset the recorded error")
	}
}
