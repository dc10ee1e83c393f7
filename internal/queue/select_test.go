package queue

import (
	"testing"
	"time"
)

func TestDueSelectsPendingPastRecordsInStoredOrder(t *testing.T) {
	now := time.Date(2026, 2, 5, 8, 0, 0, 0, time.UTC)
	q := &Queue{Posts: []Post{
		{ID: 1, Scheduled: now.Add(-2 * time.Hour), Status: StatusPending},
		{ID: 2, Scheduled: now.Add(time.Hour), Status: StatusPending},     // future
		{ID: 3, Scheduled: now.Add(-3 * time.Hour), Status: StatusFailed}, // failed, never re-selected
		{ID: 4, Scheduled: now.Add(-30 * time.Minute), Status: StatusPending},
		{ID: 5, Scheduled: now, Status: StatusPending}, // boundary: due at exactly now
	}}

	due := Due(q, now)
	want := []int64{1, 4, 5}
	if len(due) != len(want) {
		t.Fatalf("want %d due posts, got %d", len(want), len(due))
	}
	for i, id := range want {
		if due[i].ID != id {
			t.Fatalf("position %d: want id %d, got %d", i, id, due[i].ID)
		}
	}
}

func TestDueKeepsInsertionOrderNotScheduleOrder(t *testing.T) {
	// Post 2 was inserted later but is due earlier. Insertion order wins.
	now := time.Date(2026, 2, 5, 8, 0, 0, 0, time.UTC)
	q := &Queue{Posts: []Post{
		{ID: 1, Scheduled: now.Add(-time.Hour), Status: StatusPending},
		{ID: 2, Scheduled: now.Add(-5 * time.Hour), Status: StatusPending},
	}}
	due := Due(q, now)
	if len(due) != 2 || due[0].ID != 1 || due[1].ID != 2 {
		t.Fatalf("expected insertion order [1 2], got %v", []int64{due[0].ID, due[1].ID})
	}
}

func TestDueEmptyQueue(t *testing.T) {
	if got := Due(&Queue{}, time.Now()); len(got) != 0 {
		t.Fatalf("empty queue: want no due posts, got %d", len(got))
	}
}

func TestDueSkipsZeroSchedule(t *testing.T) {
	q := &Queue{Posts: []Post{{ID: 1, Status: StatusPending}}}
	if got := Due(q, time.Now()); len(got) != 0 {
		t.Fatalf("post without schedule must not be due")
	}
}
