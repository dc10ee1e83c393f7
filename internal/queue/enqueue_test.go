package queue

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testManager(t *testing.T, loc *time.Location, now time.Time) *Manager {
	t.Helper()
	st := NewStore(filepath.Join(t.TempDir(), "queue.json"), loc)
	m := NewManager(st, 7)
	m.now = func() time.Time { return now }
	m.rnd = func(n int) int { return 30 }
	return m
}

func TestAddAssignsMonotonicIDs(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, loc)
	m := testManager(t, loc, now)

	p1, err := m.Add("first", "", AddOptions{Now: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if p1.ID != 1 {
		t.Fatalf("first id on empty queue: want 1, got %d", p1.ID)
	}
	p2, err := m.Add("second", "", AddOptions{Now: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if p2.ID != 2 {
		t.Fatalf("want id 2, got %d", p2.ID)
	}

	// Removing a post must not free its id.
	q, err := m.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	q.Remove(1)
	if err := m.store.Save(q); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p3, err := m.Add("third", "", AddOptions{Now: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if p3.ID != 3 {
		t.Fatalf("ids must never be reused: want 3, got %d", p3.ID)
	}
}

func TestAddExplicitScheduleNormalizesNaiveInput(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, loc)
	m := testManager(t, loc, now)

	p, err := m.Add("text", "", AddOptions{At: "2026-02-05T07:30"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, off := p.Scheduled.Zone()
	if off != 3*3600 {
		t.Fatalf("naive schedule should carry MSK offset, got %d", off)
	}
	if p.Scheduled.Hour() != 7 || p.Scheduled.Minute() != 30 {
		t.Fatalf("unexpected schedule: %v", p.Scheduled)
	}
	if p.Status != StatusPending {
		t.Fatalf("new post must be pending, got %s", p.Status)
	}
	if p.CreatedAt.IsZero() {
		t.Fatalf("created_at not set")
	}
}

func TestAddRejectsBadInput(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	m := testManager(t, loc, time.Date(2026, 2, 1, 12, 0, 0, 0, loc))

	if _, err := m.Add("", "", AddOptions{Now: true}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty payload: want ErrInvalidRequest, got %v", err)
	}
	if _, err := m.Add("x", "", AddOptions{Now: true, At: "2026-02-05T07:30"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("conflicting modes: want ErrInvalidRequest, got %v", err)
	}
	if _, err := m.Add("x", "", AddOptions{At: "not-a-time"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("bad schedule: want ErrInvalidRequest, got %v", err)
	}

	// Nothing should have been written.
	q, err := m.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(q.Posts) != 0 {
		t.Fatalf("failed Add must not persist, queue has %d posts", len(q.Posts))
	}
}

func TestAutoSlotSkipsBookedDays(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, loc)
	m := testManager(t, loc, now)

	var days []string
	for i := 0; i < 4; i++ {
		p, err := m.Add("daily", "", AddOptions{})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		day := p.Scheduled.In(loc).Format("2006-01-02")
		for _, d := range days {
			if d == day {
				t.Fatalf("auto-slot double-booked %s", day)
			}
		}
		days = append(days, day)

		if !p.Scheduled.After(now) {
			t.Fatalf("auto-slot must be strictly in the future, got %v", p.Scheduled)
		}
		if p.Scheduled.In(loc).Format("2006-01-02") == now.Format("2006-01-02") {
			t.Fatalf("auto-slot landed on today")
		}
		if p.Scheduled.Hour() != 7 {
			t.Fatalf("auto-slot hour: want 7, got %d", p.Scheduled.Hour())
		}
		if p.Scheduled.Minute() != 30 {
			t.Fatalf("auto-slot minute: want stubbed 30, got %d", p.Scheduled.Minute())
		}
	}
	if days[0] != "2026-02-02" {
		t.Fatalf("first free slot should be tomorrow, got %s", days[0])
	}
}

func TestAutoSlotIgnoresNonPendingDays(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, loc)
	m := testManager(t, loc, now)

	// A failed post tomorrow should not block the slot.
	q := &Queue{Posts: []Post{{
		ID:        1,
		Scheduled: time.Date(2026, 2, 2, 7, 10, 0, 0, loc),
		Text:      "failed one",
		Status:    StatusFailed,
	}}}
	if err := m.store.Save(q); err != nil {
		t.Fatalf("Save: %v", err)
	}

	p, err := m.Add("new", "", AddOptions{})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := p.Scheduled.In(loc).Format("2006-01-02"); got != "2026-02-02" {
		t.Fatalf("failed post should not book the day, got %s", got)
	}
}

func TestAttach(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	m := testManager(t, loc, time.Date(2026, 2, 1, 12, 0, 0, 0, loc))

	p, err := m.Add("with image later", "", AddOptions{Now: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Attach(p.ID, "/data/images/post_1.jpg"); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	q, _ := m.store.Load()
	if got := q.Find(p.ID).ImageURL; got != "/data/images/post_1.jpg" {
		t.Fatalf("image not persisted, got %q", got)
	}

	if err := m.Attach(99, "/x.jpg"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	q.Find(p.ID).Status = StatusFailed
	if err := m.store.Save(q); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Attach(p.ID, "/y.jpg"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("want ErrNotPending, got %v", err)
	}
}

func TestRequeue(t *testing.T) {
	loc := mustLoc(t, "Europe/Moscow")
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, loc)
	m := testManager(t, loc, now)

	q := &Queue{Posts: []Post{{
		ID:        5,
		Scheduled: now.Add(-time.Hour),
		Text:      "went wrong",
		Status:    StatusFailed,
		ErrorAt:   now.Add(-30 * time.Minute),
	}}}
	if err := m.store.Save(q); err != nil {
		t.Fatalf("Save: %v", err)
	}

	p, err := m.Requeue(5, AddOptions{Now: true})
	if err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if p.Status != StatusPending {
		t.Fatalf("want pending, got %s", p.Status)
	}
	if !p.ErrorAt.IsZero() {
		t.Fatalf("error_at should be cleared")
	}
	if p.ID != 5 {
		t.Fatalf("requeue must keep the id, got %d", p.ID)
	}

	// Requeueing a pending post is an operator mistake.
	if _, err := m.Requeue(5, AddOptions{Now: true}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("want ErrInvalidRequest, got %v", err)
	}
}
