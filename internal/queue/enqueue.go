package queue

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Manager is the enqueue API on top of a Store. The interactive bot and the
// -add CLI mode both go through it; every mutation persists immediately.
type Manager struct {
	store    *Store
	slotHour int

	// test seams
	now func() time.Time
	rnd func(n int) int
}

func NewManager(store *Store, slotHour int) *Manager {
	if slotHour < 0 || slotHour > 23 {
		slotHour = 7
	}
	return &Manager{
		store:    store,
		slotHour: slotHour,
		now:      time.Now,
		rnd:      rand.Intn,
	}
}

// AddOptions picks the scheduling mode. At and Now are mutually exclusive;
// when neither is set the post gets the next free auto-slot.
type AddOptions struct {
	// At is an explicit schedule (ISO-8601; naive input uses the store zone).
	At string
	// Now schedules for the current instant (picked up by the next cycle).
	Now bool
}

// Add validates and appends a new pending record.
func (m *Manager) Add(text, imageURL string, opt AddOptions) (Post, error) {
	text = strings.TrimSpace(text)
	if text == "" && strings.TrimSpace(imageURL) == "" {
		return Post{}, fmt.Errorf("%w: post needs text or an image", ErrInvalidRequest)
	}
	if opt.Now && strings.TrimSpace(opt.At) != "" {
		return Post{}, fmt.Errorf("%w: -now and -at are mutually exclusive", ErrInvalidRequest)
	}

	var p Post
	err := m.store.Mutate(func(q *Queue) error {
		scheduled, err := m.resolveSchedule(q, opt)
		if err != nil {
			return err
		}
		p = Post{
			ID:        q.NextID(),
			Scheduled: scheduled,
			Text:      text,
			ImageURL:  strings.TrimSpace(imageURL),
			Status:    StatusPending,
			CreatedAt: m.now().In(m.store.Location()),
		}
		q.Posts = append(q.Posts, p)
		return nil
	})
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// Attach sets the image reference on a pending record.
// Used by the admin bot after downloading an incoming photo.
func (m *Manager) Attach(id int64, imageRef string) error {
	imageRef = strings.TrimSpace(imageRef)
	if imageRef == "" {
		return fmt.Errorf("%w: empty image reference", ErrInvalidRequest)
	}

	return m.store.Mutate(func(q *Queue) error {
		p := q.Find(id)
		if p == nil {
			return fmt.Errorf("post %d: %w", id, ErrNotFound)
		}
		if p.Status != StatusPending {
			return fmt.Errorf("post %d: %w", id, ErrNotPending)
		}
		p.ImageURL = imageRef
		return nil
	})
}

// Requeue resets a failed record to pending with a fresh schedule.
// This is the operator remediation path; nothing requeues automatically.
func (m *Manager) Requeue(id int64, opt AddOptions) (Post, error) {
	if opt.Now && strings.TrimSpace(opt.At) != "" {
		return Post{}, fmt.Errorf("%w: -now and -at are mutually exclusive", ErrInvalidRequest)
	}

	var out Post
	err := m.store.Mutate(func(q *Queue) error {
		p := q.Find(id)
		if p == nil {
			return fmt.Errorf("post %d: %w", id, ErrNotFound)
		}
		if p.Status != StatusFailed {
			return fmt.Errorf("%w: post %d is %s, only failed posts can be requeued", ErrInvalidRequest, id, p.Status)
		}

		scheduled, err := m.resolveSchedule(q, opt)
		if err != nil {
			return err
		}

		p.Status = StatusPending
		p.Scheduled = scheduled
		p.ErrorAt = time.Time{}
		out = *p
		return nil
	})
	if err != nil {
		return Post{}, err
	}
	return out, nil
}

func (m *Manager) resolveSchedule(q *Queue, opt AddOptions) (time.Time, error) {
	loc := m.store.Location()
	switch {
	case opt.Now:
		return m.now().In(loc), nil
	case strings.TrimSpace(opt.At) != "":
		t, err := ParseStamp(opt.At, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return t, nil
	default:
		return m.nextFreeSlot(q), nil
	}
}

// nextFreeSlot finds the next date (starting tomorrow) with no pending post
// scheduled on it and places the post in the fixed morning hour with a
// uniformly random minute. One post per day keeps the channel cadence even
// without manual date bookkeeping.
func (m *Manager) nextFreeSlot(q *Queue) time.Time {
	loc := m.store.Location()
	now := m.now().In(loc)

	taken := map[string]bool{}
	for i := range q.Posts {
		p := &q.Posts[i]
		if p.Status != StatusPending || p.Scheduled.IsZero() {
			continue
		}
		taken[p.Scheduled.In(loc).Format("2006-01-02")] = true
	}

	day := now.AddDate(0, 0, 1)
	for taken[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, 1)
	}

	minute := m.rnd(60)
	return time.Date(day.Year(), day.Month(), day.Day(), m.slotHour, minute, 0, 0, loc)
}
