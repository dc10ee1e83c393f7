package queue

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a queued post.
//
// pending -> posted (archived, removed from the live queue)
// pending -> failed (stays in the queue for operator action; never auto-retried)
type Status string

const (
	StatusPending Status = "pending"
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
)

// Post is one unit of work: a piece of content scheduled for the channel.
type Post struct {
	// ID is unique within the queue and never reused (max existing + 1).
	ID int64

	// Scheduled is the earliest instant dispatch may happen. Always zoned;
	// naive input is normalized to the configured timezone on insertion.
	Scheduled time.Time

	// Text is the message body (HTML). May be empty only when ImageURL is set.
	Text string

	// ImageURL optionally references a single image: an http(s) URL or a
	// local file path. The admin bot may set it after creation while the
	// post is still pending.
	ImageURL string

	Status Status

	CreatedAt time.Time

	// PostedAt / ErrorAt are set on the corresponding transition.
	PostedAt time.Time
	ErrorAt  time.Time
}

// HasImage reports whether the post carries a media reference.
func (p *Post) HasImage() bool { return strings.TrimSpace(p.ImageURL) != "" }

// Queue is the insertion-ordered collection of live post records.
// It is persisted as a whole; see Store.
type Queue struct {
	Posts []Post
}

// NextID returns max existing id + 1, or 1 for an empty queue.
// IDs of failed records still in the queue count, so ids are never reused
// while a record is visible.
func (q *Queue) NextID() int64 {
	var max int64
	for i := range q.Posts {
		if q.Posts[i].ID > max {
			max = q.Posts[i].ID
		}
	}
	return max + 1
}

// Find returns a pointer to the record with the given id, or nil.
func (q *Queue) Find(id int64) *Post {
	for i := range q.Posts {
		if q.Posts[i].ID == id {
			return &q.Posts[i]
		}
	}
	return nil
}

// Pending returns the pending records in stored order.
func (q *Queue) Pending() []*Post {
	out := make([]*Post, 0, len(q.Posts))
	for i := range q.Posts {
		if q.Posts[i].Status == StatusPending {
			out = append(out, &q.Posts[i])
		}
	}
	return out
}

// Remove deletes the record with the given id, preserving order of the rest.
func (q *Queue) Remove(id int64) {
	for i := range q.Posts {
		if q.Posts[i].ID == id {
			q.Posts = append(q.Posts[:i], q.Posts[i+1:]...)
			return
		}
	}
}
