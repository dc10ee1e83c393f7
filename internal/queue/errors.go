package queue

import "errors"

var (
	// ErrInvalidRequest marks malformed enqueue input (unparseable schedule,
	// conflicting schedule modes, no payload). Surfaced to the caller
	// immediately; nothing is written.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound is returned when a post id is not in the live queue.
	ErrNotFound = errors.New("post not found")

	// ErrNotPending is returned when an operation requires a pending record
	// (e.g. attaching an image) but the record has already transitioned.
	ErrNotPending = errors.New("post is not pending")
)
