package history

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("history disabled")

// Config configures the dispatch history store.
//
// Driver values:
//   - "file": dependency-free JSON Lines backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", history is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry records one dispatch attempt. Keep it compact and schema-stable;
// the queue and the archive stay authoritative, this is operator telemetry.
type Entry struct {
	At     time.Time
	PostID int64
	Kind   string // "text" or "photo"
	OK     bool
	Error  string
	TookMS int64
}
