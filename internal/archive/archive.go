// Package archive persists immutable snapshots of successfully posted
// records, one JSON file per dispatch, outside the live queue.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alexfrmn/sys-adm-bot/internal/queue"
)

// Archiver writes post snapshots into a directory.
//
// Files are keyed by the dispatch timestamp at second granularity
// (post_20060102_150405.json). Two archivals inside the same second collide;
// acceptable for an audit trail, and in practice a cycle posts at most a
// handful of records.
type Archiver struct {
	dir string
}

func New(dir string) *Archiver {
	return &Archiver{dir: dir}
}

// Dir returns the archive directory.
func (a *Archiver) Dir() string { return a.dir }

// Write stores an immutable copy of p, keyed by the dispatch time.
// Callers treat a failure here as a warning: the post was already delivered,
// so archival must never block eviction from the live queue.
func (a *Archiver) Write(p queue.Post, at time.Time) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("archive dir %s: %w", a.dir, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("encode post %d: %w", p.ID, err)
	}

	name := fmt.Sprintf("post_%s.json", at.Format("20060102_150405"))
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("archive post %d: %w", p.ID, err)
	}
	return path, nil
}
