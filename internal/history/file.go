package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "github.com/alexfrmn/sys-adm-bot/pkg/logx"
)

// fileStore appends one JSON line per dispatch attempt.
//
// File: <prefix>.dispatch.jsonl (prefix = cfg.Path without extension).
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	file *os.File
	path string
}

type entryRecord struct {
	At     string `json:"at"`
	PostID int64  `json:"post_id"`
	Kind   string `json:"kind"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	TookMS int64  `json:"took_ms"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("history.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(filepath.Base(path)))
	full := filepath.Join(dir, base+".dispatch.jsonl")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{log: log, file: f, path: full}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *fileStore) Append(ctx context.Context, e Entry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	rec := entryRecord{
		At:     e.At.Format(time.RFC3339),
		PostID: e.PostID,
		Kind:   e.Kind,
		OK:     e.OK,
		Error:  e.Error,
		TookMS: e.TookMS,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("history file closed")
	}
	return json.NewEncoder(s.file).Encode(rec)
}

func (s *fileStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	_ = ctx
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	// Keep only the tail; the file is small enough for a linear scan.
	var tail []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec entryRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		at, err := time.Parse(time.RFC3339, rec.At)
		if err != nil {
			continue
		}
		tail = append(tail, Entry{
			At:     at,
			PostID: rec.PostID,
			Kind:   rec.Kind,
			OK:     rec.OK,
			Error:  rec.Error,
			TookMS: rec.TookMS,
		})
		if len(tail) > limit {
			tail = tail[1:]
		}
	}
	return tail, sc.Err()
}
