package queue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Store reads and writes the queue document on disk.
//
// The file is a single human-readable JSON document ({"posts": [...]}) and is
// always replaced wholesale: Save writes to a temp file and renames it over
// the old one, so a reader never observes a partial queue.
//
// Mutations go through Mutate, which holds the store lock across the whole
// load-modify-persist sequence; bot handlers and the cron trigger run on
// separate goroutines.
type Store struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
}

func NewStore(path string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{path: path, loc: loc}
}

// Path returns the queue file path.
func (s *Store) Path() string { return s.path }

// Location returns the zone naive timestamps are interpreted in.
func (s *Store) Location() *time.Location { return s.loc }

// Load reads the queue. A missing file is an empty queue, not an error.
func (s *Store) Load() (*Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*Queue, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Queue{}, nil
		}
		return nil, fmt.Errorf("read queue %s: %w", s.path, err)
	}

	var doc queueJSON
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode queue %s: %w", s.path, err)
	}

	q := &Queue{Posts: make([]Post, 0, len(doc.Posts))}
	for _, pj := range doc.Posts {
		p, err := pj.toPost(s.loc)
		if err != nil {
			return nil, fmt.Errorf("queue %s: post %d: %w", s.path, pj.ID, err)
		}
		q.Posts = append(q.Posts, p)
	}
	return q, nil
}

// Save replaces the queue document atomically (temp file + rename).
func (s *Store) Save(q *Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(q)
}

// ErrNoChange signals from a Mutate callback that the queue was not modified
// and the file should be left as it is.
var ErrNoChange = errors.New("queue unchanged")

// Mutate runs one load-modify-persist sequence under the store lock, so two
// mutations never interleave. Any error from fn aborts without a rewrite;
// ErrNoChange aborts silently.
func (s *Store) Mutate(fn func(q *Queue) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(q); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	return s.save(q)
}

func (s *Store) save(q *Queue) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save queue %s: %w", s.path, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(queueDoc(q)); err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save queue %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("save queue %s: %w", s.path, err)
	}
	return nil
}

// ---- wire format ----

// Field names match the original queue.json layout so existing queues keep
// working and the file stays hand-editable.
type postJSON struct {
	ID        int64  `json:"id"`
	Scheduled string `json:"scheduled"`
	Text      string `json:"text"`
	ImageURL  string `json:"image_url,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
	PostedAt  string `json:"posted_at,omitempty"`
	ErrorAt   string `json:"error_at,omitempty"`
}

type queueJSON struct {
	Posts []postJSON `json:"posts"`
}

// MarshalJSON writes the wire format, so archive snapshots and the queue file
// render a record identically.
func (p Post) MarshalJSON() ([]byte, error) {
	return json.Marshal(fromPost(&p))
}

func queueDoc(q *Queue) queueJSON {
	doc := queueJSON{Posts: make([]postJSON, 0, len(q.Posts))}
	for i := range q.Posts {
		doc.Posts = append(doc.Posts, fromPost(&q.Posts[i]))
	}
	return doc
}

func fromPost(p *Post) postJSON {
	return postJSON{
		ID:        p.ID,
		Scheduled: formatTime(p.Scheduled),
		Text:      p.Text,
		ImageURL:  p.ImageURL,
		Status:    string(p.Status),
		CreatedAt: formatTime(p.CreatedAt),
		PostedAt:  formatTime(p.PostedAt),
		ErrorAt:   formatTime(p.ErrorAt),
	}
}

func (pj postJSON) toPost(loc *time.Location) (Post, error) {
	p := Post{
		ID:       pj.ID,
		Text:     pj.Text,
		ImageURL: pj.ImageURL,
		Status:   Status(pj.Status),
	}
	var err error
	if p.Scheduled, err = parseTimeField("scheduled", pj.Scheduled, loc); err != nil {
		return Post{}, err
	}
	if p.CreatedAt, err = parseTimeField("created_at", pj.CreatedAt, loc); err != nil {
		return Post{}, err
	}
	if p.PostedAt, err = parseTimeField("posted_at", pj.PostedAt, loc); err != nil {
		return Post{}, err
	}
	if p.ErrorAt, err = parseTimeField("error_at", pj.ErrorAt, loc); err != nil {
		return Post{}, err
	}
	return p, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTimeField(field, raw string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, err := ParseStamp(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

// ParseStamp parses ISO-8601-ish timestamps. Zoned input keeps its offset;
// naive input (hand-edited queue files, CLI -at values) is interpreted in loc.
func ParseStamp(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if loc == nil {
		loc = time.Local
	}

	zoned := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04Z07:00",
	}
	for _, layout := range zoned {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	naive := []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	for _, layout := range naive {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unparsable timestamp %q", raw)
}
