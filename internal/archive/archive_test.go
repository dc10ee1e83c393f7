package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexfrmn/sys-adm-bot/internal/queue"
)

func TestWriteSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "posted")
	a := New(dir)

	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	at := time.Date(2026, 2, 5, 7, 31, 12, 0, loc)
	p := queue.Post{
		ID:        7,
		Scheduled: at.Add(-time.Minute),
		Text:      "вертушки",
		Status:    queue.StatusPosted,
		PostedAt:  at,
	}

	path, err := a.Write(p, at)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "post_20260205_073112.json" {
		t.Fatalf("unexpected archive name: %s", filepath.Base(path))
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if m["status"] != "posted" {
		t.Fatalf("snapshot status: want posted, got %v", m["status"])
	}
	if m["id"].(float64) != 7 {
		t.Fatalf("snapshot id: got %v", m["id"])
	}
	if m["text"] != "вертушки" {
		t.Fatalf("snapshot text mangled: %v", m["text"])
	}
}

func TestWriteCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "posted")
	a := New(dir)
	if _, err := a.Write(queue.Post{ID: 1, Status: queue.StatusPosted}, time.Now()); err != nil {
		t.Fatalf("Write should create missing dirs: %v", err)
	}
}
