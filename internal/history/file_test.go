package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "github.com/alexfrmn/sys-adm-bot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	st, err := Open(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st != nil {
		t.Fatalf("empty driver should disable history")
	}
	if st, err = Open(Config{Driver: "none"}, logx.Nop()); err != nil || st != nil {
		t.Fatalf("driver none should disable history, got (%v, %v)", st, err)
	}
	if _, err = Open(Config{Driver: "bogus", Path: "x"}, logx.Nop()); err == nil {
		t.Fatalf("unknown driver should error")
	}
}

func TestFileAppendRecent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	base := time.Date(2026, 2, 5, 7, 30, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := Entry{
			At:     base.Add(time.Duration(i) * time.Minute),
			PostID: int64(i + 1),
			Kind:   "text",
			OK:     i%2 == 0,
			TookMS: 100,
		}
		if !e.OK {
			e.Error = "telegram: 502"
		}
		if err := st.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := st.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 entries, got %d", len(got))
	}
	if got[0].PostID != 3 || got[2].PostID != 5 {
		t.Fatalf("expected the tail in order, got %+v", got)
	}
	if got[1].OK || got[1].Error == "" {
		t.Fatalf("failure detail lost: %+v", got[1])
	}
}

func TestFileRecentEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	got, err := st.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want no entries, got %d", len(got))
	}
}
