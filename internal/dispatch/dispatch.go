// Package dispatch runs the cycle: select due posts, deliver each to the
// channel, archive and evict the delivered ones, and persist the queue once
// at the end.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexfrmn/sys-adm-bot/internal/archive"
	"github.com/alexfrmn/sys-adm-bot/internal/history"
	"github.com/alexfrmn/sys-adm-bot/internal/queue"
	"github.com/alexfrmn/sys-adm-bot/internal/transport"
	logx "github.com/alexfrmn/sys-adm-bot/pkg/logx"
)

// ErrInvalidPayload marks a due record with neither text nor image.
// It is recorded on the record as a failed transition, like any other
// dispatch failure.
var ErrInvalidPayload = errors.New("post has neither text nor image")

type Config struct {
	// FetchTimeout bounds a remote image download (default 60s).
	FetchTimeout time.Duration
}

type Runner struct {
	cfg    Config
	store  *queue.Store
	arch   *archive.Archiver
	sender transport.ChannelSender
	hist   history.Store // optional
	log    logx.Logger

	fetch *http.Client
	now   func() time.Time
}

func NewRunner(cfg Config, store *queue.Store, arch *archive.Archiver, sender transport.ChannelSender, hist history.Store, log logx.Logger) *Runner {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 60 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{
		cfg:    cfg,
		store:  store,
		arch:   arch,
		sender: sender,
		hist:   hist,
		log:    log,
		fetch:  &http.Client{Timeout: cfg.FetchTimeout},
		now:    time.Now,
	}
}

// RunCycle processes every due record once. One record's failure never aborts
// the cycle; only a store read/write failure does. Safe to invoke repeatedly:
// with nothing due the queue is left untouched and nothing is archived.
//
// The whole cycle runs inside one store mutation, so enqueues wait until the
// cycle persists its transitions.
func (r *Runner) RunCycle(ctx context.Context) error {
	return r.store.Mutate(func(q *queue.Queue) error {
		now := r.now().In(r.store.Location())
		due := queue.Due(q, now)
		if len(due) == 0 {
			r.log.Debug("nothing due", logx.Int("queue_len", len(q.Posts)))
			return queue.ErrNoChange
		}
		r.log.Info("dispatch cycle", logx.Int("due", len(due)), logx.Int("queue_len", len(q.Posts)))

		var posted []int64
		for _, p := range due {
			start := time.Now()
			kind, err := r.dispatchOne(ctx, p)
			at := r.now().In(r.store.Location())

			if err == nil {
				p.Status = queue.StatusPosted
				p.PostedAt = at
				// Archival failure is a warning: delivery already happened,
				// the record still leaves the live queue.
				if _, aerr := r.arch.Write(*p, at); aerr != nil {
					r.log.Warn("archive failed", logx.Int64("post", p.ID), logx.Err(aerr))
				}
				posted = append(posted, p.ID)
				r.log.Info("posted", logx.Int64("post", p.ID), logx.String("kind", kind))
			} else {
				p.Status = queue.StatusFailed
				p.ErrorAt = at
				r.log.Error("dispatch failed", logx.Int64("post", p.ID), logx.String("kind", kind), logx.Err(err))
			}

			r.record(ctx, history.Entry{
				At:     at,
				PostID: p.ID,
				Kind:   kind,
				OK:     err == nil,
				Error:  errString(err),
				TookMS: time.Since(start).Milliseconds(),
			})
		}

		for _, id := range posted {
			q.Remove(id)
		}
		return nil
	})
}

func (r *Runner) dispatchOne(ctx context.Context, p *queue.Post) (string, error) {
	switch {
	case p.HasImage():
		photo, err := r.resolveImage(ctx, p.ImageURL)
		if err != nil {
			return "photo", err
		}
		return "photo", r.sender.SendPhoto(ctx, photo, p.Text)
	case strings.TrimSpace(p.Text) != "":
		return "text", r.sender.SendText(ctx, p.Text)
	default:
		return "none", ErrInvalidPayload
	}
}

// resolveImage loads image bytes from an http(s) URL or a local path.
// Any failure here fails the dispatch of the record.
func (r *Runner) resolveImage(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		resp, err := r.fetch.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("fetch image: unexpected status %s", resp.Status)
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		return b, nil
	}

	b, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return b, nil
}

func (r *Runner) record(ctx context.Context, e history.Entry) {
	if r.hist == nil {
		return
	}
	if err := r.hist.Append(ctx, e); err != nil {
		r.log.Warn("history append failed", logx.Int64("post", e.PostID), logx.Err(err))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
