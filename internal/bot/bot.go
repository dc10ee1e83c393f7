// Package bot is the interactive admin front-end: listing the queue, adding
// posts, attaching photos and requeueing failures. It only goes through the
// queue.Manager API; it never flips statuses or timestamps itself.
package bot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/alexfrmn/sys-adm-bot/internal/history"
	"github.com/alexfrmn/sys-adm-bot/internal/queue"
	"github.com/alexfrmn/sys-adm-bot/internal/transport/telegram"
	logx "github.com/alexfrmn/sys-adm-bot/pkg/logx"
	"github.com/alexfrmn/sys-adm-bot/pkg/tgui"
)

type Config struct {
	OwnerUserIDs []int64
	ImagesDir    string
}

type Service struct {
	cfg Config
	log logx.Logger

	adapter *telegram.Adapter
	store   *queue.Store
	mgr     *queue.Manager
	hist    history.Store // optional

	// photos holds incoming photo file ids until the operator picks a target
	// post. Session-scoped: tokens are one-shot and expire on their own.
	photos *tgui.TokenStore
}

func New(cfg Config, adapter *telegram.Adapter, store *queue.Store, mgr *queue.Manager, hist history.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		log:     log,
		adapter: adapter,
		store:   store,
		mgr:     mgr,
		hist:    hist,
		photos:  tgui.NewTokenStore().WithTTL(10 * time.Minute),
	}
}

// Register wires all handlers onto the adapter's bot.
func (s *Service) Register() {
	b := s.adapter.Bot()

	b.Handle("/start", s.owned(s.handleStart))
	b.Handle("/queue", s.owned(s.handleQueue))
	b.Handle("/add", s.owned(s.handleAdd))
	b.Handle("/requeue", s.owned(s.handleRequeue))
	b.Handle("/prompts", s.owned(s.handlePrompts))
	b.Handle("/check", s.owned(s.handleCheck))
	b.Handle("/history", s.owned(s.handleHistory))
	b.Handle(tele.OnPhoto, s.owned(s.handlePhoto))
	b.Handle(tele.OnCallback, s.owned(s.handleCallback))
}

// owned drops updates from anyone but the configured owners.
func (s *Service) owned(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil || !s.isOwner(sender.ID) {
			return nil
		}
		return next(c)
	}
}

func (s *Service) isOwner(id int64) bool {
	for _, owner := range s.cfg.OwnerUserIDs {
		if owner == id {
			return true
		}
	}
	return false
}

func (s *Service) reply(c tele.Context, h tgui.H) error {
	return c.Send(h.String(), &tele.SendOptions{ParseMode: tele.ModeHTML})
}

func (s *Service) imagePath(postID int64) string {
	dir := s.cfg.ImagesDir
	if dir == "" {
		dir = "./images"
	}
	return filepath.Join(dir, fmt.Sprintf("post_%d.jpg", postID))
}

// downloadPhoto saves a Telegram photo to the images dir for a post.
func (s *Service) downloadPhoto(fileID string, postID int64) (string, error) {
	path := s.imagePath(postID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	rc, err := s.adapter.Bot().File(&tele.File{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("telegram file: %w", err)
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// pendingPosts loads the live queue and returns its pending records.
func (s *Service) pendingPosts() ([]*queue.Post, error) {
	q, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return q.Pending(), nil
}
