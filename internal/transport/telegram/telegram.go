// Package telegram wraps telebot: channel delivery for the dispatcher, a log
// sink target for logx, and the underlying bot for the admin handlers.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "github.com/alexfrmn/sys-adm-bot/pkg/logx"
)

type Config struct {
	Token   string
	Channel string // "@channelname" or a numeric chat id as string

	// LogChatID receives logx telegram-sink lines (0 disables).
	LogChatID int64

	// PollTimeout for the admin bot long poller.
	PollTimeout time.Duration

	// SendTimeout bounds one outbound API call, uploads included.
	SendTimeout time.Duration
}

type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

// channelRecipient lets us address "@channelname" targets; telebot only needs
// Recipient() string and the Bot API accepts usernames as chat_id.
type channelRecipient string

func (r channelRecipient) Recipient() string { return string(r) }

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if strings.TrimSpace(cfg.Channel) == "" {
		return nil, errors.New("telegram channel is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 60 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
		Client: &http.Client{Timeout: cfg.SendTimeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// Bot exposes the underlying telebot instance for the admin handler package
// and for polling control.
func (a *Adapter) Bot() *tele.Bot { return a.bot }

func (a *Adapter) channel() tele.Recipient { return channelRecipient(a.cfg.Channel) }

// SendText posts a text message to the channel (HTML parse mode, like the
// content authors write).
func (a *Adapter) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Send(a.channel(), text, &tele.SendOptions{ParseMode: tele.ModeHTML})
	return err
}

// SendPhoto posts a single image with an optional HTML caption.
func (a *Adapter) SendPhoto(ctx context.Context, photo []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ph := &tele.Photo{File: tele.FromReader(bytes.NewReader(photo)), Caption: caption}
	_, err := a.bot.Send(a.channel(), ph, &tele.SendOptions{ParseMode: tele.ModeHTML})
	return err
}

// SendLog implements logx.Sender: plain-text log lines to the operator chat.
func (a *Adapter) SendLog(ctx context.Context, text string) error {
	if a.cfg.LogChatID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Send(tele.ChatID(a.cfg.LogChatID), text)
	return err
}

// Start runs the admin bot long-poll loop until Stop is called. Blocking.
func (a *Adapter) Start() {
	a.log.Info("polling started")
	a.bot.Start()
	a.log.Info("polling stopped")
}

func (a *Adapter) Stop() {
	a.bot.Stop()
}
