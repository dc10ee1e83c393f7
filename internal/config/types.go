package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Queue    QueueConfig    `json:"queue"`
	Dispatch DispatchConfig `json:"dispatch"`
	History  *HistoryConfig `json:"history,omitempty"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	// Token may be omitted in the file; BOT_TOKEN from the environment
	// (or .env) takes precedence so the token never has to live on disk.
	Token string `json:"token,omitempty"`

	// Channel is the posting target: "@sys_adm" or a numeric chat id.
	Channel string `json:"channel"`

	// OwnerUserIDs are the only users the admin bot responds to.
	OwnerUserIDs []int64 `json:"owner_user_ids"`

	// LogChatID receives rate-limited log lines (0 disables the sink target).
	LogChatID int64 `json:"log_chat_id,omitempty"`

	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// QueueConfig controls the durable post queue and its side files.
type QueueConfig struct {
	Path       string `json:"path"`
	ArchiveDir string `json:"archive_dir"`
	ImagesDir  string `json:"images_dir,omitempty"`

	// Timezone for naive schedule input and the auto-slot day math.
	// Defaults to Europe/Moscow when empty.
	Timezone string `json:"timezone,omitempty"`

	// SlotHour is the fixed hour of the auto-slot morning window (default 7).
	SlotHour *int `json:"slot_hour,omitempty"`
}

// DispatchConfig controls the periodic dispatch cycle.
//
// All durations are Go duration strings (e.g. "30s", "1m").
type DispatchConfig struct {
	Enabled bool `json:"enabled"`

	// Cron is a 5-field cron spec for the cycle trigger (default "*/5 * * * *").
	Cron string `json:"cron,omitempty"`

	// SendTimeout bounds one outbound API call (default "30s").
	SendTimeout string `json:"send_timeout,omitempty"`

	// FetchTimeout bounds a remote image download (default "60s").
	FetchTimeout string `json:"fetch_timeout,omitempty"`
}

// HistoryConfig controls the optional dispatch history store.
//
// Example:
//
//	"history": { "driver": "file", "path": "./history" }
type HistoryConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

const (
	DefaultTimezone = "Europe/Moscow"
	DefaultSlotHour = 7
	DefaultCron     = "*/5 * * * *"
)

// SlotHourOrDefault returns queue.slot_hour or the default morning hour.
func (q QueueConfig) SlotHourOrDefault() int {
	if q.SlotHour == nil {
		return DefaultSlotHour
	}
	return *q.SlotHour
}

// Location resolves queue.timezone.
func (q QueueConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(q.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("queue.timezone: %w", err)
	}
	return loc, nil
}

// Validate checks the parts that must be right before anything starts.
// Cron spec validity is checked by the app (it owns the cron parser).
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Telegram.Channel) == "" {
		return errors.New("telegram.channel is required")
	}
	if strings.TrimSpace(cfg.Queue.Path) == "" {
		return errors.New("queue.path is required")
	}
	if strings.TrimSpace(cfg.Queue.ArchiveDir) == "" {
		return errors.New("queue.archive_dir is required")
	}
	if cfg.Queue.SlotHour != nil && (*cfg.Queue.SlotHour < 0 || *cfg.Queue.SlotHour > 23) {
		return fmt.Errorf("queue.slot_hour: %d out of range 0..23", *cfg.Queue.SlotHour)
	}
	if _, err := cfg.Queue.Location(); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("dispatch.send_timeout", cfg.Dispatch.SendTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("dispatch.fetch_timeout", cfg.Dispatch.FetchTimeout); err != nil {
		return err
	}
	if cfg.History != nil {
		if _, err := ParseDurationField("history.busy_timeout", cfg.History.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
