// Package app wires the pieces together: config, logging, the Telegram
// adapter, the queue, the dispatch cycle on a cron trigger and the admin bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alexfrmn/sys-adm-bot/internal/archive"
	"github.com/alexfrmn/sys-adm-bot/internal/bot"
	"github.com/alexfrmn/sys-adm-bot/internal/config"
	"github.com/alexfrmn/sys-adm-bot/internal/dispatch"
	"github.com/alexfrmn/sys-adm-bot/internal/history"
	"github.com/alexfrmn/sys-adm-bot/internal/queue"
	"github.com/alexfrmn/sys-adm-bot/internal/transport/telegram"
	logx "github.com/alexfrmn/sys-adm-bot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	logs *logx.Service
	log  logx.Logger

	adapter *telegram.Adapter
	store   *queue.Store
	runner  *dispatch.Runner
	hist    history.Store
	bot     *bot.Service

	cron *cron.Cron

	polling bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds the full application from a config file. The Telegram token is
// taken from BOT_TOKEN when set, otherwise from telegram.token in the file.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	loc, err := cfg.Queue.Location()
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	sendTimeout, err := config.ParseDurationOrDefault("dispatch.send_timeout", cfg.Dispatch.SendTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := config.ParseDurationOrDefault("dispatch.fetch_timeout", cfg.Dispatch.FetchTimeout, 60*time.Second)
	if err != nil {
		return nil, err
	}

	adapter, err := telegram.New(telegram.Config{
		Token:       resolveToken(cfg),
		Channel:     cfg.Telegram.Channel,
		LogChatID:   cfg.Telegram.LogChatID,
		PollTimeout: pollTimeout,
		SendTimeout: sendTimeout,
	}, logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(loggingConfig(cfg), adapter)
	log = log.With(logx.String("comp", "app"))

	store := queue.NewStore(cfg.Queue.Path, loc)
	mgr := queue.NewManager(store, cfg.Queue.SlotHourOrDefault())
	arch := archive.New(cfg.Queue.ArchiveDir)

	hist, err := openHistory(cfg, logSvc.Logger())
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	runner := dispatch.NewRunner(dispatch.Config{FetchTimeout: fetchTimeout},
		store, arch, adapter, hist, logSvc.Logger().With(logx.String("comp", "dispatch")))

	botSvc := bot.New(bot.Config{
		OwnerUserIDs: cfg.Telegram.OwnerUserIDs,
		ImagesDir:    cfg.Queue.ImagesDir,
	}, adapter, store, mgr, hist, logSvc.Logger().With(logx.String("comp", "bot")))

	return &App{
		cfgm:    cfgm,
		logs:    logSvc,
		log:     log,
		adapter: adapter,
		store:   store,
		runner:  runner,
		hist:    hist,
		bot:     botSvc,
	}, nil
}

func resolveToken(cfg *config.Config) string {
	if v := strings.TrimSpace(os.Getenv("BOT_TOKEN")); v != "" {
		return v
	}
	return cfg.Telegram.Token
}

func loggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func openHistory(cfg *config.Config, log logx.Logger) (history.Store, error) {
	if cfg.History == nil {
		return nil, nil
	}
	busy, err := config.ParseDurationOrDefault("history.busy_timeout", cfg.History.BusyTimeout, 0)
	if err != nil {
		return nil, err
	}
	return history.Open(history.Config{
		Driver:      cfg.History.Driver,
		Path:        cfg.History.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "history")))
}

// Start brings up the bot poller, the cron trigger and the config watcher.
// It returns once everything is running; Stop tears it down.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	cfg := a.cfgm.Get()

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		if err := config.Validate(c); err != nil {
			return err
		}
		if _, err := config.ParseDurationOrDefault("telegram.poll_timeout", c.Telegram.PollTimeout, 10*time.Second); err != nil {
			return err
		}
		if _, err := config.ParseDurationOrDefault("dispatch.send_timeout", c.Dispatch.SendTimeout, 30*time.Second); err != nil {
			return err
		}
		if _, err := config.ParseDurationOrDefault("dispatch.fetch_timeout", c.Dispatch.FetchTimeout, 60*time.Second); err != nil {
			return err
		}
		if spec := strings.TrimSpace(c.Dispatch.Cron); spec != "" {
			if _, err := cron.ParseStandard(spec); err != nil {
				return fmt.Errorf("dispatch.cron: %w", err)
			}
		}
		return nil
	})

	a.bot.Register()

	// Adapter.Start blocks in the long-poll loop; Stop unblocks it.
	a.polling = true
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.adapter.Start()
	}()

	if cfg.Dispatch.Enabled {
		if err := a.startCron(runCtx, cfg); err != nil {
			cancel()
			return err
		}
	} else {
		a.log.Info("dispatch disabled, running admin bot only")
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("config watcher stopped", logx.Err(err))
		}
	}()

	a.wg.Add(1)
	go a.reloadLoop(runCtx)

	a.log.Info("started",
		logx.String("queue", a.store.Path()),
		logx.Bool("dispatch", cfg.Dispatch.Enabled))
	return nil
}

func (a *App) startCron(ctx context.Context, cfg *config.Config) error {
	spec := strings.TrimSpace(cfg.Dispatch.Cron)
	if spec == "" {
		spec = config.DefaultCron
	}

	clog := cronLog{log: a.log.With(logx.String("comp", "cron"))}
	c := cron.New(
		cron.WithLocation(a.store.Location()),
		cron.WithLogger(clog),
		cron.WithChain(cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(spec, func() {
		if err := a.runner.RunCycle(ctx); err != nil {
			a.log.Error("dispatch cycle failed", logx.Err(err))
		}
	}); err != nil {
		return fmt.Errorf("dispatch.cron: %w", err)
	}
	c.Start()
	a.cron = c
	a.log.Info("dispatch scheduled", logx.String("cron", spec))
	return nil
}

// reloadLoop applies hot-reloadable parts of the config. Logging settings
// take effect immediately; structural changes (paths, token, cron spec)
// still need a restart and are only reported.
func (a *App) reloadLoop(ctx context.Context) {
	defer a.wg.Done()

	old := a.cfgm.Get()
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			changed, fields := config.SummarizeChange(old, cfg)
			if len(changed) == 0 {
				continue
			}
			a.logs.Apply(loggingConfig(cfg))
			a.log.Info("config reloaded", fields...)
			for _, path := range changed {
				if needsRestart(path) {
					a.log.Warn("change needs restart to take effect", logx.String("field", path))
				}
			}
			old = cfg
		}
	}
}

func needsRestart(path string) bool {
	switch {
	case strings.HasPrefix(path, "logging."):
		return false
	default:
		return true
	}
}

// RunOnce executes a single dispatch cycle and exits. Meant for running the
// dispatcher from an external cron instead of the built-in trigger.
func (a *App) RunOnce(ctx context.Context) error {
	return a.runner.RunCycle(ctx)
}

func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.cron != nil {
		stopCtx := a.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(30 * time.Second):
			a.log.Warn("cron jobs did not finish in time")
		}
	}
	if a.polling {
		a.adapter.Stop()
	}
	a.wg.Wait()
	if a.hist != nil {
		_ = a.hist.Close()
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
}

// cronLog adapts logx to the cron logger interface.
type cronLog struct {
	log logx.Logger
}

func (l cronLog) Info(msg string, kv ...interface{}) {
	l.log.Debug(msg, kvFields(kv)...)
}

func (l cronLog) Error(err error, msg string, kv ...interface{}) {
	l.log.Error(msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	fields := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		fields = append(fields, logx.Any(k, kv[i+1]))
	}
	return fields
}
