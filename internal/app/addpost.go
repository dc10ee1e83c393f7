package app

import (
	"github.com/alexfrmn/sys-adm-bot/internal/config"
	"github.com/alexfrmn/sys-adm-bot/internal/queue"
)

// AddPost enqueues a post without bringing the bot up. Used by the -add CLI
// mode, so it must work with no Telegram token around.
func AddPost(cfgPath, text, imageURL string, opt queue.AddOptions) (queue.Post, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return queue.Post{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return queue.Post{}, err
	}
	loc, err := cfg.Queue.Location()
	if err != nil {
		return queue.Post{}, err
	}

	store := queue.NewStore(cfg.Queue.Path, loc)
	mgr := queue.NewManager(store, cfg.Queue.SlotHourOrDefault())
	return mgr.Add(text, imageURL, opt)
}
