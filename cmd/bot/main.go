package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/alexfrmn/sys-adm-bot/internal/app"
	"github.com/alexfrmn/sys-adm-bot/internal/queue"
)

func main() {
	var (
		cfgPath string
		once    bool

		add   bool
		text  string
		image string
		at    string
		now   bool
	)
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json")
	flag.BoolVar(&once, "once", false, "run one dispatch cycle and exit")
	flag.BoolVar(&add, "add", false, "enqueue a post and exit")
	flag.StringVar(&text, "text", "", "post text (-add)")
	flag.StringVar(&image, "image", "", "image url or local path (-add)")
	flag.StringVar(&at, "at", "", "explicit schedule, e.g. 2026-02-05T07:30 (-add)")
	flag.BoolVar(&now, "now", false, "schedule for immediate dispatch (-add)")
	flag.Parse()

	// .env is optional; BOT_TOKEN may come from the real environment.
	_ = godotenv.Load()

	if add {
		p, err := app.AddPost(cfgPath, text, image, queue.AddOptions{At: at, Now: now})
		if err != nil {
			fmt.Println("fatal:", err)
			os.Exit(1)
		}
		fmt.Printf("post #%d queued for %s\n", p.ID, p.Scheduled.Format("2006-01-02 15:04 MST"))
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if once {
		err := a.RunOnce(ctx)
		a.Stop()
		if err != nil {
			fmt.Println("fatal cycle:", err)
			os.Exit(1)
		}
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	<-ctx.Done()
	a.Stop()
}
