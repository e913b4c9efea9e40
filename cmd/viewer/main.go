package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/shlink/internal/client/cli"
	"github.com/dmitrijs2005/shlink/internal/client/config"
	"github.com/dmitrijs2005/shlink/internal/flagx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if links := flagx.Positional(os.Args[1:], config.ValueFlags); len(links) > 0 {
		if err := app.RunOnce(ctx, links[0]); err != nil {
			os.Exit(1)
		}
		return
	}

	app.Run(ctx)
}
