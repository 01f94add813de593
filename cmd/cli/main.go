package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/crowdfund/internal/client/cli"
	"github.com/dmitrijs2005/crowdfund/internal/client/config"
	"github.com/dmitrijs2005/crowdfund/internal/logging"
)

func main() {

	cfg := config.MustLoad()
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
