package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophgram/internal/server"
	"github.com/dmitrijs2005/gophgram/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	logger := server.NewLogger(cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error(ctx, "init failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}
