package main

import (
	"context"
	"os"

	"github.com/allendavis-developer/cg-stock-take/internal/config"
	"github.com/allendavis-developer/cg-stock-take/internal/container"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.Info("Starting cg-stock-take")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	app, err := container.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.Close()

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	log.Info("Done")
}
