package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/connecta/internal/buildinfo"
	"github.com/dmitrijs2005/connecta/internal/client/cli"
	"github.com/dmitrijs2005/connecta/internal/client/client"
	"github.com/dmitrijs2005/connecta/internal/client/config"
	"github.com/dmitrijs2005/connecta/internal/logging"
	"github.com/dmitrijs2005/connecta/internal/telemetry"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)

	shutdown, err := telemetry.Setup(ctx, "connecta-cli", buildinfo.Version, cfg.OTelEndpoint)
	if err != nil {
		logger.Warn(ctx, "tracing disabled", "error", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "trace flush failed", "error", err)
		}
	}()

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", cfg.DatabasePath, "error", err)
		return
	}
	defer db.Close()

	app, err := cli.NewApp(cfg, db, logger)
	if err != nil {
		logger.Error(ctx, "error creating app", "error", err)
		return
	}

	app.Run(ctx)

}
