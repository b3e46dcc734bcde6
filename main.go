package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Black-And-White-Club/consensus-rank/app"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability"
	"github.com/Black-And-White-Club/consensus-rank/config"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env file: %v", err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.Init(ctx, config.ToObsConfig(cfg, version))
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			log.Printf("Failed to flush traces: %v", err)
		}
	}()

	application := &app.App{}
	if err := application.Initialize(ctx, cfg, obs); err != nil {
		obs.Logger.Error("Failed to initialize application", "error", err)
		_ = application.Close(context.Background())
		os.Exit(1)
	}

	obs.Logger.Info("Application started", "version", version)
	if err := application.RunUntilShutdown(ctx); err != nil {
		obs.Logger.Error("Application exited with error", "error", err)
		os.Exit(1)
	}
}
