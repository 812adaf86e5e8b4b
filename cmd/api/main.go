package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"kaku/infrastructure/config"
	"kaku/infrastructure/di"
	"kaku/interfaces/http/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	runErr := server.Run(ctx, container)
	if runErr != nil {
		container.Logger.Error("Server stopped with error", zap.Error(runErr))
	}

	cleanup()
	_ = container.Logger.Sync()
	if runErr != nil {
		os.Exit(1)
	}
	log.Println("Server stopped")
}
