package main

import (
	"context"
	"log"
	"time"

	"github.com/fjod/products-api/internal/app"
	"github.com/fjod/products-api/internal/config"
	"github.com/fjod/products-api/pkg/logger"
)

// @title        Products API
// @version      1.0
// @description  CRUD over products stored in MongoDB.
// @BasePath     /
func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	sugar := zl.Sugar()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.New(ctx, cfg, sugar)
	cancel()
	if err != nil {
		sugar.Fatalw("Error connecting to the database", "error", err)
	}

	if err := application.Run(); err != nil {
		sugar.Errorw("server stopped with error", "error", err)
	}
}
