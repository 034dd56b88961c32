package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/bryanwahyu/vaidyamitra/internal/bootstrap"
	"github.com/bryanwahyu/vaidyamitra/internal/config"
	"github.com/bryanwahyu/vaidyamitra/internal/logging"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path, true)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	if err := bootstrap.Serve(context.Background(), cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
