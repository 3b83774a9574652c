// cmd/bot/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/memesniper/internal/bot"
	"github.com/rovshanmuradov/memesniper/internal/config"
	"github.com/rovshanmuradov/memesniper/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (json or yaml); defaults and MEMESNIPER_* env when empty")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Debug:      cfg.Log.Debug,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	runErr := bot.NewRunner(cfg, appLogger).Run(rootCtx)
	if runErr != nil {
		appLogger.Error("Bot stopped with error", zap.Error(runErr))
	} else {
		appLogger.Info("Bot shut down gracefully")
	}

	if err := logger.Sync(appLogger); err != nil {
		log.Printf("failed to sync logger: %v", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
