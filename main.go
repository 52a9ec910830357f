package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"admin-bot/bot"
	"admin-bot/config"
	"admin-bot/handlers"
	"admin-bot/model"
	"admin-bot/utils"
	"admin-bot/utils/database"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()
	logConfigSources(logger, cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), os.ModePerm); err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("error initializing database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	b, err := bot.New(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("error creating bot", zap.Error(err))
	}
	defer b.Close()

	handlers.Register(b)

	if err := b.Run(ctx); err != nil {
		logger.Error("bot stopped", zap.Error(err))
	}
}

func logConfigSources(logger *zap.Logger, cfg *model.Config) {
	if !cfg.DotEnv {
		logger.Info(".env file not found, relying on environment variables")
	}
	if cfg.ConfigFile == "" {
		logger.Warn("config file not found, using environment only")
		return
	}
	logger.Info("config loaded", zap.String("path", cfg.ConfigFile), zap.Int("guilds", len(cfg.Guilds)))
}
