package main

import (
	"log"
	"log/slog"
	"os"
	"strings"

	"access-coordinator/logger"
	"access-coordinator/src/config"
	"access-coordinator/src/server"
)

// @title Access Coordinator API
// @version 1.0
// @description Coordinates exclusive access to shared resources with queueing, expiry, extensions and forced termination

// @contact.name   Access Coordinator Team

func main() {
	cfg := loadConfig()
	setupLogging(cfg.LogLevel)

	srv := createServer(&cfg)
	if err := srv.Run(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() config.GlobalConfig {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func setupLogging(level string) {
	logger.Init(level)

	slogLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	handler := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel,
	}))
	slog.SetDefault(handler)
}

func createServer(cfg *config.GlobalConfig) *server.Server {
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	return srv
}
