package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/k1105/veo3-prompt-generator-sub000/internal/api"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/config"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/db"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/llm"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/logging"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/prompt"
	"github.com/k1105/veo3-prompt-generator-sub000/internal/workspace"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	dbPath := cfg.DBPath()
	if dbPath == "" {
		dbPath = db.MemoryPath
	}
	logger.Info("starting veo3 prompt editor",
		"version", config.Version,
		"commit", config.GitCommit,
		"db_path", logging.SanitizePath(dbPath),
		"text_model", cfg.TextModel(),
	)
	if cfg.GeminiAPIKey() == "" {
		logger.Warn("no server API key configured, requests must carry their own key")
	} else {
		logger.Info("server API key configured", "key", logging.SanitizeToken(cfg.GeminiAPIKey()))
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	workspaces := workspace.NewService(
		workspace.NewRepository(database.Conn()),
		cfg.TotalDuration(),
		logging.WithComponent(logger, "workspace"),
	)

	client := llm.NewHTTPClient(
		cfg.GeminiBaseURL(),
		cfg.TextModel(),
		cfg.ImageModel(),
		cfg.LLMTimeout(),
		logging.WithComponent(logger, "llm"),
	)
	prompts := prompt.NewService(client, cfg.GeminiAPIKey(), logging.WithComponent(logger, "prompt"))

	apiServer := api.NewServer(api.ServerConfig{
		Addr:           cfg.Addr(),
		Workspaces:     workspaces,
		Prompts:        prompts,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
		StartTime:      startTime,
		Version:        config.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
