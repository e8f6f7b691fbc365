package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genesis-media/genesis/internal/api"
	"github.com/genesis-media/genesis/internal/config"
	"github.com/genesis-media/genesis/internal/db"
	"github.com/genesis-media/genesis/internal/engines"
	"github.com/genesis-media/genesis/internal/logging"
	"github.com/genesis-media/genesis/internal/media"
	"github.com/genesis-media/genesis/internal/pipeline"
	"github.com/genesis-media/genesis/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ArtifactRoot(), 0755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting genesis", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}
	fmt.Printf("API URL:    http://127.0.0.1:%d\n", cfg.Port())
	fmt.Printf("Auth Token: %s\n", authToken)

	engineCfg := engines.DefaultConfig(cfg.DataDir(), logger)
	engineCfg.PythonPath = cfg.EnginesPython()
	engineCfg.ModuleName = cfg.EnginesModule()
	engineCfg.TranscribeTimeout = cfg.EnginesTimeoutTranscribe()
	engineCfg.DetectTimeout = cfg.EnginesTimeoutDetect()
	engineCfg.CaptionTimeout = cfg.EnginesTimeoutCaption()

	eng, err := engines.New(engineCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engines: %w", err)
	}

	ffmpeg := media.NewCLIFFmpeg(cfg.FFmpegBinary(), cfg.FFprobeBinary(), logger)

	orchestrator := pipeline.NewOrchestrator(repo, eng, eng, eng, ffmpeg, cfg.ArtifactRoot(), logger)
	runs := api.NewRunManager(orchestrator, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Repository: repo,
		Runs:       runs,
		FFmpeg:     ffmpeg,
		Logger:     logger,
		StartTime:  startTime,
		Version:    config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
