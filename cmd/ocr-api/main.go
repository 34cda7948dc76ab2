package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lehigh-university-libraries/ocr-api/internal/config"
	"github.com/lehigh-university-libraries/ocr-api/internal/engine"
	"github.com/lehigh-university-libraries/ocr-api/internal/handlers"
	"github.com/lehigh-university-libraries/ocr-api/internal/services/ocr"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Initializing OCR engine...")
	start := time.Now()
	eng, err := engine.NewTesseract(engine.TesseractConfig{
		Concurrency: cfg.EngineConcurrency,
		Languages:   cfg.EngineLanguages,
	})
	if err != nil {
		slog.Error("OCR engine initialization failed", "error", err)
		os.Exit(1)
	}
	slog.Info("OCR engine loaded",
		"model", eng.Model(),
		"concurrency", cfg.EngineConcurrency,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if cfg.WarmupEnabled && cfg.WarmupImagePath != "" {
		if _, err := os.Stat(cfg.WarmupImagePath); err == nil {
			slog.Info("Warming up OCR engine...", "image", cfg.WarmupImagePath)
			warmupCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
			if err := eng.Warmup(warmupCtx, cfg.WarmupImagePath); err != nil {
				slog.Warn("Engine warmup failed", "error", err)
			} else {
				slog.Info("Engine warmup completed")
			}
			cancel()
		} else {
			slog.Warn("Warmup image not found, skipping warmup", "path", cfg.WarmupImagePath)
		}
	}

	handler := handlers.New(ocr.NewService(eng), eng, cfg)
	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     handlers.LogRequests(handler.Routes()),
		IdleTimeout: cfg.KeepAliveTimeout,
	}

	go func() {
		slog.Info("OCR service listening", "addr", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	slog.Info("Received signal, shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	if err := eng.Close(); err != nil {
		slog.Error("Engine close error", "error", err)
	} else {
		slog.Info("OCR engine resources released")
	}
}

func setupLogging(level, format string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
