package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lenshq/pagelens/api"
	"github.com/lenshq/pagelens/browser"
	"github.com/lenshq/pagelens/config"
	"github.com/lenshq/pagelens/content"
	"github.com/lenshq/pagelens/fetch"
	"github.com/lenshq/pagelens/llm"
	"github.com/lenshq/pagelens/pipeline"
	"github.com/lenshq/pagelens/store"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pagelens starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Initialise browser manager (launches Chromium) ───────────
	mgr, err := browser.NewManager(cfg.Browser, cfg.Session)
	if err != nil {
		slog.Error("failed to initialise browser manager", "error", err)
		os.Exit(1)
	}
	defer mgr.Close()

	// ── 4. Initialise inference client and pipeline ─────────────────
	llmClient := llm.NewClient(&http.Client{Timeout: cfg.LLM.Timeout}, cfg.LLM.BaseURL, cfg.LLM.APIKey)
	pipe := pipeline.New(mgr, llmClient, cfg.LLM)

	// ── 4b. Link-analysis collaborators ─────────────────────────────
	fetcher := fetch.NewFetcher(cfg.Browser.DefaultProxy)
	distiller := content.NewDistiller()

	// ── 4c. Feedback store ──────────────────────────────────────────
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error("failed to open feedback store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(mgr, pipe, fetcher, distiller, llmClient, st, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// mgr.Close() runs via defer — drains page pool and kills Chrome.
	slog.Info("pagelens stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
