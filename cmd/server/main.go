package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"blog/internal/app"
	"blog/internal/db"
	httpx "blog/internal/http"
	"blog/internal/images"
	"blog/internal/log"
	"blog/internal/metrics"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.NewStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatalw("Failed to open store", "error", err)
	}
	defer store.Close()

	imgs, err := images.New(afero.NewOsFs(), cfg.Images.Dir)
	if err != nil {
		logger.Fatalw("Failed to prepare image directory", "error", err)
	}

	m, metricsHandler, err := metrics.Setup("blog")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	srv, err := httpx.NewServer(store, imgs, cfg, logger, m, metricsHandler)
	app.Must(err)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("Blog server starting", "addr", server.Addr, "db", cfg.Database.Type)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Server failed", "error", err)
		}
	case <-ctx.Done():
		logger.Infow("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			return
		}
		logger.Infow("Server stopped gracefully")
	}
}
