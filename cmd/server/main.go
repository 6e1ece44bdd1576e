package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/resumex/internal/api"
	"github.com/dgallion1/resumex/internal/config"
	"github.com/dgallion1/resumex/internal/pipeline"
	"github.com/dgallion1/resumex/internal/recordstore"
	"github.com/dgallion1/resumex/internal/schema"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	sc, err := schema.LoadOrDefault(cfg.SchemaPath)
	if err != nil {
		log.Error("load schema", "path", cfg.SchemaPath, "error", err)
		os.Exit(1)
	}
	log.Info("schema loaded", "path", cfg.SchemaPath, "sections", len(sc.Sections))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The record store is optional; without it records live only in job state.
	var store pipeline.RecordStore
	var rs *recordstore.Client
	if cfg.RecordStoreEnabled() {
		rs = recordstore.NewClient(cfg.RecordStoreURL, cfg.RecordStoreAPIKey)
		store = rs
	}

	orch := pipeline.NewOrchestrator(cfg, sc, store, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		if rs != nil {
			rs.Close()
		}
	}()

	log.Info("starting resumex", "port", cfg.Port, "strict", cfg.StrictValidation, "record_store", cfg.RecordStoreEnabled())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
