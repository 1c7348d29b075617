package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okhta/vidlink/config"
	"github.com/okhta/vidlink/internal/adapter/cache"
	"github.com/okhta/vidlink/internal/adapter/extractor/ytdlp"
	HTTPAdapter "github.com/okhta/vidlink/internal/adapter/http"
	sqlitestore "github.com/okhta/vidlink/internal/adapter/storage/sqlite"
	"github.com/okhta/vidlink/internal/adapter/userplan"
	"github.com/okhta/vidlink/internal/infrastructure/logger"
	"github.com/okhta/vidlink/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}

	logger.Info.Printf("starting vidlink on port %d, workers=%d", cfg.Port, cfg.Workers)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error.Printf("failed to create data directory: %v", err)
		os.Exit(1)
	}

	store, err := sqlitestore.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error.Printf("failed to create store: %v", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	jobQueue := sqlitestore.NewJobQueue(store, cfg.QueueVisibility)
	dedupCache := cache.NewDedupCache()
	gateStore := cache.NewGateStore()
	extractor := ytdlp.NewExtractor(cfg.YtDlpPath, cfg.CookiesFile, cfg.ExtractTimeout)
	plans := userplan.NewStaticResolver(cfg.UserPlans, cfg.PremiumPlans)
	eventBus := service.NewEventBus()

	jobSvc := service.NewJobService(store, jobQueue, dedupCache, gateStore, plans, cfg.DedupTTL, cfg.GateTokenTTL)

	// Worker pool for async metadata extraction
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	workerPool := service.NewWorkerPool(jobQueue, store, extractor, eventBus, cfg.PremiumCutoff, cfg.Workers)
	workerPool.Start(workerCtx)

	// Retention sweep: expired jobs and their leftover queue tasks
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				n, err := store.DeleteExpired(workerCtx, time.Now())
				if err != nil {
					logger.Error.Printf("retention sweep failed: %v", err)
				} else if n > 0 {
					logger.Info.Printf("retention sweep removed %d expired jobs", n)
				}
			}
		}
	}()

	server := HTTPAdapter.NewServer(jobSvc, eventBus)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // stream proxy can run long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info.Printf("received %s, shutting down", sig)

		// Stop accepting new requests
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}

		// Stop workers; unacked tasks become visible again on restart
		workerCancel()

		logger.Info.Printf("shutdown complete")
	}()

	logger.Info.Printf("server listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error.Printf("server failed: %v", err)
		os.Exit(1)
	}
}
