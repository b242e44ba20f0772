package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/peergrove/groupd/internal/api"
	"github.com/peergrove/groupd/internal/config"
	"github.com/peergrove/groupd/internal/metrics"
	"github.com/peergrove/groupd/internal/repository"
	"github.com/peergrove/groupd/internal/repository/memory"
	"github.com/peergrove/groupd/internal/repository/postgres"
	"github.com/peergrove/groupd/internal/service"
	"github.com/peergrove/groupd/pkg/logger"
)

func main() {
	// A missing .env file is fine; the environment itself may be complete.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogJSON)
	l.Info("Starting groupd...")

	var (
		groups   repository.GroupRepository
		requests repository.RequestRepository
		posts    repository.PostRepository
	)

	switch cfg.Store {
	case config.StorePostgres:
		db, err := config.NewDatabase(cfg, l)
		if err != nil {
			l.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(cfg.MigrationsPath); err != nil {
			l.Fatalf("Failed to run migrations: %v", err)
		}

		groups = postgres.NewGroupRepository(db.DB)
		requests = postgres.NewRequestRepository(db.DB)
		posts = postgres.NewPostRepository(db.DB)

	default:
		store := memory.New()
		groups, requests, posts = store, store, store
	}

	m := metrics.New()
	svc := service.New(l, m, groups, requests, posts)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	apiServer := api.NewServer(svc, l, m)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("groupd started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Errorf("HTTP server shutdown error: %v", err)
	}

	l.Info("groupd stopped")
}
