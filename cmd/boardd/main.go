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

	"github.com/SherClockHolmes/webpush-go"
	logger "github.com/sirupsen/logrus"

	"cafe-board-backend/config"
	"cafe-board-backend/internal/api"
	"cafe-board-backend/internal/backend"
	"cafe-board-backend/internal/board"
	"cafe-board-backend/internal/channel"
	"cafe-board-backend/internal/db"
	"cafe-board-backend/internal/gesture"
	"cafe-board-backend/internal/model"
	"cafe-board-backend/internal/notification"
	"cafe-board-backend/internal/prep"
)

func main() {
	logger.SetFormatter(&logger.TextFormatter{FullTimestamp: true})

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Environment-only configuration, common in containers.
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Infof("configuration loaded (config file: %q)", configPath)

	if cfg.Backend.BaseURL == "" {
		logger.Fatal("backend.base_url must be configured")
	}
	if cfg.Channel.URL == "" {
		logger.Fatal("channel.url must be configured")
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Warning("VAPID keys are not configured; new-order push notifications are disabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := backend.NewClient(&cfg.Backend)
	store := board.NewStore(client, backend.OrderQuery{
		Status: model.StatusProcessing,
		Page:   1,
		Limit:  cfg.Board.PageSize,
	})

	ws := channel.NewWSClient(&cfg.Channel)
	prepTracker := prep.NewTracker(ws, cfg.Board.PrepTTL)
	gestures := gesture.NewTracker(store, cfg.Board.RemovalDelay, cfg.Board.ResetDelay)

	var notifier board.Notifier
	var pool *notification.WorkerPool
	if webpushOptions != nil {
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		notifier = pool
	}

	reconciler := board.NewReconciler(store, ws, prepTracker, gestures, notifier)
	reconciler.Start()
	go ws.Run(ctx)

	// Initial page load; the board stays empty but serviceable if the
	// backend is down, and the error travels to the screens for retry.
	go func() {
		if err := store.Refetch(ctx); err != nil {
			logger.Warningf("initial order fetch failed: %v", err)
		}
	}()

	handler := api.NewHandler(store, gestures, prepTracker, gormDB, webpushOptions, cfg.Board.PageSize)
	router := api.NewRouter(&cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received, stopping services...")

	reconciler.Stop()
	gestures.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Info("Server gracefully stopped")
}
