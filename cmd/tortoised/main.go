package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"tortoise-backend/config"
	"tortoise-backend/internal/api"
	"tortoise-backend/internal/db"
	"tortoise-backend/internal/jobs"
	"tortoise-backend/internal/kv"
	"tortoise-backend/internal/lease"
	"tortoise-backend/internal/logger"
	"tortoise-backend/internal/notification"
	"tortoise-backend/internal/poll"
	"tortoise-backend/internal/repo"
)

func main() {
	cfg := loadConfig()
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	devices, err := repo.New(ctx, store)
	if err != nil {
		slog.Error("failed to load device collection", "error", err)
		os.Exit(1)
	}
	recorder := lease.NewRecorder(store, devices)
	subs := notification.NewSubscriptionStore(store)
	slog.Info("data layer initialized", "driver", cfg.Database.Driver)

	var pushOptions *webpush.Options
	if cfg.Push.Enabled {
		if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
			slog.Error("push is enabled but VAPID keys are not configured")
			os.Exit(1)
		}
		pushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}

		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, subs, pushOptions)
		pool.Start(ctx)

		events, cancelWatch := devices.Watch()
		defer cancelWatch()
		go notification.NewNotifier(pool).Run(ctx, events)
	}

	go poll.NewService(&cfg.Sync, store, devices).Run(ctx)

	runner := jobs.NewRunner(store, devices, recorder)
	if err := runner.Start(&cfg.Jobs); err != nil {
		slog.Error("failed to start scheduled jobs", "error", err)
		os.Exit(1)
	}
	defer runner.Stop()

	handler := api.NewHandler(devices, recorder, subs, pushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, &cfg.Server),
	}

	go func() {
		slog.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server gracefully stopped")
}

func loadConfig() *config.Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			slog.Info("no config file found, using defaults")
			return config.Default()
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded", "path", configPath)
	return cfg
}

func openStore(cfg *config.Config) (kv.Store, error) {
	if cfg.Database.Driver == "memory" {
		return kv.NewMemory(), nil
	}
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, err
	}
	return kv.NewDatabase(gormDB), nil
}
