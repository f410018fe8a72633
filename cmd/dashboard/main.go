package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/config"
	"modmail-bridge/internal/dashboard"
	"modmail-bridge/internal/webhook"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.ValidateDashboard(); err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	api := backend.New(cfg.BackendURL, cfg.BackendTimeout(), logger)
	dash := dashboard.New(dashboard.Deps{
		Config:   cfg,
		Logger:   logger,
		API:      api,
		Notifier: webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.BackendTimeout()),
	})

	server := &http.Server{
		Addr:              cfg.Dashboard.Addr,
		Handler:           dash.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("dashboard listening", zap.String("addr", cfg.Dashboard.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("dashboard server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}
