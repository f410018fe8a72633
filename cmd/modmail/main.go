package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"modmail-bridge/internal/audit"
	"modmail-bridge/internal/backend"
	"modmail-bridge/internal/bot"
	"modmail-bridge/internal/config"
	"modmail-bridge/internal/pending"
	"modmail-bridge/internal/webhook"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.ValidateBot(); err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	var store pending.Store = pending.NewMemoryStore()
	if cfg.Pending.DSN != "" {
		sqlStore, err := pending.Open(cfg.Pending.DSN)
		if err != nil {
			logger.Fatal("pending store init failed", zap.Error(err))
		}
		if err := sqlStore.Migrate(); err != nil {
			logger.Fatal("pending migrations failed", zap.Error(err))
		}
		store = sqlStore
	}
	defer store.Close()

	api := backend.New(cfg.BackendURL, cfg.BackendTimeout(), logger)
	auditLogger := audit.NewLogger(logger)

	botSvc, err := bot.New(bot.Deps{
		Config:  cfg,
		Logger:  logger,
		API:     api,
		Pending: store,
		Audit:   auditLogger,
	})
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	server := &http.Server{
		Addr:              cfg.Webhook.Addr,
		Handler:           webhook.NewServer(botSvc, cfg.Webhook.Secret, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("webhook server listening", zap.String("addr", cfg.Webhook.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("webhook server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("webhook server shutdown failed", zap.Error(err))
	}
	if err := botSvc.Close(ctx); err != nil {
		logger.Warn("bot shutdown failed", zap.Error(err))
	}
}
