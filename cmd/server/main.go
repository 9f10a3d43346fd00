package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/sirupsen/logrus"

	"github.com/glasshq/glass-server/internal/api"
	"github.com/glasshq/glass-server/internal/billing"
	"github.com/glasshq/glass-server/internal/config"
	sqlstore "github.com/glasshq/glass-server/internal/storage/sql"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	if cfg.Database.Driver == "sqlite3" {
		dir := filepath.Dir(strings.SplitN(cfg.Database.DSN, "?", 2)[0])
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.WithError(err).Fatal("failed to create database directory")
			}
		}
	}

	store, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize storage")
	}
	defer store.Close()

	var verifier *oidc.IDTokenVerifier
	if cfg.Auth.Issuer != "" {
		provider, err := oidc.NewProvider(context.Background(), cfg.Auth.Issuer)
		if err != nil {
			logger.WithError(err).Fatal("failed to discover identity provider")
		}
		verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID})
		logger.WithField("issuer", cfg.Auth.Issuer).Info("token verification enabled")
	} else {
		logger.Warn("no identity provider configured, only API keys are accepted")
	}

	var billingService *billing.Service
	if cfg.Stripe.SecretKey != "" {
		billingService = billing.New(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, store, logger)
		logger.Info("billing enabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Store:          store,
		Logger:         logger,
		Verifier:       verifier,
		Billing:        billingService,
		BootstrapKey:   cfg.Auth.BootstrapKey,
		AdminEmails:    cfg.GetAdminEmails(),
		AllowedOrigins: cfg.GetAllowedOrigins(),
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("forced shutdown")
	}
}
