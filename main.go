package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"digitalstore/internal/config"
	"digitalstore/internal/db"
	httpapi "digitalstore/internal/http"
	"digitalstore/internal/logging"
	"digitalstore/internal/payments"
	"digitalstore/internal/services"
	"digitalstore/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema migration failed")
	}

	var checkout services.CheckoutClient
	if cfg.StripeSecretKey != "" {
		checkout = payments.NewStripeClient(cfg.StripeSecretKey, cfg.StripeCurrency)
	} else {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set, checkout disabled")
	}

	st := store.New(pool)
	svc := services.New(cfg, logger, st.Stores(), checkout)
	server := httpapi.NewServer(svc, cfg, logger)

	httpServer := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
