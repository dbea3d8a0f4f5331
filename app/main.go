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

	"github.com/sirupsen/logrus"

	"example.com/cartstore/app/internal/config"
	"example.com/cartstore/app/internal/infra/logging"
	"example.com/cartstore/app/internal/infra/persistence"
	"example.com/cartstore/app/internal/infra/security"
	"example.com/cartstore/app/internal/infra/telemetry"
	apihttp "example.com/cartstore/app/internal/interface/http"
	cartuc "example.com/cartstore/app/internal/usecase/cart"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.WithError(err).Fatal("cartstore stopped")
	}
}

// run serves until ctx is cancelled or the server fails. Deferred cleanup
// always runs before it returns.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("initialize tracer provider: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("error shutting down tracer provider")
		}
	}()

	slots, closeSlots, err := persistence.Open(ctx, persistence.Options{
		Driver:        cfg.Driver,
		DSN:           cfg.DSN,
		RedisAddr:     cfg.RedisAddr,
		File:          cfg.File,
		RedisAttempts: 30,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("open cart storage (driver %q): %w", cfg.Driver, err)
	}
	defer func() {
		if err := closeSlots(); err != nil {
			log.WithError(err).Warn("error closing cart storage")
		}
	}()

	cartSvc := cartuc.NewService(slots,
		cartuc.WithNamespace(cfg.Namespace),
		cartuc.WithLogger(log),
	)

	deps := apihttp.Dependencies{
		CartService:    cartSvc,
		Logger:         log,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if cfg.JWTSecret != "" {
		deps.TokenService = security.NewJWTService(cfg.JWTSecret, cfg.JWTExpiration)
	} else {
		log.Warn("JWT_SECRET is not set, cart API is open")
	}
	api := apihttp.NewAPI(deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":   cfg.Port,
			"driver": cfg.Driver,
			"slot":   cartSvc.Key(),
		}).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("received shutdown signal, initiating graceful shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
