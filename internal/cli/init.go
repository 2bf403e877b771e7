// Package cli provides common initialization shared by cmd/ledger and
// cmd/ledger-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"lawnledger/internal/backend"
	"lawnledger/internal/config"
	"lawnledger/internal/ledger"
	applog "lawnledger/internal/log"
)

// SetupLogger builds the process logger at the given level and installs it
// as the slog default.
func SetupLogger(level string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenLedger creates the configured backend and hydrates the ledger from it.
// The caller must run the returned backend's Cleanup when done.
func OpenLedger(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*ledger.Ledger, *backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	res, err := backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend)).CreateBackend(ctx, bc)
	if err != nil {
		return nil, nil, fmt.Errorf("create backend: %w", err)
	}

	l, err := ledger.Open(ctx, res.Store,
		ledger.WithGapFill(cfg.ChartFillGaps),
		ledger.WithLogger(logger.WithComponent(applog.ComponentLedger)))
	if err != nil {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	return l, res, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
