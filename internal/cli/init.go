// Package cli provides common initialization shared by cmd/finanzas,
// cmd/finanzas-worker and cmd/finanzasctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finanzas/internal/backend"
	"finanzas/internal/cache"
	"finanzas/internal/config"
	"finanzas/internal/log"
	"finanzas/internal/services"
	gsheet "finanzas/internal/sheets/google"
)

const reportCacheSize = 256

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    out,
	})
	if err != nil {
		logger.Warn("Unknown log level, using info", log.FieldError, err)
	}
	log.SetDefault(logger)
	return logger
}

// LoadConfig reads .env files and the environment, then validates.
func LoadConfig() (*config.Config, error) {
	config.LoadDotEnv()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig is LoadConfig that exits the process on failure.
func MustLoadConfig() *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend opens the configured store and, when AMQP is configured, the
// event publisher.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.Logger).CreateBackend(ctx, bc)
}

// Ledger is a LedgerService plus the background work it needs stopped.
type Ledger struct {
	*services.LedgerService
	caches *cache.Manager
}

// Close stops the report cache cleanup.
func (l *Ledger) Close() {
	if l.caches != nil {
		l.caches.Stop()
	}
}

// NewLedger wires a LedgerService over the backend with the configured funds
// policy, report cache and event publisher.
func NewLedger(cfg *config.Config, be *backend.BackendResult) (*Ledger, error) {
	policy, err := services.ParseFundsPolicy(cfg.FundsCheckKinds)
	if err != nil {
		return nil, fmt.Errorf("parse funds policy: %w", err)
	}
	opts := []services.Option{services.WithFundsPolicy(policy)}
	if be.Publisher != nil {
		opts = append(opts, services.WithEventPublisher(be.Publisher))
	}

	l := &Ledger{}
	if cfg.ReportCacheTTL > 0 {
		reports := cache.NewLRUCache[services.Report](reportCacheSize, cfg.ReportCacheTTL)
		l.caches = cache.NewManager()
		l.caches.Register(reports)
		l.caches.StartCleanup(cfg.ReportCacheTTL)
		opts = append(opts, services.WithReportCache(reports))
	}
	l.LedgerService = services.NewLedgerService(be.Store, be.Store, opts...)
	return l, nil
}

// OpenSheetsMirror connects to the configured spreadsheet.
func OpenSheetsMirror(ctx context.Context, cfg *config.Config) (*gsheet.Client, error) {
	return gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ShutdownContext bounds graceful shutdown work.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
