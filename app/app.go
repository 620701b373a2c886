// Package app is the composition root: it wires configuration, logging,
// storage, the authentication gate, and the purchase ledger into one
// object with an explicit open/close lifecycle. The UI shell embedding
// this module holds a single App and calls its services directly.
package app

import (
	"fmt"

	"github.com/joho/godotenv"

	"defesa/auth"
	"defesa/config"
	"defesa/ledger"
	applog "defesa/log"
	"defesa/storage"
)

type App struct {
	Config *config.Config
	Logger *applog.Logger
	Auth   *auth.Service
	Ledger *ledger.Service

	repo *storage.SQLiteRepository
}

// Open loads the optional .env file, validates configuration, opens the
// database, and constructs the services. Callers own the returned App
// and must Close it.
func Open() (*App, error) {
	// Optional in production; useful for local development.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return OpenWith(cfg)
}

// OpenWith builds an App from an explicit configuration. Used by tests
// and by hosts that manage configuration themselves.
func OpenWith(cfg *config.Config) (*App, error) {
	logger := applog.New(applog.Config{
		Level:     cfg.LogLevel,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	authSvc := auth.NewService(repo, repo, cfg.BcryptCost, logger)
	ledgerSvc := ledger.NewService(repo, authSvc, cfg.HistoryWindow, logger)

	logger.Info("application core initialized",
		applog.FieldOperation, applog.OpStartup,
		"db_path", cfg.SQLiteDBPath)

	return &App{
		Config: cfg,
		Logger: logger,
		Auth:   authSvc,
		Ledger: ledgerSvc,
		repo:   repo,
	}, nil
}

// Close releases the database. Safe to call once the UI shell shuts down.
func (a *App) Close() error {
	a.Logger.Info("application core closing",
		applog.FieldOperation, applog.OpShutdown)
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}
