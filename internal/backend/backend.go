// Package backend selects and constructs the ledger store from configuration.
package backend

import (
	"fmt"
	"log/slog"
	"time"

	"grana/internal/config"
	"grana/internal/storage"
	"grana/internal/storage/memory"
	"grana/internal/storage/postgres"
	"grana/internal/storage/sqlite"
)

// Type represents the kind of persistence backing the ledger.
type Type string

const (
	MemoryBackend   Type = "memory"
	SQLiteBackend   Type = "sqlite"
	PostgresBackend Type = "postgres"
)

func (t Type) String() string { return string(t) }

// IsValid returns true if the backend type is valid.
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result contains the constructed store and its optional cleanup function.
type Result struct {
	Store   storage.LedgerStore
	Cleanup CleanupFunc
}

// Factory builds ledger stores from application configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create constructs the store named by cfg.DataBackend.
func (f *Factory) Create(cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	loc := cfg.Location()

	backendType := Type(cfg.DataBackend)
	switch backendType {
	case MemoryBackend:
		return f.createMemory(loc), nil
	case SQLiteBackend:
		return f.createSQLite(cfg, loc)
	case PostgresBackend:
		return f.createPostgres(cfg, loc)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}

func (f *Factory) createMemory(loc *time.Location) *Result {
	store := memory.NewStore(loc)
	f.logger.Info("Initialized memory backend")
	return &Result{Store: store, Cleanup: nil}
}

func (f *Factory) createSQLite(cfg *config.Config, loc *time.Location) (*Result, error) {
	if cfg.SQLiteDBPath == "" {
		return nil, fmt.Errorf("SQLITE_DB_PATH is required for sqlite backend")
	}

	store, err := sqlite.NewStore(cfg.SQLiteDBPath, loc)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *Factory) createPostgres(cfg *config.Config, loc *time.Location) (*Result, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for postgres backend")
	}

	store, err := postgres.NewStore(cfg.PostgresDSN, loc)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres store: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")
	return &Result{Store: store, Cleanup: store.Close}, nil
}
