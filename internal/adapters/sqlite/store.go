package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"paperTrader/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store implements the ports.StateStore interface using SQLite. The ledger
// state is kept as a single snapshot row that every save replaces, so a load
// after restart always sees the last successfully committed state.
type Store struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite state store.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewStore creates a new SQLite state store instance.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite store")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/paper_trader.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	// Open database connection, WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{db: db, logger: cfg.Logger}
	if err := store.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite store initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite state store ready", map[string]interface{}{"path": dbPath})

	return store, nil
}

// initializeSchema creates the snapshot table if it doesn't exist.
func (s *Store) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS ledger_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Save replaces the snapshot row with the given serialized state.
func (s *Store) Save(ctx context.Context, state []byte) error {
	const query = `
	INSERT INTO ledger_state (id, payload, updated_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: failed to save ledger snapshot: %v", ports.ErrPersistenceFailed, err)
	}
	s.logger.Debug(ctx, "Ledger snapshot saved", map[string]interface{}{"bytes": len(state)})
	return nil
}

// Load returns the latest snapshot, or nil when nothing has been saved yet.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	const query = `SELECT payload FROM ledger_state WHERE id = 1`

	var payload []byte
	err := s.db.QueryRowContext(ctx, query).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug(ctx, "No ledger snapshot found, starting empty")
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to load ledger snapshot: %v", ports.ErrPersistenceFailed, err)
	}
	return payload, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		s.logger.Info(context.Background(), "Closing SQLite state store")
		return s.db.Close()
	}
	return nil
}

// Compile-time interface check.
var _ ports.StateStore = (*Store)(nil)
