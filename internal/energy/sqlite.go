package energy

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const (
	schemaVersion      = 1
	defaultBusyTimeout = 5000 // ms

	// ledgerRowID pins the single ledger row.
	ledgerRowID = 1
)

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ledger (
		id              INTEGER PRIMARY KEY CHECK (id = 1),
		current         REAL    NOT NULL,
		max             REAL    NOT NULL,
		regen_per_hour  REAL    NOT NULL,
		last_update_ms  INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS spends (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		tool    TEXT    NOT NULL,
		cost    REAL    NOT NULL,
		at_ms   INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_spends_at ON spends(at_ms)`,
}

// SQLiteStore is a Store backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the energy database at path. The
// database uses WAL mode, a 5 s busy timeout, and a single connection
// (SQLite serialises writes). The schema is migrated automatically.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("energy: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("energy: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("energy: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("energy: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// migrate creates or updates the database schema to the latest version.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("energy: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("energy: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("energy: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("energy: record schema version: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load implements Store.
func (s *SQLiteStore) Load() (State, bool, error) {
	var (
		state  State
		lastMs int64
	)
	err := s.db.QueryRowContext(context.TODO(), `
		SELECT current, max, regen_per_hour, last_update_ms
		FROM ledger WHERE id = ?`, ledgerRowID,
	).Scan(&state.Current, &state.Max, &state.RegenPerHour, &lastMs)
	if err == sql.ErrNoRows {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("energy: load ledger: %w", err)
	}
	state.LastUpdate = time.UnixMilli(lastMs)
	return state, true, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(state State) error {
	_, err := s.db.ExecContext(context.TODO(), `
		INSERT OR REPLACE INTO ledger (id, current, max, regen_per_hour, last_update_ms)
		VALUES (?, ?, ?, ?, ?)`,
		ledgerRowID, state.Current, state.Max, state.RegenPerHour,
		state.LastUpdate.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("energy: save ledger: %w", err)
	}
	return nil
}

// AppendSpend implements Store.
func (s *SQLiteStore) AppendSpend(spend Spend) error {
	_, err := s.db.ExecContext(context.TODO(), `
		INSERT INTO spends (tool, cost, at_ms) VALUES (?, ?, ?)`,
		spend.Tool, spend.Cost, spend.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("energy: append spend: %w", err)
	}
	return nil
}

// History implements Store.
func (s *SQLiteStore) History(limit int) ([]Spend, error) {
	query := `SELECT tool, cost, at_ms FROM spends ORDER BY at_ms DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(context.TODO(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("energy: query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var spends []Spend
	for rows.Next() {
		var (
			spend Spend
			atMs  int64
		)
		if err := rows.Scan(&spend.Tool, &spend.Cost, &atMs); err != nil {
			return nil, fmt.Errorf("energy: scan spend: %w", err)
		}
		spend.At = time.UnixMilli(atMs)
		spends = append(spends, spend)
	}
	return spends, rows.Err()
}

// PruneSpends implements Store.
func (s *SQLiteStore) PruneSpends(before time.Time) (int, error) {
	res, err := s.db.ExecContext(context.TODO(),
		"DELETE FROM spends WHERE at_ms < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("energy: prune spends: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("energy: rows affected: %w", err)
	}
	return int(n), nil
}
