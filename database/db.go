package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type DB struct {
	*sqlx.DB
	Driver string
}

// New opens a SQLite file (dsn is a path) or a Postgres database (dsn is a URL).
func New(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		return newSQLite(dsn)
	case DriverPostgres:
		return newPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func newSQLite(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", dbPath)
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, Driver: DriverSQLite}, nil
}

func newPostgres(url string) (*DB, error) {
	db, err := sqlx.Open(DriverPostgres, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, Driver: DriverPostgres}, nil
}

// Migrate creates the schema. The DDL is shared by SQLite and Postgres;
// SQLite only parses columns declared exactly as TIMESTAMP.
func (db *DB) Migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sacrifice_animals (
			sacrifice_id TEXT PRIMARY KEY,
			sacrifice_no INTEGER UNIQUE NOT NULL,
			sacrifice_time TEXT NOT NULL DEFAULT '',
			share_price INTEGER NOT NULL,
			empty_share INTEGER NOT NULL DEFAULT 7 CHECK (empty_share BETWEEN 0 AND 7),
			notes TEXT NOT NULL DEFAULT '',
			last_edited_by TEXT NOT NULL DEFAULT '',
			last_edited_time TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS reservation_transactions (
			transaction_id TEXT PRIMARY KEY,
			sacrifice_id TEXT NOT NULL REFERENCES sacrifice_animals(sacrifice_id) ON DELETE CASCADE,
			share_count INTEGER NOT NULL CHECK (share_count BETWEEN 1 AND 7),
			status TEXT NOT NULL DEFAULT 'active',
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			last_edited_time TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS shareholders (
			shareholder_id TEXT PRIMARY KEY,
			shareholder_name TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			transaction_id TEXT NOT NULL,
			sacrifice_id TEXT NOT NULL REFERENCES sacrifice_animals(sacrifice_id),
			share_price INTEGER NOT NULL,
			delivery_type TEXT NOT NULL,
			delivery_location TEXT NOT NULL DEFAULT '',
			delivery_fee INTEGER NOT NULL DEFAULT 0,
			total_amount INTEGER NOT NULL,
			paid_amount INTEGER NOT NULL DEFAULT 0,
			remaining_payment INTEGER NOT NULL,
			sacrifice_consent BOOLEAN NOT NULL DEFAULT FALSE,
			contact_consent BOOLEAN NOT NULL DEFAULT FALSE,
			security_code TEXT NOT NULL,
			purchase_time TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			last_edited_by TEXT NOT NULL DEFAULT '',
			last_edited_time TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			notes TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS change_logs (
			event_id TEXT PRIMARY KEY,
			table_name TEXT NOT NULL,
			row_id TEXT NOT NULL,
			column_name TEXT NOT NULL DEFAULT '',
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			change_type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			change_owner TEXT NOT NULL DEFAULT '',
			changed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS stage_metrics (
			stage TEXT PRIMARY KEY,
			current_sacrifice_number INTEGER NOT NULL DEFAULT 0,
			avg_progress_duration DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'editor',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			last_used_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_transactions_active_expiry ON reservation_transactions(expires_at) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_shareholders_sacrifice ON shareholders(sacrifice_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shareholders_phone ON shareholders(phone_number)`,
		`CREATE INDEX IF NOT EXISTS idx_change_logs_row ON change_logs(table_name, row_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expires_at)`,

		// Every stage exists from the start
		`INSERT INTO stage_metrics (stage, current_sacrifice_number, avg_progress_duration)
		VALUES ('slaughter_stage', 0, 0), ('butcher_stage', 0, 0), ('delivery_stage', 0, 0)
		ON CONFLICT (stage) DO NOTHING`,
	}

	for _, query := range queries {
		if db.Driver == DriverSQLite {
			query = strings.ReplaceAll(query, " TIMESTAMPTZ", " TIMESTAMP")
		}
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
