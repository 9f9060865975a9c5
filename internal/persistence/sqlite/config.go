// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sqlite opens pool databases with the pragmas every connection needs.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

// Config defines SQLite connection parameters.
type Config struct {
	BusyTimeout     time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	Synchronous     string // NORMAL or FULL
}

// DefaultConfig returns the configuration used by the pool store.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:     5 * time.Second,
		MaxOpenConns:    8,
		ConnMaxLifetime: time.Hour,
		Synchronous:     "NORMAL",
	}
}

// DSN builds the modernc DSN. Pragmas go into the DSN so that every pooled
// connection gets them, not just the first.
func (c Config) DSN(dbPath string) string {
	sync := c.Synchronous
	if sync == "" {
		sync = "NORMAL"
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(%s)&_pragma=foreign_keys(ON)",
		dbPath, c.BusyTimeout.Milliseconds(), sync)
}

// Open initializes a SQLite connection pool in WAL mode.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}

	db, err := sql.Open("sqlite", cfg.DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	return db, nil
}
