// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesWALPragma(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pool.sqlite")

	db, err := Open(dbPath, DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	_, err := Open("", DefaultConfig())
	require.Error(t, err)
}

func TestVerifyIntegrity_HealthyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "healthy.sqlite")

	db, err := Open(dbPath, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, data TEXT)")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err = db.Exec("INSERT INTO t (data) VALUES (?)", strings.Repeat("x", 64))
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	for _, mode := range []VerifyMode{VerifyQuick, VerifyFull} {
		issues, err := VerifyIntegrity(context.Background(), dbPath, mode)
		require.NoError(t, err, "mode %s", mode)
		assert.Nil(t, issues, "mode %s", mode)
	}
}

func TestParseVerifyMode(t *testing.T) {
	m, err := ParseVerifyMode("")
	require.NoError(t, err)
	assert.Equal(t, VerifyQuick, m)

	m, err = ParseVerifyMode("FULL")
	require.NoError(t, err)
	assert.Equal(t, VerifyFull, m)

	_, err = ParseVerifyMode("deep")
	assert.Error(t, err)
}
