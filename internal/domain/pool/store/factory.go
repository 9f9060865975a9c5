// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"fmt"
)

// Backend names accepted by OpenStore.
const (
	BackendMemory = "memory"
	BackendSqlite = "sqlite"
	BackendBadger = "badger"
)

// OpenStore creates a Store for the configured backend. For sqlite, path is
// the database file; for badger it is the data directory.
func OpenStore(backend, path string) (Store, error) {
	if backend == "" {
		backend = BackendSqlite
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSqlite:
		return NewSqliteStore(path)
	case BackendBadger:
		return OpenBadgerStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
