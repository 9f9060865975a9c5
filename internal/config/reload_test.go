// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestConfigHolder_ReloadKeepsOldOnError(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	l := NewLoader(path)
	initial, err := l.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, l)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte(minimalYAML+"logLevel: debug\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, "debug", h.Get().LogLevel)
	assert.Equal(t, "debug", (<-ch).LogLevel)

	require.NoError(t, os.WriteFile(path, []byte(minimalYAML+"logLevel: chatty\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "debug", h.Get().LogLevel)
	assert.Empty(t, ch)
}

func TestConfigHolder_ListenerNeverBlocks(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	l := NewLoader(path)
	initial, err := l.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, l)
	h.RegisterListener(make(chan AppConfig))

	done := make(chan error, 1)
	go func() { done <- h.Reload(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reload blocked on listener")
	}
}

func TestConfigHolder_WatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := writeConfig(t, minimalYAML)
	l := NewLoader(path)
	initial, err := l.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, l)
	h.debounce = 10 * time.Millisecond
	ch := make(chan AppConfig, 4)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte(minimalYAML+"detector:\n  offlineMultiplier: 6\n"), 0o600))

	select {
	case cfg := <-ch:
		assert.Equal(t, 6, cfg.Detector.OfflineMultiplier)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after file write")
	}

	h.Stop()
	// Let any in-flight debounce timer run out.
	time.Sleep(50 * time.Millisecond)
}

func TestConfigHolder_WatcherDisabledWithoutPath(t *testing.T) {
	h := NewConfigHolder(Default(), NewLoader(""))
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}
