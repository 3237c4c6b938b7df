package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirerelay/internal/config"
)

func TestOpenStoreDrivers(t *testing.T) {
	dir := t.TempDir()

	st, err := openStore(config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(dir, "relay.db")})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = openStore(config.StorageConfig{Driver: config.DriverBadger, BadgerDir: filepath.Join(dir, "badger")})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = openStore(config.StorageConfig{Driver: "mysql"})
	require.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "relay.db")
	logger := zerolog.Nop()

	application, err := New(&cfg, &logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
