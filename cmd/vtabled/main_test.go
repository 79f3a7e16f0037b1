package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/docopt/docopt-go"
	"github.com/hupe1980/vtable"
	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/internal/config"
	"github.com/hupe1980/vtable/journal/filejournal"
	"github.com/hupe1980/vtable/journal/sqljournal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) docopt.Opts {
	t.Helper()
	opts, err := docopt.ParseArgs(usage, args, version)
	require.NoError(t, err)
	return opts
}

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := loadConfig(parse(t, "--listen=127.0.0.1:0", "--log-level=debug"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", cfg.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.StorageMemory, cfg.Storage.Kind)

	_, err = loadConfig(parse(t, "--log-level=chatty"))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestOpenJournal(t *testing.T) {
	ctx := context.Background()
	logger := vtable.NoopLogger().Logger

	t.Run("Memory", func(t *testing.T) {
		j, err := openJournal(ctx, config.Storage{Kind: config.StorageMemory}, logger)
		require.NoError(t, err)
		assert.IsType(t, docstore.NopJournal{}, j)
	})

	t.Run("File", func(t *testing.T) {
		dir := t.TempDir()
		cfg := config.Default().Storage
		cfg.Kind = config.StorageFile
		cfg.File.WALDir = filepath.Join(dir, "wal")
		cfg.File.Snapshots.Local.Dir = filepath.Join(dir, "snapshots")

		j, err := openJournal(ctx, cfg, logger)
		require.NoError(t, err)
		require.IsType(t, &filejournal.Journal{}, j)

		db, err := vtable.Open(ctx, vtable.WithJournal(j))
		require.NoError(t, err)
		_, err = db.CreateTable(ctx, vtable.NewTable{Name: "T"})
		require.NoError(t, err)
		require.NoError(t, db.Checkpoint(ctx))
		require.NoError(t, db.Close())

		assert.FileExists(t, filepath.Join(dir, "snapshots", filejournal.CurrentName))
	})

	t.Run("SQLite", func(t *testing.T) {
		cfg := config.Storage{
			Kind: config.StorageSQLite,
			SQL:  config.SQL{DSN: filepath.Join(t.TempDir(), "vtable.db"), TablePrefix: "t_"},
		}
		j, err := openJournal(ctx, cfg, logger)
		require.NoError(t, err)
		require.IsType(t, &sqljournal.Journal{}, j)
		require.NoError(t, j.Close())
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := openJournal(ctx, config.Storage{Kind: "tape"}, logger)
		assert.Error(t, err)
	})
}
