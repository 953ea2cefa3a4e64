package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "cookies.db")
	logger := zerolog.Nop()
	store, err := NewSQLiteStore(path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestSQLiteStore(t *testing.T) {
	store, path := setupSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	assert.FileExists(t, path)

	t.Run("SetAndGetToken", func(t *testing.T) {
		require.NoError(t, store.SetToken(ctx, "token", "jwt", 7*24*time.Hour))

		got, err := store.GetToken(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "jwt", got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.SetToken(ctx, "token", "jwt-2", time.Hour))

		got, err := store.GetToken(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "jwt-2", got)
	})

	t.Run("Missing", func(t *testing.T) {
		got, err := store.GetToken(ctx, "absent")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Expired", func(t *testing.T) {
		require.NoError(t, store.SetToken(ctx, "old", "jwt-old", time.Hour))
		now = now.Add(2 * time.Hour)

		got, err := store.GetToken(ctx, "old")
		require.NoError(t, err)
		assert.Empty(t, got)

		var count int
		require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM cookies WHERE name = 'old'`).Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.SetToken(ctx, "token", "jwt", time.Hour))
		require.NoError(t, store.ClearToken(ctx, "token"))

		got, _ := store.GetToken(ctx, "token")
		assert.Empty(t, got)
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	store, path := setupSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetToken(ctx, "token", "persisted", time.Hour))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetToken(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}
