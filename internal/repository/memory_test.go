package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	repo := NewMemoryStore()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("SetAndGetToken", func(t *testing.T) {
		require.NoError(t, repo.SetToken(ctx, "token", "abc", time.Hour))

		got, err := repo.GetToken(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "abc", got)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		require.NoError(t, repo.SetToken(ctx, "short", "xyz", time.Minute))
		now = now.Add(time.Minute)

		got, err := repo.GetToken(ctx, "short")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("NoExpiry", func(t *testing.T) {
		require.NoError(t, repo.SetToken(ctx, "forever", "v", 0))
		now = now.Add(365 * 24 * time.Hour)

		got, _ := repo.GetToken(ctx, "forever")
		assert.Equal(t, "v", got)
	})

	t.Run("ClearToken", func(t *testing.T) {
		require.NoError(t, repo.SetToken(ctx, "token", "abc", time.Hour))
		require.NoError(t, repo.ClearToken(ctx, "token"))

		got, _ := repo.GetToken(ctx, "token")
		assert.Empty(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		userID := int64(456)
		allowed, _ := repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.False(t, allowed)

		now = now.Add(time.Second + 10*time.Millisecond)
		allowed, _ = repo.CheckRateLimit(ctx, userID, 2, time.Second)
		assert.True(t, allowed)
	})
}
