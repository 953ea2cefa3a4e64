package repository

import (
	"context"
	"testing"
	"time"

	"github.com/0xChaser/EasyBooking/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	repo := NewRedisStore(client)
	ctx := context.Background()

	t.Run("SetAndGetToken", func(t *testing.T) {
		require.NoError(t, repo.SetToken(ctx, "token:tg:1", "jwt-1", time.Hour))

		got, err := repo.GetToken(ctx, "token:tg:1")
		require.NoError(t, err)
		assert.Equal(t, "jwt-1", got)
		assert.True(t, s.Exists(tokenKeyPrefix+"token:tg:1"))
	})

	t.Run("GetMissingToken", func(t *testing.T) {
		got, err := repo.GetToken(ctx, "token:tg:999")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("TokenExpires", func(t *testing.T) {
		require.NoError(t, repo.SetToken(ctx, "token:tg:2", "jwt-2", time.Minute))
		s.FastForward(time.Minute + time.Second)

		got, err := repo.GetToken(ctx, "token:tg:2")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ClearToken", func(t *testing.T) {
		require.NoError(t, repo.SetToken(ctx, "token:tg:3", "jwt-3", time.Hour))
		require.NoError(t, repo.ClearToken(ctx, "token:tg:3"))

		got, _ := repo.GetToken(ctx, "token:tg:3")
		assert.Empty(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		userID := int64(789)
		limit := 2
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisStore(nil)
		_, err := repo.GetToken(ctx, "token")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("ServerDown", func(t *testing.T) {
		down, err := miniredis.Run()
		require.NoError(t, err)
		c := redis.NewClient(&redis.Options{Addr: down.Addr(), MaxRetries: -1})
		defer c.Close()
		down.Close()

		_, err = NewRedisStore(c).GetToken(ctx, "token")
		assert.Error(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("Close", func(t *testing.T) {
		assert.NoError(t, Close(client))
	})
}
