package repository

import (
	"context"
	"sync"
	"time"
)

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryStore keeps tokens for the lifetime of the process.
type MemoryStore struct {
	tokens     sync.Map
	rateLimits sync.Map
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (r *MemoryStore) GetToken(ctx context.Context, key string) (string, error) {
	val, ok := r.tokens.Load(key)
	if !ok {
		return "", nil
	}
	entry := val.(tokenEntry)
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		r.tokens.Delete(key)
		return "", nil
	}
	return entry.token, nil
}

// SetToken stores token under key; a non-positive ttl never expires.
func (r *MemoryStore) SetToken(ctx context.Context, key, token string, ttl time.Duration) error {
	entry := tokenEntry{token: token}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.tokens.Store(key, entry)
	return nil
}

func (r *MemoryStore) ClearToken(ctx context.Context, key string) error {
	r.tokens.Delete(key)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStore) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, ok := r.rateLimits.Load(userID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(userID, entry)
	return entry.count <= limit, nil
}
