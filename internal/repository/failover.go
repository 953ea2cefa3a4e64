package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xChaser/EasyBooking/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStore serves from primary until it errors, then from fallback,
// retrying primary once per recovery interval.
//
// A token that could not be cleared from primary is remembered as stale and
// is never read back from primary; the clear is retried on the next read.
type FailoverStore struct {
	primary  domain.SessionRepository
	fallback domain.SessionRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
	stale     map[string]struct{}
}

func NewFailoverStore(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		stale:    make(map[string]struct{}),
	}
}

func (r *FailoverStore) isStale(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stale[key]
	return ok
}

func (r *FailoverStore) setStale(key string, stale bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stale {
		r.stale[key] = struct{}{}
	} else {
		delete(r.stale, key)
	}
}

func (r *FailoverStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session store failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverStore) recovered() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("Primary session store recovered")
	}
}

// GetToken prefers primary. A primary miss is answered from fallback, which
// holds tokens written while primary was down.
func (r *FailoverStore) GetToken(ctx context.Context, key string) (string, error) {
	if r.usePrimary() {
		token, err := r.readPrimary(ctx, key)
		if err == nil {
			r.recovered()
			if token != "" {
				return token, nil
			}
		} else {
			r.markDown(err)
		}
	}
	return r.fallback.GetToken(ctx, key)
}

func (r *FailoverStore) readPrimary(ctx context.Context, key string) (string, error) {
	if r.isStale(key) {
		if err := r.primary.ClearToken(ctx, key); err != nil {
			return "", err
		}
		r.setStale(key, false)
		r.logger.Info().Str("key", key).Msg("Stale token removed from primary session store")
	}
	return r.primary.GetToken(ctx, key)
}

func (r *FailoverStore) SetToken(ctx context.Context, key, token string, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.SetToken(ctx, key, token, ttl)
		if err == nil {
			r.recovered()
			r.setStale(key, false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetToken(ctx, key, token, ttl)
}

// ClearToken removes the token from both stores. Primary is tried even while
// marked down; if it fails the key is marked stale so the old token cannot
// come back once primary recovers.
func (r *FailoverStore) ClearToken(ctx context.Context, key string) error {
	fallbackErr := r.fallback.ClearToken(ctx, key)

	if err := r.primary.ClearToken(ctx, key); err != nil {
		r.setStale(key, true)
		if !r.isDown.Load() {
			r.markDown(err)
		} else {
			r.logger.Warn().Err(err).Str("key", key).Msg("Token kept as stale in primary session store")
		}
	} else {
		r.setStale(key, false)
		r.recovered()
	}

	if fallbackErr != nil {
		return fmt.Errorf("failed to clear fallback token: %w", fallbackErr)
	}
	return nil
}

func (r *FailoverStore) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.recovered()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
