package session

import (
	"fmt"
	"sync"

	"github.com/0xChaser/EasyBooking/internal/domain"
	"github.com/0xChaser/EasyBooking/internal/events"
)

// Key builds the token key for one principal under cookieName.
func Key(cookieName string, principal int64) string {
	return fmt.Sprintf("%s:%d", cookieName, principal)
}

// Registry holds one Store per principal, all sharing a TokenStore.
type Registry struct {
	auth       domain.Authenticator
	tokens     domain.TokenStore
	cookieName string
	opts       Options

	mu     sync.Mutex
	stores map[int64]*Store
}

func NewRegistry(auth domain.Authenticator, tokens domain.TokenStore, cookieName string, opts Options) *Registry {
	return &Registry{
		auth:       auth,
		tokens:     tokens,
		cookieName: cookieName,
		opts:       opts,
		stores:     make(map[int64]*Store),
	}
}

// Get returns the store for principal, creating it on first use. bus replaces
// the registry-wide bus for a newly created store when non-nil.
func (r *Registry) Get(principal int64, bus *events.EventBus) (store *Store, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[principal]; ok {
		return s, false
	}
	opts := r.opts
	if bus != nil {
		opts.Bus = bus
	}
	s := New(r.auth, r.tokens, Key(r.cookieName, principal), opts)
	r.stores[principal] = s
	return s, true
}

func (r *Registry) Remove(principal int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, principal)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
