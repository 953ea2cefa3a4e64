package dashboard

import (
	"context"
	"sync"

	"github.com/0xChaser/EasyBooking/internal/models"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	default:
		return "idle"
	}
}

// Fetcher loads a whole collection.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// ListView owns the fetch cycle of one collection. Items keep the server
// order. A failed fetch keeps the previous items and only notifies.
type ListView[T any] struct {
	fetch     Fetcher[T]
	resource  models.Resource
	loadError string
	deps      Deps

	mu      sync.Mutex
	items   []T
	phase   Phase
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	unwatch func()
}

func NewListView[T any](resource models.Resource, fetch Fetcher[T], loadError string, deps Deps) *ListView[T] {
	deps = deps.withDefaults()
	logger := deps.Logger.With().Str("list", string(resource)).Logger()
	deps.Logger = &logger
	return &ListView[T]{
		fetch:     fetch,
		resource:  resource,
		loadError: loadError,
		deps:      deps,
	}
}

// Mount starts the view: it fetches once and again on every version bump of
// its resource until Close or until ctx ends.
func (v *ListView[T]) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.ctx == nil {
		v.ctx, v.cancel = context.WithCancel(ctx)
		if v.deps.Versions != nil {
			v.unwatch = v.deps.Versions.Watch(string(v.resource), func(uint64) {
				_ = v.Refresh()
			})
		}
	}
	v.mu.Unlock()
	return v.Refresh()
}

// Refresh re-fetches the collection. A response that arrives after Close or
// after a newer Refresh started is discarded.
func (v *ListView[T]) Refresh() error {
	v.mu.Lock()
	if v.ctx == nil {
		v.mu.Unlock()
		return ErrNotMounted
	}
	v.gen++
	gen := v.gen
	ctx := v.ctx
	v.phase = PhaseLoading
	v.mu.Unlock()

	items, err := v.fetch(ctx)

	v.mu.Lock()
	if v.ctx != ctx || gen != v.gen {
		v.mu.Unlock()
		v.deps.Logger.Debug().Uint64("generation", gen).Msg("Discarding stale list response")
		return nil
	}
	v.phase = PhaseLoaded
	if err == nil {
		v.items = items
	}
	v.mu.Unlock()

	if err != nil {
		v.deps.failed(ctx, err, v.loadError)
		return err
	}
	v.deps.Logger.Debug().Int("count", len(items)).Msg("List loaded")
	return nil
}

// Items returns a copy of the current collection.
func (v *ListView[T]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]T(nil), v.items...)
}

func (v *ListView[T]) State() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

func (v *ListView[T]) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ctx != nil
}

// Close unmounts the view and cancels any in-flight fetch. The view may be
// mounted again.
func (v *ListView[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
	if v.unwatch != nil {
		v.unwatch()
	}
	v.ctx, v.cancel, v.unwatch = nil, nil, nil
	v.items = nil
	v.phase = PhaseIdle
}
