package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/0xChaser/EasyBooking/internal/domain"
	"github.com/0xChaser/EasyBooking/internal/events"
	"github.com/0xChaser/EasyBooking/internal/metrics"
	"github.com/0xChaser/EasyBooking/internal/models"

	"github.com/rs/zerolog"
)

// Reasons attached to session_changed events.
const (
	ReasonInit    = "init"
	ReasonLogin   = "login"
	ReasonLogout  = "logout"
	ReasonRefresh = "refresh"
	ReasonExpired = "expired"
)

// ErrNotAuthenticated is returned when an identity check finds no usable token.
var ErrNotAuthenticated = errors.New("not authenticated")

// State is a snapshot of the session.
type State struct {
	User    *models.User
	Loading bool
}

func (s State) Authenticated() bool {
	return s.User != nil
}

type Options struct {
	// TTL is the lifetime of the stored token. Zero keeps it until logout.
	TTL    time.Duration
	Bus    *events.EventBus
	Logger *zerolog.Logger
}

// Store owns the bearer token and the user it resolves to.
//
// Identity checks are not coalesced. Each check takes a ticket and only the
// most recently started one may commit; login and logout invalidate every
// outstanding ticket. A stale result is dropped together with its side effects.
type Store struct {
	auth   domain.Authenticator
	tokens domain.TokenStore
	key    string
	ttl    time.Duration
	bus    *events.EventBus
	logger *zerolog.Logger

	mu          sync.Mutex
	state       State
	initialized bool
	seq         uint64
	subs        map[int]func(State)
	nextSub     int
}

// New creates a store reading its token from tokens under key. The store
// reports Loading until the first identity check completes.
func New(auth domain.Authenticator, tokens domain.TokenStore, key string, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	sub := logger.With().Str("session", key).Logger()
	return &Store{
		auth:   auth,
		tokens: tokens,
		key:    key,
		ttl:    opts.TTL,
		bus:    opts.Bus,
		logger: &sub,
		state:  State{Loading: true},
		subs:   make(map[int]func(State)),
	}
}

func (s *Store) Key() string {
	return s.key
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every state change and returns a func that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Token returns the stored bearer token so the store can back an API client.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.tokens.GetToken(ctx, s.key)
}

// Init runs the initial identity check.
func (s *Store) Init(ctx context.Context) error {
	err := s.check(ctx, ReasonInit)
	if errors.Is(err, ErrNotAuthenticated) {
		return nil
	}
	return err
}

// RefreshUser re-resolves the user behind the stored token. The state reports
// Loading while the check is in flight. Any failure clears the token and
// leaves the session logged out.
func (s *Store) RefreshUser(ctx context.Context) error {
	return s.check(ctx, ReasonRefresh)
}

// Login exchanges credentials for a token, persists it and resolves the user.
// Failed credentials leave no token behind.
func (s *Store) Login(ctx context.Context, username, password string) error {
	token, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn().Err(err).Str("username", username).Msg("Login rejected")
		return err
	}

	s.mu.Lock()
	s.seq++
	s.mu.Unlock()

	if err := s.tokens.SetToken(ctx, s.key, token, s.ttl); err != nil {
		// an in-flight refresh was invalidated above and will not clear Loading
		s.mu.Lock()
		s.state.Loading = s.state.Loading && !s.initialized
		s.mu.Unlock()
		return fmt.Errorf("store token: %w", err)
	}
	if err := s.check(ctx, ReasonLogin); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Logout always ends with no user and no token. The server call is best-effort.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()

	token, err := s.tokens.GetToken(ctx, s.key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read token before logout")
	}
	if token != "" {
		if err := s.auth.Logout(ctx, token); err != nil {
			s.logger.Warn().Err(err).Msg("Server logout failed, clearing local session anyway")
		}
	}

	clearErr := s.tokens.ClearToken(ctx, s.key)
	if clearErr != nil {
		s.logger.Error().Err(clearErr).Msg("Failed to clear token")
	}

	s.mu.Lock()
	s.seq++
	s.commitLocked(nil)
	s.mu.Unlock()
	s.changed(ReasonLogout)

	return clearErr
}

// Expire drops the session after the backend rejected its token.
func (s *Store) Expire(ctx context.Context) {
	s.mu.Lock()
	if s.state.User == nil && s.initialized {
		s.mu.Unlock()
		return
	}
	s.seq++
	s.mu.Unlock()

	if err := s.tokens.ClearToken(ctx, s.key); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear expired token")
	}

	s.mu.Lock()
	s.commitLocked(nil)
	s.mu.Unlock()
	s.changed(ReasonExpired)
}

func (s *Store) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := s.auth.Register(ctx, req); err != nil {
		s.logger.Warn().Err(err).Str("email", req.Email).Msg("Registration rejected")
		return err
	}
	s.logger.Info().Str("email", req.Email).Msg("Account registered")
	return nil
}

func (s *Store) check(ctx context.Context, reason string) error {
	s.mu.Lock()
	s.seq++
	ticket := s.seq
	refreshing := reason == ReasonRefresh && !s.state.Loading
	if refreshing {
		s.state.Loading = true
	}
	s.mu.Unlock()
	if refreshing {
		s.notify()
	}

	user, err := s.resolve(ctx)
	if err != nil && !errors.Is(err, ErrNotAuthenticated) {
		s.logger.Warn().Err(err).Str("reason", reason).Msg("Identity check failed")
	}

	s.mu.Lock()
	if ticket != s.seq {
		s.mu.Unlock()
		s.logger.Debug().Uint64("ticket", ticket).Str("reason", reason).Msg("Dropping stale identity check")
		return nil
	}
	s.mu.Unlock()

	if err != nil && !errors.Is(err, ErrNotAuthenticated) {
		if clearErr := s.tokens.ClearToken(ctx, s.key); clearErr != nil {
			s.logger.Error().Err(clearErr).Msg("Failed to clear rejected token")
		}
	}

	s.mu.Lock()
	if ticket != s.seq {
		s.mu.Unlock()
		return nil
	}
	s.commitLocked(user)
	s.mu.Unlock()

	if user == nil && reason != ReasonInit && reason != ReasonRefresh {
		reason = ReasonExpired
	}
	s.changed(reason)
	return err
}

func (s *Store) resolve(ctx context.Context) (*models.User, error) {
	token, err := s.tokens.GetToken(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	user, err := s.auth.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// commitLocked must be called with mu held.
func (s *Store) commitLocked(user *models.User) {
	s.state = State{User: user}
	s.initialized = true
}

// snapshot must be called with mu held.
func (s *Store) snapshot() (State, []func(State)) {
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return s.state, subs
}

// notify tells subscribers about a state change that is not a session transition.
func (s *Store) notify() {
	s.mu.Lock()
	st, subs := s.snapshot()
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

func (s *Store) changed(reason string) {
	s.mu.Lock()
	st, subs := s.snapshot()
	s.mu.Unlock()

	metrics.IncSession(reason)
	payload := events.SessionChangedPayload{
		Key:           s.key,
		Authenticated: st.Authenticated(),
		Reason:        reason,
	}
	if st.User != nil {
		payload.UserID = st.User.ID.String()
		s.logger.Info().Str("reason", reason).Str("user", st.User.Email).Msg("Session changed")
	} else {
		s.logger.Info().Str("reason", reason).Msg("Session changed")
	}
	if err := s.bus.PublishJSON(events.EventSessionChanged, payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish session change")
	}

	for _, fn := range subs {
		fn(st)
	}
}
