package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/set-night/mindchat/internal/domain"
)

// Status is the authentication state of a client instance.
type Status struct {
	User *domain.User
}

func (s Status) Authenticated() bool { return s.User != nil }

func (s Status) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// TransitionFunc reacts to a change of authenticated user. It runs on the
// goroutine that caused the change.
type TransitionFunc func(ctx context.Context, prev, next Status) error

// SessionStore tracks who is signed in. It holds a single provider
// subscription for its lifetime.
type SessionStore struct {
	provider    domain.IdentityProvider
	unsubscribe func()

	// ctx bounds work started by provider-pushed events.
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	ready        bool
	status       Status
	onTransition TransitionFunc
	closed       bool
}

func NewSessionStore(provider domain.IdentityProvider) *SessionStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SessionStore{provider: provider, ctx: ctx, cancel: cancel}
	s.unsubscribe = provider.OnChange(s.handleEvent)
	return s
}

// OnTransition sets the handler called on every user transition. Token
// refreshes for the same user are not transitions.
func (s *SessionStore) OnTransition(fn TransitionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransition = fn
}

// Init probes the provider once. The store is ready afterwards even if the
// probe failed, in which case it stays unauthenticated.
func (s *SessionStore) Init(ctx context.Context) error {
	user, probeErr := s.provider.GetUser(ctx)
	if probeErr != nil {
		slog.Warn("session probe failed", "error", probeErr)
		user = nil
	}

	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return nil
	}
	prev := Status{}
	// An event may have landed while the probe was in flight; it wins.
	if s.status.Authenticated() {
		user = s.status.User
	}
	next := Status{User: user}
	s.status = next
	s.ready = true
	fn := s.onTransition
	s.mu.Unlock()

	if probeErr != nil {
		return fmt.Errorf("probe session: %w", probeErr)
	}
	if fn != nil && next.Authenticated() {
		return fn(ctx, prev, next)
	}
	return nil
}

func (s *SessionStore) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *SessionStore) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *SessionStore) CompleteSignIn(ctx context.Context, user *domain.User) error {
	return s.set(ctx, Status{User: user})
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.set(ctx, Status{})
}

// Close removes the provider subscription and cancels work started by
// pushed events. It is safe to call more than once.
func (s *SessionStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.unsubscribe()
	s.cancel()
}

func (s *SessionStore) set(ctx context.Context, next Status) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	prev := s.status
	s.status = next
	fire := s.ready && isTransition(prev, next)
	fn := s.onTransition
	s.mu.Unlock()

	if !fire || fn == nil {
		return nil
	}
	return fn(ctx, prev, next)
}

func (s *SessionStore) handleEvent(event domain.AuthEvent, session *domain.Session) {
	var err error
	if session == nil || session.User == nil || event == domain.AuthEventSignedOut {
		err = s.Clear(s.ctx)
	} else {
		err = s.CompleteSignIn(s.ctx, session.User)
	}
	if err != nil {
		slog.Warn("session change handling failed", "event", event, "error", err)
	}
}

func isTransition(prev, next Status) bool {
	if prev.Authenticated() != next.Authenticated() {
		return true
	}
	return prev.UserID() != next.UserID()
}
