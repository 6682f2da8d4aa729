package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/set-night/mindchat/internal/domain"
)

const genericAuthMessage = "Something went wrong. Please try again."

// View is what a surface needs to render one client.
type View struct {
	Ready         bool
	User          *domain.User
	Conversations []domain.Conversation
	ActiveID      string
	PickerOpen    bool
	Timeline      TimelineView
	Err           error
}

// Sequencer runs the user-triggered flows of one chat client against its
// session store, directory and timeline.
type Sequencer struct {
	provider  domain.IdentityProvider
	backend   domain.ChatBackend
	store     *SessionStore
	directory *Directory
	timeline  *Timeline

	mu      sync.Mutex
	lastErr error
}

func NewSequencer(provider domain.IdentityProvider, backend domain.ChatBackend) *Sequencer {
	directory := NewDirectory(backend)
	s := &Sequencer{
		provider:  provider,
		backend:   backend,
		store:     NewSessionStore(provider),
		directory: directory,
		timeline:  NewTimeline(backend, directory.Active),
	}
	s.store.OnTransition(s.onTransition)
	return s
}

// Startup probes the existing session and, when one exists, loads the
// user's conversations.
func (s *Sequencer) Startup(ctx context.Context) error {
	return s.store.Init(ctx)
}

func (s *Sequencer) SignIn(ctx context.Context, email, password string) error {
	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return authError("sign in", err)
	}
	return s.store.CompleteSignIn(ctx, session.User)
}

func (s *Sequencer) SignUp(ctx context.Context, email, password string) error {
	session, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationRequired) {
			return err
		}
		return authError("sign up", err)
	}
	if session == nil || session.User == nil {
		return domain.ErrVerificationRequired
	}
	return s.store.CompleteSignIn(ctx, session.User)
}

func (s *Sequencer) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		slog.Warn("provider sign out failed", "error", err)
	}
	return s.store.Clear(ctx)
}

// SelectConversation activates id and loads its history.
func (s *Sequencer) SelectConversation(ctx context.Context, id string) error {
	if err := s.requireUser(); err != nil {
		return err
	}
	changed, err := s.directory.Select(id)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.fetch(ctx, id)
}

// NewConversation creates a conversation, activates it and loads its
// (empty) history.
func (s *Sequencer) NewConversation(ctx context.Context) (*domain.Conversation, error) {
	status := s.store.Status()
	if err := s.requireUser(); err != nil {
		return nil, err
	}
	conv, err := s.directory.CreateDefault(ctx, status.User)
	if err != nil {
		if !errors.Is(err, domain.ErrStaleResult) {
			s.setErr(err)
		}
		return nil, err
	}
	if err := s.fetch(ctx, conv.ID); err != nil {
		return conv, err
	}
	return conv, nil
}

// Send submits content to the active conversation. The returned message is
// the bot reply; it is nil when there was none or it arrived too late to
// show.
func (s *Sequencer) Send(ctx context.Context, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	if err := s.requireUser(); err != nil {
		return nil, err
	}
	user := s.store.Status().User
	conversationID := s.directory.Active()
	if conversationID == "" {
		return nil, domain.ErrNoActiveConversation
	}

	s.timeline.AppendOptimistic(content)

	reply, err := s.backend.SendMessage(ctx, conversationID, content, user.ID)
	if err != nil {
		sendErr := &domain.SendError{ConversationID: conversationID, Err: err}
		slog.Error("send message failed", "conversation_id", conversationID, "user_id", user.ID, "error", err)
		return nil, sendErr
	}
	if reply == "" {
		return nil, nil
	}

	if s.store.Status().UserID() != user.ID {
		slog.Debug("dropping reply for signed out user", "conversation_id", conversationID)
		return nil, nil
	}
	msg, err := s.timeline.AppendReply(conversationID, reply)
	if errors.Is(err, domain.ErrStaleResult) {
		slog.Debug("dropping reply for inactive conversation", "conversation_id", conversationID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Reload fetches the active conversation's history again. When nothing is
// active, as after a failed load, the conversation list is loaded first.
func (s *Sequencer) Reload(ctx context.Context) error {
	if err := s.requireUser(); err != nil {
		return err
	}
	id := s.directory.Active()
	if id == "" {
		if err := s.directory.Load(ctx, s.store.Status().User); err != nil {
			if errors.Is(err, domain.ErrStaleResult) {
				return nil
			}
			s.setErr(err)
			return err
		}
		if id = s.directory.Active(); id == "" {
			return domain.ErrNoActiveConversation
		}
	}
	return s.fetch(ctx, id)
}

// User returns the signed-in user, or nil.
func (s *Sequencer) User() *domain.User { return s.store.Status().User }

func (s *Sequencer) OpenPicker() { s.directory.OpenPicker() }

func (s *Sequencer) ClosePicker() { s.directory.ClosePicker() }

func (s *Sequencer) Snapshot() View {
	s.mu.Lock()
	lastErr := s.lastErr
	s.mu.Unlock()

	return View{
		Ready:         s.store.Ready(),
		User:          s.store.Status().User,
		Conversations: s.directory.Conversations(),
		ActiveID:      s.directory.Active(),
		PickerOpen:    s.directory.PickerOpen(),
		Timeline:      s.timeline.Snapshot(),
		Err:           lastErr,
	}
}

func (s *Sequencer) Close() {
	s.store.Close()
}

func (s *Sequencer) onTransition(ctx context.Context, _, next Status) error {
	s.setErr(nil)
	s.directory.Reset(next.UserID())
	s.timeline.Reset()
	if !next.Authenticated() {
		return nil
	}

	if err := s.directory.Load(ctx, next.User); err != nil {
		if errors.Is(err, domain.ErrStaleResult) {
			return nil
		}
		s.setErr(err)
		return err
	}
	id := s.directory.Active()
	if id == "" {
		return nil
	}
	return s.fetch(ctx, id)
}

func (s *Sequencer) fetch(ctx context.Context, id string) error {
	err := s.timeline.Fetch(ctx, id)
	switch {
	case err == nil:
		s.setErr(nil)
		return nil
	case errors.Is(err, domain.ErrStaleResult):
		return nil
	default:
		s.setErr(err)
		return err
	}
}

func (s *Sequencer) requireUser() error {
	if !s.store.Ready() {
		return domain.ErrNotReady
	}
	if !s.store.Status().Authenticated() {
		return domain.ErrNotAuthenticated
	}
	return nil
}

func (s *Sequencer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

func authError(op string, err error) error {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return err
	}
	return &domain.AuthError{Op: op, Message: genericAuthMessage, Err: err}
}
