package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
)

type TimelineState int

const (
	TimelineEmpty TimelineState = iota
	TimelineLoading
	TimelineLoaded
)

func (s TimelineState) String() string {
	switch s {
	case TimelineEmpty:
		return "empty"
	case TimelineLoading:
		return "loading"
	case TimelineLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// TimelineView is a point-in-time copy of the timeline.
type TimelineView struct {
	ConversationID string
	State          TimelineState
	Messages       []domain.Message
	Err            error
}

// Timeline holds the messages of the active conversation. Results that
// arrive after the active conversation changed are dropped.
type Timeline struct {
	backend domain.ChatBackend
	active  func() string
	now     func() time.Time
	newID   func() string

	mu             sync.Mutex
	conversationID string
	state          TimelineState
	messages       []domain.Message
	err            error
}

// NewTimeline returns an empty timeline. active reports the id the
// directory currently considers active.
func NewTimeline(backend domain.ChatBackend, active func() string) *Timeline {
	return &Timeline{
		backend: backend,
		active:  active,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Fetch replaces the timeline with the history of conversationID.
func (t *Timeline) Fetch(ctx context.Context, conversationID string) error {
	t.mu.Lock()
	t.conversationID = conversationID
	t.state = TimelineLoading
	t.messages = nil
	t.err = nil
	t.mu.Unlock()

	msgs, err := t.backend.ListMessages(ctx, conversationID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if conversationID != t.conversationID || conversationID != t.active() {
		slog.Debug("discarding stale message fetch", "conversation_id", conversationID)
		return domain.ErrStaleResult
	}
	if err != nil {
		t.state = TimelineEmpty
		t.err = &domain.FetchError{Op: "list messages", Err: err}
		return t.err
	}
	t.state = TimelineLoaded
	t.messages = msgs
	return nil
}

// AppendOptimistic adds a pending user message at the end.
func (t *Timeline) AppendOptimistic(content string) domain.Message {
	msg := domain.Message{
		ID:        t.newID(),
		Content:   content,
		Sender:    domain.SenderUser,
		CreatedAt: t.now(),
		Pending:   true,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TimelineEmpty {
		t.state = TimelineLoaded
	}
	t.messages = append(t.messages, msg)
	return msg
}

// AppendReply adds a bot message if conversationID is still the one shown.
// An empty reply adds nothing.
func (t *Timeline) AppendReply(conversationID, content string) (domain.Message, error) {
	if content == "" {
		return domain.Message{}, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if conversationID != t.conversationID || conversationID != t.active() {
		return domain.Message{}, domain.ErrStaleResult
	}
	msg := domain.Message{
		ID:        t.newID(),
		Content:   content,
		Sender:    domain.SenderBot,
		CreatedAt: t.now(),
		Pending:   true,
	}
	if t.state == TimelineEmpty {
		t.state = TimelineLoaded
	}
	t.messages = append(t.messages, msg)
	return msg, nil
}

func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conversationID = ""
	t.state = TimelineEmpty
	t.messages = nil
	t.err = nil
}

func (t *Timeline) Snapshot() TimelineView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TimelineView{
		ConversationID: t.conversationID,
		State:          t.state,
		Messages:       append([]domain.Message(nil), t.messages...),
		Err:            t.err,
	}
}
