package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/set-night/mindchat/internal/domain"
)

var baseTime = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu         sync.Mutex
	user       *domain.User
	getUserErr error
	signInErr  error
	needVerify bool
	signOuts   int
	listeners  map[int]func(domain.AuthEvent, *domain.Session)
	nextID     int
}

func newFakeProvider(user *domain.User) *fakeProvider {
	return &fakeProvider{user: user, listeners: make(map[int]func(domain.AuthEvent, *domain.Session))}
}

func (p *fakeProvider) SignIn(_ context.Context, email, _ string) (*domain.Session, error) {
	p.mu.Lock()
	if p.signInErr != nil {
		err := p.signInErr
		p.mu.Unlock()
		return nil, err
	}
	p.user = &domain.User{ID: "u-" + email, Email: email}
	session := &domain.Session{AccessToken: "tok", User: p.user}
	p.mu.Unlock()

	p.emit(domain.AuthEventSignedIn, session)
	return session, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	p.mu.Lock()
	needVerify := p.needVerify
	p.mu.Unlock()
	if needVerify {
		return nil, domain.ErrVerificationRequired
	}
	return p.SignIn(ctx, email, password)
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.user = nil
	p.signOuts++
	p.mu.Unlock()

	p.emit(domain.AuthEventSignedOut, nil)
	return nil
}

func (p *fakeProvider) GetUser(context.Context) (*domain.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user, p.getUserErr
}

func (p *fakeProvider) GetSession() *domain.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil
	}
	return &domain.Session{AccessToken: "tok", User: p.user}
}

func (p *fakeProvider) OnChange(fn func(domain.AuthEvent, *domain.Session)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *fakeProvider) listenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// emit delivers an out-of-band session change the way the provider's own
// goroutines do.
func (p *fakeProvider) emit(event domain.AuthEvent, session *domain.Session) {
	p.mu.Lock()
	fns := make([]func(domain.AuthEvent, *domain.Session), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(event, session)
	}
}

type gate struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gate) open() { close(g.release) }

func (g *gate) wait(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("call never reached the backend")
	}
}

type sendCall struct {
	ConversationID string
	Content        string
	UserID         string
}

type fakeBackend struct {
	mu            sync.Mutex
	conversations map[string][]domain.Conversation
	messages      map[string][]domain.Message
	replies       map[string]string
	listErr       error
	messagesErr   error
	createErr     error
	sendErr       error
	gates         map[string]*gate
	created       int
	listCalls     int
	messageCalls  []string
	sends         []sendCall
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		conversations: make(map[string][]domain.Conversation),
		messages:      make(map[string][]domain.Message),
		replies:       make(map[string]string),
		gates:         make(map[string]*gate),
	}
}

// hold makes the next call identified by key block until the gate opens.
func (b *fakeBackend) hold(key string) *gate {
	g := &gate{entered: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	b.gates[key] = g
	b.mu.Unlock()
	return g
}

func (b *fakeBackend) pass(key string) {
	b.mu.Lock()
	g := b.gates[key]
	delete(b.gates, key)
	b.mu.Unlock()
	if g == nil {
		return
	}
	close(g.entered)
	<-g.release
}

func (b *fakeBackend) addConversation(userID, id string, age time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = append(b.conversations[userID], domain.Conversation{
		ID: id, Title: "Chat " + id, CreatedAt: baseTime.Add(-age), UserID: userID,
	})
}

func (b *fakeBackend) setMessages(conversationID string, contents ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := make([]domain.Message, 0, len(contents))
	for i, c := range contents {
		sender := domain.SenderUser
		if i%2 == 1 {
			sender = domain.SenderBot
		}
		msgs = append(msgs, domain.Message{
			ID:        fmt.Sprintf("%s-m%d", conversationID, i),
			Content:   c,
			Sender:    sender,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Second),
		})
	}
	b.messages[conversationID] = msgs
}

func (b *fakeBackend) ListConversations(_ context.Context, userID string) ([]domain.Conversation, error) {
	b.pass("conversations:" + userID)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]domain.Conversation(nil), b.conversations[userID]...), nil
}

func (b *fakeBackend) ListMessages(_ context.Context, conversationID string) ([]domain.Message, error) {
	b.pass("messages:" + conversationID)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messageCalls = append(b.messageCalls, conversationID)
	if b.messagesErr != nil {
		return nil, b.messagesErr
	}
	return append([]domain.Message(nil), b.messages[conversationID]...), nil
}

func (b *fakeBackend) CreateConversation(_ context.Context, title, userID string) (*domain.Conversation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return nil, b.createErr
	}
	b.created++
	conv := domain.Conversation{
		ID:        fmt.Sprintf("new-%d", b.created),
		Title:     title,
		CreatedAt: baseTime.Add(time.Duration(b.created) * time.Hour),
		UserID:    userID,
	}
	b.conversations[userID] = append([]domain.Conversation{conv}, b.conversations[userID]...)
	return &conv, nil
}

func (b *fakeBackend) SendMessage(_ context.Context, conversationID, content, userID string) (string, error) {
	b.mu.Lock()
	b.sends = append(b.sends, sendCall{ConversationID: conversationID, Content: content, UserID: userID})
	b.mu.Unlock()

	b.pass("send:" + content)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return "", b.sendErr
	}
	return b.replies[content], nil
}

func (b *fakeBackend) sendCalls() []sendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sendCall(nil), b.sends...)
}

func contents(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}
