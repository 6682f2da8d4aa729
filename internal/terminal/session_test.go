package terminal

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
)

func init() {
	color.NoColor = true
}

var stamp = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

type fakeClient struct {
	user          *domain.User
	signInErrs    []error
	signUps       int
	selected      []string
	created       int
	sent          []string
	reply         string
	reloads       int
	pickerOpens   int
	pickerCloses  int
	conversations []domain.Conversation
	activeID      string
	messages      []domain.Message
}

func (f *fakeClient) Startup(context.Context) error { return nil }

func (f *fakeClient) SignIn(_ context.Context, email, _ string) error {
	if len(f.signInErrs) > 0 {
		err := f.signInErrs[0]
		f.signInErrs = f.signInErrs[1:]
		return err
	}
	f.user = &domain.User{ID: "u1", Email: email}
	return nil
}

func (f *fakeClient) SignUp(context.Context, string, string) error {
	f.signUps++
	return domain.ErrVerificationRequired
}

func (f *fakeClient) SignOut(context.Context) error {
	f.user = nil
	return nil
}

func (f *fakeClient) SelectConversation(_ context.Context, id string) error {
	f.selected = append(f.selected, id)
	f.activeID = id
	return nil
}

func (f *fakeClient) NewConversation(context.Context) (*domain.Conversation, error) {
	f.created++
	c := domain.Conversation{ID: "new", Title: "New Conversation", CreatedAt: stamp}
	f.conversations = append([]domain.Conversation{c}, f.conversations...)
	f.activeID = c.ID
	return &c, nil
}

func (f *fakeClient) Send(_ context.Context, content string) (*domain.Message, error) {
	f.sent = append(f.sent, content)
	if f.reply == "" {
		return nil, nil
	}
	return &domain.Message{ID: "b1", Content: f.reply, Sender: domain.SenderBot, CreatedAt: stamp}, nil
}

func (f *fakeClient) Reload(context.Context) error {
	f.reloads++
	return nil
}

func (f *fakeClient) OpenPicker()  { f.pickerOpens++ }
func (f *fakeClient) ClosePicker() { f.pickerCloses++ }

func (f *fakeClient) User() *domain.User { return f.user }

func (f *fakeClient) Snapshot() service.View {
	state := service.TimelineLoaded
	if f.activeID == "" {
		state = service.TimelineEmpty
	}
	return service.View{
		Ready:         true,
		User:          f.user,
		Conversations: f.conversations,
		ActiveID:      f.activeID,
		Timeline:      service.TimelineView{ConversationID: f.activeID, State: state, Messages: f.messages},
	}
}

type fakePrompter struct {
	lines    []string
	choices  []int
	confirms []bool
	logins   int
	options  [][]string
}

func (p *fakePrompter) Line() (string, error) {
	if len(p.lines) == 0 {
		return "", ErrQuit
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *fakePrompter) Credentials(bool) (string, string, error) {
	p.logins++
	return "a@b.c", "secret", nil
}

func (p *fakePrompter) Choose(_ string, options []string, _ int) (int, error) {
	p.options = append(p.options, options)
	if len(p.choices) == 0 {
		return 0, ErrQuit
	}
	choice := p.choices[0]
	p.choices = p.choices[1:]
	return choice, nil
}

func (p *fakePrompter) Confirm(string) (bool, error) {
	if len(p.confirms) == 0 {
		return false, nil
	}
	ok := p.confirms[0]
	p.confirms = p.confirms[1:]
	return ok, nil
}

func run(t *testing.T, client *fakeClient, prompt *fakePrompter, signUp bool) string {
	t.Helper()
	var buf bytes.Buffer
	out := &Output{w: &buf, width: 60}
	session, err := NewSession(client, prompt, out, signUp)
	require.NoError(t, err)
	require.NoError(t, session.Run(context.Background()))
	return buf.String()
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		command string
		arg     string
	}{
		{line: "hello there", command: "", arg: ""},
		{line: "/quit", command: "/quit", arg: ""},
		{line: "  /Switch  2 ", command: "/switch", arg: "2"},
		{line: "/new please", command: "/new", arg: "please"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			command, arg := parseCommand(tt.line)
			assert.Equal(t, tt.command, command)
			assert.Equal(t, tt.arg, arg)
		})
	}
}

func TestRunSignsInAndSends(t *testing.T) {
	client := &fakeClient{
		reply:         "Hi there!",
		conversations: []domain.Conversation{{ID: "c1", Title: "New Conversation", CreatedAt: stamp}},
		activeID:      "c1",
	}
	prompt := &fakePrompter{lines: []string{"Hello", "/quit"}}

	out := run(t, client, prompt, false)

	assert.Equal(t, []string{"Hello"}, client.sent)
	assert.Contains(t, out, "Signed in as a@b.c")
	assert.Contains(t, out, emptyStatePrompt)
	assert.Contains(t, out, "Hi there!")
}

func TestRunRetriesRejectedSignIn(t *testing.T) {
	client := &fakeClient{signInErrs: []error{
		&domain.AuthError{Op: "sign in", Message: "Incorrect email or password"},
	}}
	prompt := &fakePrompter{confirms: []bool{true}, lines: []string{"/quit"}}

	out := run(t, client, prompt, false)

	assert.Equal(t, 2, prompt.logins)
	assert.Contains(t, out, "Incorrect email or password")
	require.NotNil(t, client.user)
}

func TestRunStopsWhenRetryDeclined(t *testing.T) {
	client := &fakeClient{signInErrs: []error{
		&domain.AuthError{Op: "sign in", Message: "Incorrect email or password"},
	}}
	prompt := &fakePrompter{confirms: []bool{false}, lines: []string{"never read"}}

	run(t, client, prompt, false)

	assert.Equal(t, 1, prompt.logins)
	assert.Nil(t, client.user)
	assert.Empty(t, client.sent)
	assert.Len(t, prompt.lines, 1)
}

func TestSignUpFallsBackToSignIn(t *testing.T) {
	client := &fakeClient{}
	prompt := &fakePrompter{lines: []string{"/quit"}}

	out := run(t, client, prompt, true)

	assert.Equal(t, 1, client.signUps)
	assert.Equal(t, 2, prompt.logins)
	assert.Contains(t, out, "verify your email")
	require.NotNil(t, client.user)
}

func TestSwitchCommand(t *testing.T) {
	client := &fakeClient{
		conversations: []domain.Conversation{
			{ID: "c2", Title: "Second", CreatedAt: stamp},
			{ID: "c1", Title: "First", CreatedAt: stamp.Add(-time.Hour)},
		},
		activeID: "c2",
	}
	prompt := &fakePrompter{lines: []string{"/switch 2", "/switch 7", "/bogus"}}

	out := run(t, client, prompt, false)

	assert.Equal(t, []string{"c1"}, client.selected)
	assert.Contains(t, out, "usage: /switch <1-2>")
	assert.Contains(t, out, "unknown command /bogus")
}

func TestChatsPicker(t *testing.T) {
	client := &fakeClient{
		conversations: []domain.Conversation{
			{ID: "c2", Title: "Second", CreatedAt: stamp},
			{ID: "c1", Title: "First", CreatedAt: stamp},
		},
		activeID: "c2",
	}
	prompt := &fakePrompter{lines: []string{"/chats", "/chats"}, choices: []int{1, 2}}

	run(t, client, prompt, false)

	assert.Equal(t, []string{"c1"}, client.selected)
	assert.Equal(t, 1, client.created)
	assert.Equal(t, 2, client.pickerOpens)
	assert.Equal(t, 2, client.pickerCloses)
	require.Len(t, prompt.options, 2)
	assert.Equal(t, newChatOption, prompt.options[0][2])
	assert.Contains(t, prompt.options[0][0], "1. Second")
}

func TestHistoryAndLogout(t *testing.T) {
	client := &fakeClient{
		conversations: []domain.Conversation{{ID: "c1", Title: "First", CreatedAt: stamp}},
		activeID:      "c1",
		messages: []domain.Message{
			{ID: "m1", Content: "Hello", Sender: domain.SenderUser, CreatedAt: stamp},
		},
	}
	prompt := &fakePrompter{lines: []string{"/history", "/logout"}, confirms: []bool{false}}

	out := run(t, client, prompt, false)

	assert.Equal(t, 1, client.reloads)
	assert.Contains(t, out, "you · ")
	assert.Contains(t, out, "Signed out.")
	assert.Equal(t, 2, prompt.logins)
}
