package terminal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	pkgerrors "github.com/pkg/errors"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
)

const (
	emptyStatePrompt = "Send Message to start chat..."
	newChatOption    = "➕ New chat"
)

// Client is the chat client the terminal drives.
type Client interface {
	Startup(ctx context.Context) error
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	SelectConversation(ctx context.Context, id string) error
	NewConversation(ctx context.Context) (*domain.Conversation, error)
	Send(ctx context.Context, content string) (*domain.Message, error)
	Reload(ctx context.Context) error
	OpenPicker()
	ClosePicker()
	User() *domain.User
	Snapshot() service.View
}

// Session is one interactive terminal chat.
type Session struct {
	client   Client
	prompt   Prompter
	out      *Output
	renderer *glamour.TermRenderer
	signUp   bool
}

func NewSession(client Client, prompt Prompter, out *Output, signUp bool) (*Session, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(out.width, 120)),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "creating markdown renderer")
	}
	return &Session{client: client, prompt: prompt, out: out, renderer: renderer, signUp: signUp}, nil
}

// Run signs the user in if needed and then reads chat lines until the user
// quits.
func (s *Session) Run(ctx context.Context) error {
	if err := s.client.Startup(ctx); err != nil {
		s.out.Error("%s", describe(err))
	}

	for {
		if s.client.User() == nil {
			if err := s.authenticate(ctx); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				return err
			}
			s.showTimeline()
		}

		line, err := s.prompt.Line()
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(err, "reading input")
		}
		if ctx.Err() != nil {
			return nil
		}

		quit, err := s.handle(ctx, line)
		if err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			s.out.Error("%s", describe(err))
		}
		if quit {
			return nil
		}
	}
}

func (s *Session) authenticate(ctx context.Context) error {
	for {
		s.out.Title("MindChat")
		email, password, err := s.prompt.Credentials(s.signUp)
		if err != nil {
			return err
		}

		if s.signUp {
			err = s.client.SignUp(ctx, email, password)
		} else {
			err = s.client.SignIn(ctx, email, password)
		}
		if err == nil && s.client.User() != nil {
			s.out.Info("Signed in as %s", s.client.User().Email)
			s.out.Hint("Commands: /chats, /switch <n>, /new, /history, /logout, /quit")
			return nil
		}
		if errors.Is(err, domain.ErrVerificationRequired) {
			s.out.Info("Account created. Check your inbox to verify your email, then sign in.")
			s.signUp = false
			continue
		}
		if err != nil {
			s.out.Error("%s", describe(err))
		}

		again, err := s.prompt.Confirm("Try again?")
		if err != nil {
			return err
		}
		if !again {
			return ErrQuit
		}
	}
}

// handle runs one input line. quit reports whether the session is over.
func (s *Session) handle(ctx context.Context, line string) (quit bool, err error) {
	command, arg := parseCommand(line)
	switch command {
	case "":
		return false, s.send(ctx, line)
	case "/quit", "/exit":
		return true, nil
	case "/chats":
		return false, s.pick(ctx)
	case "/switch":
		n, convErr := strconv.Atoi(arg)
		conversations := s.client.Snapshot().Conversations
		if convErr != nil || n < 1 || n > len(conversations) {
			return false, fmt.Errorf("usage: /switch <1-%d>", len(conversations))
		}
		if err := s.client.SelectConversation(ctx, conversations[n-1].ID); err != nil {
			return false, err
		}
		s.showTimeline()
	case "/new":
		if _, err := s.client.NewConversation(ctx); err != nil && !errors.Is(err, domain.ErrStaleResult) {
			return false, err
		}
		s.showTimeline()
	case "/history":
		if err := s.client.Reload(ctx); err != nil {
			return false, err
		}
		s.showTimeline()
	case "/logout":
		if err := s.client.SignOut(ctx); err != nil {
			return false, err
		}
		s.out.Info("Signed out.")
	default:
		return false, fmt.Errorf("unknown command %s", command)
	}
	return false, nil
}

func (s *Session) send(ctx context.Context, content string) error {
	reply, err := s.client.Send(ctx, content)
	if errors.Is(err, domain.ErrEmptyMessage) {
		return nil
	}
	if err != nil {
		return err
	}
	if reply != nil {
		s.printMessage(*reply)
	}
	return nil
}

func (s *Session) pick(ctx context.Context) error {
	s.client.OpenPicker()
	defer s.client.ClosePicker()

	view := s.client.Snapshot()
	options := make([]string, 0, len(view.Conversations)+1)
	current := -1
	for i, c := range view.Conversations {
		options = append(options, conversationLabel(i, c))
		if c.ID == view.ActiveID {
			current = i
		}
	}
	options = append(options, newChatOption)

	index, err := s.prompt.Choose("Conversations", options, current)
	if err != nil {
		return err
	}
	if index == len(view.Conversations) {
		if _, err := s.client.NewConversation(ctx); err != nil && !errors.Is(err, domain.ErrStaleResult) {
			return err
		}
	} else if err := s.client.SelectConversation(ctx, view.Conversations[index].ID); err != nil {
		return err
	}
	s.showTimeline()
	return nil
}

func (s *Session) showTimeline() {
	view := s.client.Snapshot()
	title := "Conversation"
	for _, c := range view.Conversations {
		if c.ID == view.ActiveID {
			title = c.Title
		}
	}
	s.out.Title("%s", title)

	switch {
	case view.ActiveID == "":
		s.out.Hint("No conversation yet. Start one with /new.")
	case view.Timeline.State == service.TimelineLoading:
		s.out.Hint("Loading messages...")
	case view.Timeline.Err != nil:
		s.out.Error("Could not load messages. Use /history to try again.")
	case len(view.Timeline.Messages) == 0:
		s.out.Hint(emptyStatePrompt)
	default:
		for _, m := range view.Timeline.Messages {
			s.printMessage(m)
		}
	}
}

func (s *Session) printMessage(m domain.Message) {
	stamp := m.CreatedAt.Format("15:04")
	if m.Sender == domain.SenderUser {
		userColor.Fprintf(s.out.w, "you · %s\n", stamp)
		s.out.Raw(m.Content + "\n\n")
		return
	}
	botColor.Fprintf(s.out.w, "bot · %s\n", stamp)
	rendered, err := s.renderer.Render(m.Content)
	if err != nil {
		rendered = m.Content + "\n"
	}
	s.out.Raw(rendered)
}

func conversationLabel(i int, c domain.Conversation) string {
	return fmt.Sprintf("%d. %s (%s)", i+1, c.Title, c.CreatedAt.Local().Format("Jan 2 15:04"))
}

// parseCommand splits "/switch 2" into its command and argument. Lines that
// are not commands return an empty command.
func parseCommand(line string) (command, arg string) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return "", ""
	}
	command, arg, _ = strings.Cut(trimmed, " ")
	return strings.ToLower(command), strings.TrimSpace(arg)
}

func describe(err error) string {
	var authErr *domain.AuthError
	var sendErr *domain.SendError
	var fetchErr *domain.FetchError
	switch {
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.As(err, &sendErr):
		return "Message could not be sent: " + sendErr.Err.Error()
	case errors.As(err, &fetchErr):
		return "Could not load data: " + fetchErr.Err.Error()
	default:
		return err.Error()
	}
}
