package domain

import "context"

// IdentityProvider is the hosted auth service. Implementations keep at most
// one live session.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// GetUser returns nil without error when no session is active.
	GetUser(ctx context.Context) (*User, error)
	GetSession() *Session
	// OnChange registers fn for out-of-band session changes and returns the
	// function that removes it.
	OnChange(fn func(event AuthEvent, session *Session)) (unsubscribe func())
}

// ChatBackend executes the queries and mutations of the data service.
type ChatBackend interface {
	// ListConversations returns the user's conversations, newest first.
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	// ListMessages returns the conversation history, oldest first.
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	CreateConversation(ctx context.Context, title, userID string) (*Conversation, error)
	// SendMessage returns the bot reply, or "" when the service sent none.
	SendMessage(ctx context.Context, conversationID, content, userID string) (string, error)
}
