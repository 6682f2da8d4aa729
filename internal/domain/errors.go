package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady             = errors.New("session store not ready")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrVerificationRequired = errors.New("email verification required")
	ErrStaleResult          = errors.New("result no longer matches current state")
	ErrInvalidCredentials   = errors.New("email and password are required")
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
)

// AuthError is a rejection by the identity provider. Message is safe to show
// to the user.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError is a failed conversation or message list retrieval.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// SendError is a failed message dispatch. The optimistic message stays in the
// timeline.
type SendError struct {
	ConversationID string
	Err            error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send message to %s: %v", e.ConversationID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
