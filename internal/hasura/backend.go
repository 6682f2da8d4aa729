// Package hasura implements domain.ChatBackend on top of the Hasura GraphQL
// API that Nhost exposes.
package hasura

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/machinebox/graphql"

	"github.com/set-night/mindchat/internal/domain"
)

// TokenSource returns the access token of the current session, or "" when
// none is active.
type TokenSource func() string

// Backend executes the chat queries and mutations. It is cheap to create; one
// per client instance binds that instance's token.
type Backend struct {
	client *graphql.Client
	tokens TokenSource
}

// NewClient builds the shared executor for endpoint.
func NewClient(endpoint string, httpClient *http.Client) *graphql.Client {
	client := graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient))
	client.Log = func(s string) { slog.Debug("graphql", "message", s) }
	return client
}

func NewBackend(client *graphql.Client, tokens TokenSource) *Backend {
	return &Backend{client: client, tokens: tokens}
}

type chatRow struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
}

type messageRow struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

func (b *Backend) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	req := b.request(getUserChats)
	req.Var("user_id", userID)

	var resp struct {
		Chats []chatRow `json:"chats"`
	}
	if err := b.client.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	convs := make([]domain.Conversation, len(resp.Chats))
	for i, c := range resp.Chats {
		convs[i] = c.toDomain(userID)
	}
	return convs, nil
}

func (b *Backend) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	req := b.request(getChatMessages)
	req.Var("chat_id", conversationID)

	var resp struct {
		Messages []messageRow `json:"messages"`
	}
	if err := b.client.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	msgs := make([]domain.Message, len(resp.Messages))
	for i, m := range resp.Messages {
		msgs[i] = domain.Message{
			ID:        m.ID,
			Content:   m.Content,
			Sender:    domain.Sender(m.Sender),
			CreatedAt: m.CreatedAt,
		}
	}
	return msgs, nil
}

func (b *Backend) CreateConversation(ctx context.Context, title, userID string) (*domain.Conversation, error) {
	req := b.request(createChat)
	req.Var("title", title)
	req.Var("user_id", userID)

	var resp struct {
		InsertChatsOne *chatRow `json:"insert_chats_one"`
	}
	if err := b.client.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	if resp.InsertChatsOne == nil {
		return nil, fmt.Errorf("create chat: no row returned")
	}

	conv := resp.InsertChatsOne.toDomain(userID)
	return &conv, nil
}

func (b *Backend) SendMessage(ctx context.Context, conversationID, content, userID string) (string, error) {
	req := b.request(sendMessage)
	req.Var("chat_id", conversationID)
	req.Var("content", content)
	req.Var("user_id", userID)

	var resp struct {
		SendMessage *struct {
			Reply *string `json:"reply"`
		} `json:"sendMessage"`
	}
	if err := b.client.Run(ctx, req, &resp); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	if resp.SendMessage == nil || resp.SendMessage.Reply == nil {
		return "", nil
	}
	return *resp.SendMessage.Reply, nil
}

// request builds a request carrying the current bearer token. Without a
// session the header is sent empty and the service decides.
func (b *Backend) request(query string) *graphql.Request {
	req := graphql.NewRequest(query)
	token := ""
	if b.tokens != nil {
		token = b.tokens()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "")
	}
	return req
}

func (r chatRow) toDomain(userID string) domain.Conversation {
	owner := r.UserID
	if owner == "" {
		owner = userID
	}
	return domain.Conversation{
		ID:        r.ID,
		Title:     r.Title,
		CreatedAt: r.CreatedAt,
		UserID:    owner,
	}
}
