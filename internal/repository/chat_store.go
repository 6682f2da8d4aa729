package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/set-night/mindchat/internal/domain"
)

// Replier produces the bot answer for a conversation history.
type Replier interface {
	Reply(ctx context.Context, history []domain.Message) (string, error)
}

// ChatStore serves the chat operations straight from the chats and messages
// tables, generating replies itself.
type ChatStore struct {
	pool         *pgxpool.Pool
	replier      Replier
	historyLimit int
}

func NewChatStore(pool *pgxpool.Pool, replier Replier, historyLimit int) *ChatStore {
	return &ChatStore{pool: pool, replier: replier, historyLimit: historyLimit}
}

type chatRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
	UserID    string    `db:"user_id"`
}

type messageRow struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	Sender    string    `db:"sender"`
	CreatedAt time.Time `db:"created_at"`
}

func (r chatRow) toDomain() domain.Conversation {
	return domain.Conversation{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt, UserID: r.UserID}
}

func (r messageRow) toDomain() domain.Message {
	return domain.Message{ID: r.ID, Content: r.Content, Sender: domain.Sender(r.Sender), CreatedAt: r.CreatedAt}
}

func (s *ChatStore) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, title, created_at, user_id::text
		FROM chats
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	chats, err := pgx.CollectRows(rows, pgx.RowToStructByName[chatRow])
	if err != nil {
		return nil, fmt.Errorf("scan chats: %w", err)
	}

	out := make([]domain.Conversation, 0, len(chats))
	for _, c := range chats {
		out = append(out, c.toDomain())
	}
	return out, nil
}

func (s *ChatStore) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, content, sender, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return collectMessages(rows)
}

func (s *ChatStore) CreateConversation(ctx context.Context, title, userID string) (*domain.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		INSERT INTO chats (title, user_id)
		VALUES ($1, $2)
		RETURNING id::text, title, created_at, user_id::text`, title, userID)
	if err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[chatRow])
	if err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}
	conv := row.toDomain()
	return &conv, nil
}

// SendMessage stores the user message, asks the replier to continue the
// conversation and stores its answer.
func (s *ChatStore) SendMessage(ctx context.Context, conversationID, content, userID string) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner string
	err = tx.QueryRow(ctx, `SELECT user_id::text FROM chats WHERE id = $1 FOR SHARE`, conversationID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && owner != userID) {
		return "", domain.ErrConversationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup chat: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO messages (chat_id, content, sender) VALUES ($1, $2, $3)`,
		conversationID, content, string(domain.SenderUser)); err != nil {
		return "", fmt.Errorf("insert user message: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit user message: %w", err)
	}

	history, err := s.recentMessages(ctx, conversationID)
	if err != nil {
		return "", err
	}

	reply, err := s.replier.Reply(ctx, history)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if reply == "" {
		return "", nil
	}

	if _, err := s.pool.Exec(ctx, `INSERT INTO messages (chat_id, content, sender) VALUES ($1, $2, $3)`,
		conversationID, reply, string(domain.SenderBot)); err != nil {
		return "", fmt.Errorf("insert bot message: %w", err)
	}
	return reply, nil
}

func (s *ChatStore) recentMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, content, sender, created_at FROM (
			SELECT id::text, content, sender, created_at
			FROM messages
			WHERE chat_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`, conversationID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByName[messageRow])
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.toDomain())
	}
	return out, nil
}
