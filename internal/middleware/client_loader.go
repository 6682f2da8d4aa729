package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/service"
)

type ctxKey string

const ClientKey ctxKey = "client"

// GetClient extracts the chat client from context.
func GetClient(ctx context.Context) *service.Sequencer {
	s, ok := ctx.Value(ClientKey).(*service.Sequencer)
	if !ok {
		return nil
	}
	return s
}

// ChatID returns the chat an update belongs to, or 0.
func ChatID(update *models.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID
	default:
		return 0
	}
}

// ClientLoader returns middleware that puts the chat's client into context,
// starting it on first use.
func ClientLoader(registry *service.Registry) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			chatID := ChatID(update)
			if chatID == 0 {
				next(ctx, b, update)
				return
			}

			seq, created := registry.Get(chatID)
			if created {
				if err := seq.Startup(ctx); err != nil {
					slog.Warn("client startup failed", "chat_id", chatID, "error", err)
				}
			}

			next(context.WithValue(ctx, ClientKey, seq), b, update)
		}
	}
}
