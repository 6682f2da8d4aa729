package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Logging returns middleware that logs each handled update with its chat and
// the signed-in account, if any. It must run after ClientLoader.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			next(ctx, b, update)

			attrs := []any{
				"kind", updateKind(update),
				"chat_id", ChatID(update),
				"took", time.Since(start),
			}
			if client := GetClient(ctx); client != nil {
				if user := client.User(); user != nil {
					attrs = append(attrs, "account_id", user.ID)
				}
			}
			slog.Debug("handled update", attrs...)
		}
	}
}

func updateKind(update *models.Update) string {
	switch {
	case update.Message != nil:
		return "message"
	case update.CallbackQuery != nil:
		return "callback_query"
	default:
		return "other"
	}
}
