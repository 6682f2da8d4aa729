package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

const commandsHelp = "📋 *Commands:*\n" +
	"/chats — Your conversations\n" +
	"/new — Start a new conversation\n" +
	"/history — Reload the current conversation\n" +
	"/logout — Sign out\n\n" +
	"Just send a message to chat!"

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	seq := middleware.GetClient(ctx)
	if seq == nil {
		return
	}

	user := seq.User()
	if user == nil {
		h.send(ctx, b, chatID, "👋 Welcome to *MindChat*!\n\n"+signInHint, nil)
		return
	}

	h.send(ctx, b, chatID, fmt.Sprintf("👋 Welcome back, *%s*!\n\n%s", tg.EscapeMarkdown(displayName(user.DisplayName, user.Email)), commandsHelp), nil)
	h.showTimeline(ctx, b, chatID, seq)
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
