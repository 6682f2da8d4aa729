package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/domain"
	tg "github.com/set-night/mindchat/internal/telegram"
)

// HandleTextPrivate sends plain text to the active conversation and shows the
// bot's reply.
func (h *Handler) HandleTextPrivate(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.Chat.Type != "private" {
		return
	}
	chatID := msg.Chat.ID
	seq := h.signedIn(ctx, b, chatID)
	if seq == nil {
		return
	}

	stopTyping := tg.StartTyping(ctx, b, chatID)
	defer stopTyping()

	statusMsg, _ := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Thinking...",
	})
	statusID := 0
	if statusMsg != nil {
		statusID = statusMsg.ID
	}

	reply, err := seq.Send(ctx, msg.Text)
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		// Nothing was sent
	case err != nil:
		var sendErr *domain.SendError
		if errors.As(err, &sendErr) {
			h.tgLogger.LogError(err, "send message")
		}
		if statusID != 0 {
			tg.DeleteMessage(ctx, b, chatID, statusID)
		}
		h.sendError(ctx, b, chatID, err)
		return
	case reply != nil:
		if err := tg.EditOrSend(ctx, b, chatID, statusID, reply.Content, nil); err != nil {
			slog.Error("send reply", "chat_id", chatID, "error", err)
		}
		return
	}

	if statusID != 0 {
		tg.DeleteMessage(ctx, b, chatID, statusID)
	}
}
