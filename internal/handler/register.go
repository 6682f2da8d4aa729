package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/signin", bot.MatchTypePrefix, h.handleSignIn)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/signup", bot.MatchTypePrefix, h.handleSignUp)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/logout", bot.MatchTypePrefix, h.handleLogout)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/chats", bot.MatchTypePrefix, h.handleChats)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/new", bot.MatchTypePrefix, h.handleNew)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/history", bot.MatchTypePrefix, h.handleHistory)

	// Conversation picker callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "chat_", bot.MatchTypePrefix, h.handleSelectChat)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "chats_page_", bot.MatchTypePrefix, h.handleChatsPage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "new_chat", bot.MatchTypeExact, h.handleNewChat)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "close_picker", bot.MatchTypeExact, h.handleClosePicker)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "dismiss", bot.MatchTypeExact, h.handleDismiss)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cur", bot.MatchTypeExact, h.handleNoop)

	// Everything else that is plain text is a chat message
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || strings.HasPrefix(update.Message.Text, "/") {
			return
		}
		h.HandleTextPrivate(ctx, b, update)
	})
}

// handleNoop is a no-op callback handler used for pagination indicators and other
// non-interactive inline buttons. It simply acknowledges the callback query.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		answerCallback(ctx, b, update, "")
	}
}

// handleDismiss removes an inline error message.
func (h *Handler) handleDismiss(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")
	if chatID, messageID := callbackMessage(update); messageID != 0 {
		b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: messageID})
	}
}
