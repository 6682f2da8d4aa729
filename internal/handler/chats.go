package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
	tg "github.com/set-night/mindchat/internal/telegram"
)

func (h *Handler) handleChats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	seq := h.signedIn(ctx, b, chatID)
	if seq == nil {
		return
	}

	seq.OpenPicker()
	h.sendPicker(ctx, b, chatID, seq, 0, 0)
}

func (h *Handler) sendPicker(ctx context.Context, b *bot.Bot, chatID int64, seq *service.Sequencer, page, messageID int) {
	view := seq.Snapshot()
	if err := tg.EditOrSend(ctx, b, chatID, messageID, pickerText(view), pickerKeyboard(view, page)); err != nil {
		slog.Error("send conversation picker", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) handleChatsPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	seq := middleware.GetClient(ctx)
	if seq == nil || seq.User() == nil {
		return
	}
	page, _ := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, "chats_page_"))
	chatID, messageID := callbackMessage(update)
	h.sendPicker(ctx, b, chatID, seq, page, messageID)
}

func (h *Handler) handleSelectChat(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	chatID, messageID := callbackMessage(update)
	seq := middleware.GetClient(ctx)
	if seq == nil || seq.User() == nil {
		answerCallback(ctx, b, update, "You are signed out.")
		return
	}

	id := strings.TrimPrefix(update.CallbackQuery.Data, "chat_")
	if err := seq.SelectConversation(ctx, id); err != nil {
		answerCallback(ctx, b, update, "")
		if !errors.Is(err, domain.ErrConversationNotFound) {
			slog.Error("select conversation", "chat_id", chatID, "conversation_id", id, "error", err)
		}
		h.closePicker(ctx, b, chatID, messageID, seq)
		h.sendError(ctx, b, chatID, err)
		return
	}
	answerCallback(ctx, b, update, "")
	h.closePicker(ctx, b, chatID, messageID, seq)
	h.showTimeline(ctx, b, chatID, seq)
}

func (h *Handler) handleNewChat(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")
	chatID, messageID := callbackMessage(update)
	seq := middleware.GetClient(ctx)
	if seq == nil || seq.User() == nil {
		return
	}

	h.closePicker(ctx, b, chatID, messageID, seq)
	h.newConversation(ctx, b, chatID, seq)
}

func (h *Handler) handleClosePicker(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")
	chatID, messageID := callbackMessage(update)
	if seq := middleware.GetClient(ctx); seq != nil {
		h.closePicker(ctx, b, chatID, messageID, seq)
	}
}

func (h *Handler) closePicker(ctx context.Context, b *bot.Bot, chatID int64, messageID int, seq *service.Sequencer) {
	seq.ClosePicker()
	if messageID != 0 {
		tg.DeleteMessage(ctx, b, chatID, messageID)
	}
}

func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	seq := h.signedIn(ctx, b, chatID)
	if seq == nil {
		return
	}
	h.newConversation(ctx, b, chatID, seq)
}

func (h *Handler) newConversation(ctx context.Context, b *bot.Bot, chatID int64, seq *service.Sequencer) {
	if _, err := seq.NewConversation(ctx); err != nil {
		if errors.Is(err, domain.ErrStaleResult) {
			return
		}
		slog.Error("create conversation", "chat_id", chatID, "error", err)
		h.tgLogger.LogError(err, "create conversation")
		h.sendError(ctx, b, chatID, err)
		return
	}
	h.showTimeline(ctx, b, chatID, seq)
}

func (h *Handler) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	seq := h.signedIn(ctx, b, chatID)
	if seq == nil {
		return
	}

	if err := seq.Reload(ctx); err != nil && !errors.Is(err, domain.ErrNoActiveConversation) {
		slog.Warn("reload history", "chat_id", chatID, "error", err)
	}
	h.showTimeline(ctx, b, chatID, seq)
}
