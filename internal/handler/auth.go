package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	tg "github.com/set-night/mindchat/internal/telegram"
)

func (h *Handler) handleSignIn(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.authenticate(ctx, b, update, false)
}

func (h *Handler) handleSignUp(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.authenticate(ctx, b, update, true)
}

func (h *Handler) authenticate(ctx context.Context, b *bot.Bot, update *models.Update, signUp bool) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID
	seq := middleware.GetClient(ctx)
	if seq == nil {
		return
	}

	command := "/signin"
	if signUp {
		command = "/signup"
	}
	args := strings.Fields(msg.Text)
	if len(args) != 3 {
		h.send(ctx, b, chatID, fmt.Sprintf("Usage: `%s <email> <password>`", command), nil)
		return
	}
	// Credentials never stay in the chat history
	tg.DeleteMessage(ctx, b, chatID, msg.ID)

	email, password := args[1], args[2]
	if user := seq.User(); user != nil && strings.EqualFold(user.Email, email) {
		h.send(ctx, b, chatID, fmt.Sprintf("✅ Already signed in as %s.", tg.EscapeMarkdown(user.Email)), nil)
		return
	}

	var err error
	if signUp {
		err = seq.SignUp(ctx, email, password)
	} else {
		err = seq.SignIn(ctx, email, password)
	}
	if errors.Is(err, domain.ErrVerificationRequired) {
		h.tgLogger.LogSignUp(chatID, email)
		h.send(ctx, b, chatID, "📧 Account created. "+userMessage(err), nil)
		return
	}
	if err != nil {
		slog.Info("authentication failed", "chat_id", chatID, "sign_up", signUp, "error", err)
		h.sendError(ctx, b, chatID, err)
		return
	}
	if signUp {
		h.tgLogger.LogSignUp(chatID, email)
	}

	user := seq.User()
	if user == nil {
		h.sendError(ctx, b, chatID, domain.ErrNotAuthenticated)
		return
	}
	h.send(ctx, b, chatID, fmt.Sprintf("✅ Signed in as %s.\n\n%s", tg.EscapeMarkdown(user.Email), commandsHelp), nil)
	h.showTimeline(ctx, b, chatID, seq)
}

func (h *Handler) handleLogout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	seq := h.signedIn(ctx, b, chatID)
	if seq == nil {
		return
	}

	if err := seq.SignOut(ctx); err != nil {
		slog.Error("sign out", "chat_id", chatID, "error", err)
		h.sendError(ctx, b, chatID, err)
		return
	}
	h.send(ctx, b, chatID, "👋 Signed out.\n\n"+signInHint, nil)
}
