package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
	tg "github.com/set-night/mindchat/internal/telegram"
)

const signInHint = "🔐 Sign in with `/signin <email> <password>` or create an account with `/signup <email> <password>`."

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot      *bot.Bot
	cfg      *config.Config
	tgLogger *tg.TelegramLogger
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot      *bot.Bot
	Cfg      *config.Config
	TgLogger *tg.TelegramLogger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:      deps.Bot,
		cfg:      deps.Cfg,
		tgLogger: deps.TgLogger,
	}
}

// signedIn returns the chat's client when a user is signed in, and otherwise
// tells the chat how to sign in.
func (h *Handler) signedIn(ctx context.Context, b *bot.Bot, chatID int64) *service.Sequencer {
	seq := middleware.GetClient(ctx)
	if seq == nil {
		return nil
	}
	if seq.User() == nil {
		h.send(ctx, b, chatID, signInHint, nil)
		return nil
	}
	return seq
}

func (h *Handler) send(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	if err := tg.SendLongMessage(ctx, b, chatID, text, markup); err != nil {
		slog.Error("send message", "chat_id", chatID, "error", err)
	}
}

// sendError shows err as a dismissable inline message.
func (h *Handler) sendError(ctx context.Context, b *bot.Bot, chatID int64, err error) {
	h.send(ctx, b, chatID, "⚠️ "+userMessage(err), tg.DismissKeyboard())
}

// showTimeline renders the active conversation of seq.
func (h *Handler) showTimeline(ctx context.Context, b *bot.Bot, chatID int64, seq *service.Sequencer) {
	h.send(ctx, b, chatID, renderTimeline(seq.Snapshot()), nil)
}

func answerCallback(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
}

// callbackMessage returns the chat and message a callback was pressed on.
func callbackMessage(update *models.Update) (chatID int64, messageID int) {
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		return msg.Chat.ID, msg.ID
	}
	return 0, 0
}

func userMessage(err error) string {
	var authErr *domain.AuthError
	var fetchErr *domain.FetchError
	switch {
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.Is(err, domain.ErrVerificationRequired):
		return "Check your inbox to verify your email, then sign in with /signin."
	case errors.As(err, &fetchErr):
		return "Could not load your conversations. Use /history to try again."
	case errors.Is(err, domain.ErrConversationNotFound):
		return "That conversation no longer exists. Use /chats to pick another one."
	case errors.Is(err, domain.ErrNoActiveConversation):
		return "No conversation is open. Start one with /new."
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "You are signed out. Sign in with /signin."
	case errors.Is(err, domain.ErrNotReady):
		return "Still starting up, try again in a moment."
	default:
		return "Something went wrong. Please try again."
	}
}
