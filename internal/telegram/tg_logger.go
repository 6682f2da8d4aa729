package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/config"
)

// TelegramLogger mirrors notable events into topics of a log chat.
type TelegramLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewTelegramLogger(cfg *config.Config) *TelegramLogger {
	return &TelegramLogger{cfg: cfg}
}

// SetBot attaches the bot that sends log messages. It must be called before
// the bot starts polling; until then nothing is sent.
func (l *TelegramLogger) SetBot(b *bot.Bot) {
	l.bot = b
}

type LogType string

const (
	LogTypeError  LogType = "error"
	LogTypeSignUp LogType = "signUp"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.bot == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.LogSendTimeout)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       models.ParseModeMarkdownV1,
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *TelegramLogger) LogError(err error, where string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		EscapeMarkdown(where), err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *TelegramLogger) LogSignUp(chatID int64, email string) {
	msg := fmt.Sprintf("👤 *New Sign-Up*\n\n*Chat:* `%d`\n*Email:* %s",
		chatID, EscapeMarkdown(email))
	l.Log(LogTypeSignUp, msg)
}

func (l *TelegramLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeSignUp:
		return l.cfg.LogTopicSignUp
	default:
		return 0
	}
}
