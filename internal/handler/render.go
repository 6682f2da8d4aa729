package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
	tg "github.com/set-night/mindchat/internal/telegram"
)

const emptyStatePrompt = "Send Message to start chat..."

func renderTimeline(view service.View) string {
	var sb strings.Builder

	title := "Conversation"
	for _, c := range view.Conversations {
		if c.ID == view.ActiveID {
			title = c.Title
			break
		}
	}
	fmt.Fprintf(&sb, "💬 *%s*\n\n", tg.EscapeMarkdown(title))

	tl := view.Timeline
	var fetchErr *domain.FetchError
	switch {
	case view.ActiveID == "" && errors.As(view.Err, &fetchErr):
		sb.WriteString("⚠️ Could not load your conversations. Use /history to try again.")
	case view.ActiveID == "":
		sb.WriteString("No conversation yet. Start one with /new.")
	case tl.State == service.TimelineLoading:
		sb.WriteString("⏳ Loading messages...")
	case tl.Err != nil:
		sb.WriteString("⚠️ Could not load messages. Use /history to try again.")
	case len(tl.Messages) == 0:
		sb.WriteString(emptyStatePrompt)
	default:
		for i, m := range tl.Messages {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(renderMessage(m))
		}
	}
	return sb.String()
}

func renderMessage(m domain.Message) string {
	stamp := m.CreatedAt.Format("15:04")
	if m.Sender == domain.SenderBot {
		return fmt.Sprintf("🤖 *Bot* · %s\n%s", stamp, m.Content)
	}
	return fmt.Sprintf("👤 *You* · %s\n%s", stamp, tg.EscapeMarkdown(m.Content))
}

func pickerText(view service.View) string {
	return fmt.Sprintf("📂 *Conversations* (%d)", len(view.Conversations))
}

func pickerKeyboard(view service.View, page int) *models.InlineKeyboardMarkup {
	perPage := config.ConversationsPerPicker
	totalPages := (len(view.Conversations) + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	page = max(0, min(page, totalPages-1))

	var rows [][]models.InlineKeyboardButton
	start := page * perPage
	end := min(start+perPage, len(view.Conversations))
	for _, c := range view.Conversations[start:end] {
		label := tg.Truncate(c.Title, config.MaxTitleLen)
		if c.ID == view.ActiveID {
			label = "✅ " + label
		}
		rows = append(rows, tg.ButtonRow(tg.InlineButton(label, "chat_"+c.ID)))
	}

	rows = append(rows, tg.ButtonRow(
		tg.InlineButton("➕ New chat", "new_chat"),
		tg.InlineButton("✖️ Close", "close_picker"),
	))
	if pagination := tg.PaginationRow(page, totalPages, "chats_page_"); pagination != nil {
		rows = append(rows, pagination)
	}
	return tg.InlineKeyboard(rows...)
}
