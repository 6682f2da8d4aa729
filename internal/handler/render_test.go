package handler

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/service"
)

var at = time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC)

func viewWith(timeline service.TimelineView) service.View {
	return service.View{
		Ready:         true,
		User:          &domain.User{ID: "u1"},
		Conversations: []domain.Conversation{{ID: "c1", Title: "New Conversation"}},
		ActiveID:      "c1",
		Timeline:      timeline,
	}
}

func TestRenderTimeline(t *testing.T) {
	tests := []struct {
		name string
		view service.View
		want string
	}{
		{
			name: "empty conversation",
			view: viewWith(service.TimelineView{ConversationID: "c1", State: service.TimelineLoaded}),
			want: "💬 *New Conversation*\n\nSend Message to start chat...",
		},
		{
			name: "loading",
			view: viewWith(service.TimelineView{ConversationID: "c1", State: service.TimelineLoading}),
			want: "💬 *New Conversation*\n\n⏳ Loading messages...",
		},
		{
			name: "fetch failed",
			view: viewWith(service.TimelineView{ConversationID: "c1", State: service.TimelineEmpty, Err: &domain.FetchError{Op: "list messages", Err: errors.New("x")}}),
			want: "💬 *New Conversation*\n\n⚠️ Could not load messages. Use /history to try again.",
		},
		{
			name: "messages",
			view: viewWith(service.TimelineView{ConversationID: "c1", State: service.TimelineLoaded, Messages: []domain.Message{
				{Content: "Hello_world", Sender: domain.SenderUser, CreatedAt: at},
				{Content: "Hi *there*!", Sender: domain.SenderBot, CreatedAt: at},
			}}),
			want: "💬 *New Conversation*\n\n👤 *You* · 10:30\nHello\\_world\n\n🤖 *Bot* · 10:30\nHi *there*!",
		},
		{
			name: "no conversation",
			view: service.View{Ready: true, User: &domain.User{ID: "u1"}},
			want: "💬 *Conversation*\n\nNo conversation yet. Start one with /new.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderTimeline(tt.view))
		})
	}
}

func TestPickerKeyboard(t *testing.T) {
	view := service.View{ActiveID: "c3"}
	for i := 1; i <= 12; i++ {
		view.Conversations = append(view.Conversations, domain.Conversation{ID: fmt.Sprintf("c%d", i), Title: fmt.Sprintf("Chat %d", i)})
	}

	first := pickerKeyboard(view, 0).InlineKeyboard
	require.Len(t, first, 12)
	assert.Equal(t, "chat_c1", first[0][0].CallbackData)
	assert.Equal(t, "✅ Chat 3", first[2][0].Text)
	assert.Equal(t, "new_chat", first[10][0].CallbackData)
	assert.Equal(t, "close_picker", first[10][1].CallbackData)
	assert.Equal(t, "chats_page_1", first[11][len(first[11])-1].CallbackData)

	second := pickerKeyboard(view, 5).InlineKeyboard
	require.Len(t, second, 4)
	assert.Equal(t, "chat_c11", second[0][0].CallbackData)
	assert.Equal(t, "chats_page_0", second[3][0].CallbackData)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Incorrect email or password",
		userMessage(&domain.AuthError{Op: "sign in", Message: "Incorrect email or password"}))
	assert.Contains(t, userMessage(domain.ErrVerificationRequired), "verify your email")
	assert.Contains(t, userMessage(&domain.SendError{ConversationID: "c1", Err: errors.New("x")}), "Something went wrong")
}
