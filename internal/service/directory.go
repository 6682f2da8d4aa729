package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

// Directory holds the signed-in user's conversations and which one is
// active.
type Directory struct {
	backend domain.ChatBackend

	mu            sync.Mutex
	userID        string
	conversations []domain.Conversation
	activeID      string
	pickerOpen    bool
}

func NewDirectory(backend domain.ChatBackend) *Directory {
	return &Directory{backend: backend}
}

// Reset empties the directory and binds it to userID ("" when signed out).
func (d *Directory) Reset(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userID = userID
	d.conversations = nil
	d.activeID = ""
	d.pickerOpen = false
}

// Load fetches the user's conversations. A user with none gets a default
// conversation created and activated. Results for a user who is no longer
// bound are discarded with ErrStaleResult.
func (d *Directory) Load(ctx context.Context, user *domain.User) error {
	list, err := d.backend.ListConversations(ctx, user.ID)
	if err != nil {
		return &domain.FetchError{Op: "list conversations", Err: err}
	}
	if len(list) == 0 {
		if d.UserID() != user.ID {
			return domain.ErrStaleResult
		}
		_, err := d.CreateDefault(ctx, user)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.userID != user.ID {
		return domain.ErrStaleResult
	}

	merged := make([]domain.Conversation, 0, len(list)+len(d.conversations))
	seen := make(map[string]struct{}, len(list))
	for _, c := range list {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		merged = append(merged, c)
	}
	// Conversations created while the fetch was in flight.
	for _, c := range d.conversations {
		if _, ok := seen[c.ID]; !ok {
			seen[c.ID] = struct{}{}
			merged = append(merged, c)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	d.conversations = merged

	if d.indexLocked(d.activeID) < 0 {
		d.activeID = merged[0].ID
	}
	return nil
}

// CreateDefault creates a conversation with the default title, puts it first
// and makes it active.
func (d *Directory) CreateDefault(ctx context.Context, user *domain.User) (*domain.Conversation, error) {
	conv, err := d.backend.CreateConversation(ctx, config.DefaultConversationTitle, user.ID)
	if err != nil {
		return nil, &domain.FetchError{Op: "create conversation", Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.userID != user.ID {
		slog.Debug("dropping conversation created for previous user", "conversation_id", conv.ID)
		return nil, domain.ErrStaleResult
	}
	d.prependLocked(*conv)
	d.activeID = conv.ID
	d.pickerOpen = false
	return conv, nil
}

// Prepend adds conv at the front unless it is already known.
func (d *Directory) Prepend(conv domain.Conversation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prependLocked(conv)
}

// Select makes id active and closes the picker. changed reports whether the
// active conversation actually moved.
func (d *Directory) Select(id string) (changed bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pickerOpen = false
	if id == d.activeID {
		return false, nil
	}
	if d.indexLocked(id) < 0 {
		return false, domain.ErrConversationNotFound
	}
	d.activeID = id
	return true, nil
}

// Active returns the active conversation id, or "".
func (d *Directory) Active() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeID
}

func (d *Directory) ActiveConversation() (domain.Conversation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.indexLocked(d.activeID)
	if i < 0 {
		return domain.Conversation{}, false
	}
	return d.conversations[i], true
}

// Conversations returns a copy of the list, newest first.
func (d *Directory) Conversations() []domain.Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Conversation(nil), d.conversations...)
}

func (d *Directory) UserID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.userID
}

func (d *Directory) OpenPicker() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pickerOpen = true
}

func (d *Directory) ClosePicker() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pickerOpen = false
}

func (d *Directory) PickerOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pickerOpen
}

func (d *Directory) prependLocked(conv domain.Conversation) {
	if d.indexLocked(conv.ID) >= 0 {
		return
	}
	d.conversations = append([]domain.Conversation{conv}, d.conversations...)
}

func (d *Directory) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, c := range d.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}
