package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/domain"
)

var u1 = &domain.User{ID: "u1", Email: "u1@example.com"}

func TestDirectoryLoadWithoutConversationsCreatesDefault(t *testing.T) {
	backend := newFakeBackend()
	d := NewDirectory(backend)
	d.Reset(u1.ID)

	require.NoError(t, d.Load(context.Background(), u1))

	convs := d.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "New Conversation", convs[0].Title)
	assert.Equal(t, convs[0].ID, d.Active())
	assert.Equal(t, 1, backend.created)
}

func TestDirectoryLoadActivatesNewestOnlyWhenNothingActive(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation("u1", "old", 2*time.Hour)
	backend.addConversation("u1", "newest", 0)
	d := NewDirectory(backend)
	d.Reset(u1.ID)

	require.NoError(t, d.Load(context.Background(), u1))
	assert.Equal(t, "newest", d.Active())
	assert.Equal(t, "newest", d.Conversations()[0].ID)

	changed, err := d.Select("old")
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, d.Load(context.Background(), u1))
	assert.Equal(t, "old", d.Active())
}

func TestDirectoryLoadFailureLeavesStateUntouched(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation("u1", "c1", 0)
	d := NewDirectory(backend)
	d.Reset(u1.ID)
	require.NoError(t, d.Load(context.Background(), u1))

	backend.listErr = errors.New("boom")
	err := d.Load(context.Background(), u1)
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "c1", d.Active())
	assert.Len(t, d.Conversations(), 1)

	backend.listErr = nil
	backend.createErr = errors.New("boom")
	_, err = d.CreateDefault(context.Background(), u1)
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "c1", d.Active())
	assert.Len(t, d.Conversations(), 1)
}

func TestDirectoryLoadForPreviousUserIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation("u1", "c1", 0)
	d := NewDirectory(backend)
	d.Reset(u1.ID)

	g := backend.hold("conversations:u1")
	errs := make(chan error, 1)
	go func() { errs <- d.Load(context.Background(), u1) }()
	g.wait(t)

	d.Reset("u2")
	g.open()

	assert.ErrorIs(t, <-errs, domain.ErrStaleResult)
	assert.Empty(t, d.Conversations())
	assert.Empty(t, d.Active())
}

func TestDirectoryCreateDefaultPrependsAndActivates(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation("u1", "c1", 0)
	d := NewDirectory(backend)
	d.Reset(u1.ID)
	require.NoError(t, d.Load(context.Background(), u1))
	d.OpenPicker()

	conv, err := d.CreateDefault(context.Background(), u1)
	require.NoError(t, err)

	convs := d.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, conv.ID, convs[0].ID)
	assert.Equal(t, conv.ID, d.Active())
	assert.False(t, d.PickerOpen())
}

func TestDirectorySelect(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation("u1", "c1", 0)
	backend.addConversation("u1", "c2", time.Hour)
	d := NewDirectory(backend)
	d.Reset(u1.ID)
	require.NoError(t, d.Load(context.Background(), u1))

	d.OpenPicker()
	changed, err := d.Select("c1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, d.PickerOpen())

	d.OpenPicker()
	_, err = d.Select("missing")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	assert.False(t, d.PickerOpen())
	assert.Equal(t, "c1", d.Active())

	changed, err = d.Select("c2")
	require.NoError(t, err)
	assert.True(t, changed)
	conv, ok := d.ActiveConversation()
	require.True(t, ok)
	assert.Equal(t, "Chat c2", conv.Title)
}

func TestDirectoryPrependDeduplicates(t *testing.T) {
	d := NewDirectory(newFakeBackend())
	conv := domain.Conversation{ID: "c1", Title: "x"}
	d.Prepend(conv)
	d.Prepend(conv)
	assert.Len(t, d.Conversations(), 1)
	assert.Empty(t, d.Active())
}
