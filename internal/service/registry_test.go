package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryKeepsOneClientPerKey(t *testing.T) {
	built := 0
	reg := NewRegistry(func() (*Sequencer, func()) {
		built++
		return NewSequencer(newFakeProvider(nil), newFakeBackend()), nil
	}, time.Hour)

	a, created := reg.Get(1)
	assert.True(t, created)
	again, created := reg.Get(1)
	assert.False(t, created)
	assert.Same(t, a, again)

	b, created := reg.Get(2)
	assert.True(t, created)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, built)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistrySweepClosesIdleClients(t *testing.T) {
	now := baseTime
	providers := map[int64]*fakeProvider{}
	released := 0
	var next int64
	reg := NewRegistry(func() (*Sequencer, func()) {
		next++
		p := newFakeProvider(nil)
		providers[next] = p
		return NewSequencer(p, newFakeBackend()), func() { released++ }
	}, time.Hour)
	reg.now = func() time.Time { return now }

	reg.Get(1)
	reg.Get(2)
	now = now.Add(50 * time.Minute)
	reg.Get(2)

	assert.Zero(t, reg.Sweep(now.Add(5*time.Minute)))
	assert.Equal(t, 1, reg.Sweep(now.Add(30*time.Minute)))
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, released)
	assert.Equal(t, 0, providers[1].listenerCount())
	assert.Equal(t, 1, providers[2].listenerCount())

	_, created := reg.Get(1)
	assert.True(t, created)
}

func TestRegistryRunClosesClientsOnShutdown(t *testing.T) {
	released := 0
	reg := NewRegistry(func() (*Sequencer, func()) {
		return NewSequencer(newFakeProvider(nil), newFakeBackend()), func() { released++ }
	}, time.Hour)
	reg.Get(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, reg.Run(ctx))
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 1, released)
}
