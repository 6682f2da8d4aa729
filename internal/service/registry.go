package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/mindchat/internal/config"
)

// ClientFactory builds a Sequencer together with the function that releases
// its resources.
type ClientFactory func() (*Sequencer, func())

type client struct {
	seq      *Sequencer
	release  func()
	lastSeen time.Time
}

// Registry keeps one chat client per surface key (a Telegram chat id) and
// evicts clients idle longer than ttl.
type Registry struct {
	factory ClientFactory
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	clients map[int64]*client
}

func NewRegistry(factory ClientFactory, ttl time.Duration) *Registry {
	return &Registry{
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		clients: make(map[int64]*client),
	}
}

// Get returns the client for key, creating it on first use. created reports
// whether the caller must run Startup.
func (r *Registry) Get(key int64) (seq *Sequencer, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[key]; ok {
		c.lastSeen = r.now()
		return c.seq, false
	}
	seq, release := r.factory()
	r.clients[key] = &client{seq: seq, release: release, lastSeen: r.now()}
	return seq, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep closes clients idle since before now-ttl and returns how many it
// removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var idle []*client
	for key, c := range r.clients {
		if now.Sub(c.lastSeen) > r.ttl {
			idle = append(idle, c)
			delete(r.clients, key)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.seq.Close()
		if c.release != nil {
			c.release()
		}
	}
	return len(idle)
}

// Run sweeps periodically until ctx is done, then closes every client.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(config.ClientSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		case <-ticker.C:
			if n := r.Sweep(r.now()); n > 0 {
				slog.Info("evicted idle clients", "count", n)
			}
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[int64]*client)
	r.mu.Unlock()

	for _, c := range clients {
		c.seq.Close()
		if c.release != nil {
			c.release()
		}
	}
}
