// Package realtime pushes leaderboard changes to connected clients. A Bus
// carries change notifications between server instances and a Hub turns each
// notification into a fresh leaderboard per websocket viewer.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LeaderboardChannel carries leaderboard change notifications.
const LeaderboardChannel = "onboarding:leaderboard"

// Notification says the leaderboard changed and why.
type Notification struct {
	Reason    string    `json:"reason"`
	LearnerID string    `json:"learner_id,omitempty"`
	At        time.Time `json:"at"`
}

// Bus publishes payloads on named channels and forwards them to subscribers.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe calls onMsg for every payload published on channel until ctx
	// is done. It returns once the subscription is active.
	Subscribe(ctx context.Context, channel string, onMsg func(payload []byte)) error
	Close() error
}

// MemoryBus is an in-process Bus for tests and single-instance deployments.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]func([]byte)
	nextID int
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[int]func([]byte))}
}

func (b *MemoryBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("memory bus closed")
	}
	for _, fn := range b.subs[channel] {
		fn(append([]byte(nil), payload...))
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, channel string, onMsg func([]byte)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("memory bus closed")
	}
	id := b.nextID
	b.nextID++
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]func([]byte))
	}
	b.subs[channel][id] = onMsg
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[int]func([]byte))
	return nil
}
