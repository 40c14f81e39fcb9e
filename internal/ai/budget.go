package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Budget tracks AI token usage per learner per UTC day.
type Budget interface {
	// Allow reports whether the learner has budget left today.
	Allow(ctx context.Context, learnerID string) (bool, error)
	// Record adds token usage for the learner.
	Record(ctx context.Context, learnerID string, tokens int) error
	// Usage returns today's usage and the daily limit (0 means unlimited).
	Usage(ctx context.Context, learnerID string) (used, limit int64, err error)
}

func budgetKey(day time.Time, learnerID string) string {
	return "ai:budget:" + day.UTC().Format(time.DateOnly) + ":" + learnerID
}

// MemoryBudget is an in-memory daily budget for development and tests.
type MemoryBudget struct {
	limit int64
	usage map[string]int64
	now   func() time.Time
	mu    sync.RWMutex
}

// NewMemoryBudget creates a budget allowing limit tokens per learner per day.
// A limit of 0 disables the check.
func NewMemoryBudget(limit int64) *MemoryBudget {
	return &MemoryBudget{
		limit: limit,
		usage: make(map[string]int64),
		now:   time.Now,
	}
}

func (b *MemoryBudget) Allow(_ context.Context, learnerID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[budgetKey(b.now(), learnerID)] < b.limit, nil
}

func (b *MemoryBudget) Record(_ context.Context, learnerID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[budgetKey(b.now(), learnerID)] += int64(tokens)
	return nil
}

func (b *MemoryBudget) Usage(_ context.Context, learnerID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[budgetKey(b.now(), learnerID)], b.limit, nil
}

// budgetTTL outlives the day the counter belongs to.
const budgetTTL = 48 * time.Hour

// RedisBudget keeps daily counters in Redis so every instance shares them.
type RedisBudget struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

// NewRedisBudget creates a Redis-backed budget. A limit of 0 disables the check.
func NewRedisBudget(client *redis.Client, limit int64) *RedisBudget {
	return &RedisBudget{client: client, limit: limit, now: time.Now}
}

func (b *RedisBudget) Allow(ctx context.Context, learnerID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, _, err := b.Usage(ctx, learnerID)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, learnerID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	key := budgetKey(b.now(), learnerID)
	pipe := b.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, budgetTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record token usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, learnerID string) (int64, int64, error) {
	used, err := b.client.Get(ctx, budgetKey(b.now(), learnerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, b.limit, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read token usage: %w", err)
	}
	return used, b.limit, nil
}
