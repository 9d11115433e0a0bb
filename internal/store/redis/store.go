package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/taust/internal/domain"
)

const (
	// DefaultHistoryLimit caps how many metrics are kept per server
	DefaultHistoryLimit = 1000
	// DefaultSummaryTTL is the default TTL for cached page summaries
	DefaultSummaryTTL = 15 * time.Second
)

// Store handles Redis operations for metrics and the summary cache
type Store struct {
	client       *redis.Client
	historyLimit int
	now          func() time.Time
}

// NewStore creates a new Redis store keeping at most historyLimit metrics
// per server. A non-positive limit uses DefaultHistoryLimit.
func NewStore(client *redis.Client, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		client:       client,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Ping reports whether Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return domain.Unavailable("ping redis", s.client.Ping(ctx).Err())
}
