package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/taust/internal/domain"
)

// CacheSummary stores an encoded page summary
func (s *Store) CacheSummary(ctx context.Context, pageID string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	if err := s.client.Set(ctx, SummaryKey(pageID), data, ttl).Err(); err != nil {
		return domain.Unavailable("cache summary", err)
	}
	return nil
}

// GetCachedSummary retrieves a cached page summary. A miss is not an error.
func (s *Store) GetCachedSummary(ctx context.Context, pageID string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, SummaryKey(pageID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}
		return nil, false, domain.Unavailable("get cached summary", err)
	}
	return data, true, nil
}

// InvalidateSummary removes a cached page summary
func (s *Store) InvalidateSummary(ctx context.Context, pageID string) error {
	if err := s.client.Del(ctx, SummaryKey(pageID)).Err(); err != nil {
		return domain.Unavailable("invalidate summary", err)
	}
	return nil
}

// FlushSummaries removes all cached page summaries
func (s *Store) FlushSummaries(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixSummary+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return domain.Unavailable("flush summaries", fmt.Errorf("delete %s: %w", iter.Val(), err))
		}
	}
	if err := iter.Err(); err != nil {
		return domain.Unavailable("flush summaries", err)
	}
	return nil
}
