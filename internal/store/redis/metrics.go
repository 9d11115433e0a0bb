package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/taust/internal/domain"
)

// Each metric is one sorted set member scored by its collection time in
// microseconds (exact in a float64). The member is
// "<collected nanos, 20 digits>:<arrival nanos, 20 digits>:<raw payload>".
// Equal scores order lexically by member, so the sub-microsecond collection
// time decides first and arrival only breaks exact timestamp ties.

func encodeMember(collectedAt time.Time, arrival time.Time, raw []byte) string {
	var b strings.Builder
	b.Grow(42 + len(raw))
	fmt.Fprintf(&b, "%020d:%020d:", collectedAt.UnixNano(), arrival.UnixNano())
	b.Write(raw)
	return b.String()
}

func decodeMember(serverID, member string) (domain.Metric, error) {
	parts := strings.SplitN(member, ":", 3)
	if len(parts) != 3 {
		return domain.Metric{}, fmt.Errorf("malformed metric member for server %s", serverID)
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return domain.Metric{}, fmt.Errorf("malformed metric timestamp for server %s: %w", serverID, err)
	}
	return domain.Metric{
		ServerID:    serverID,
		CollectedAt: time.Unix(0, nanos).UTC(),
		Payload:     domain.ParsePayload([]byte(parts[2])),
	}, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

// PutMetric appends a metric to the server's history and trims the oldest
// entries beyond the history limit, in one MULTI/EXEC transaction.
func (s *Store) PutMetric(ctx context.Context, serverID string, collectedAt time.Time, payload []byte) error {
	key := MetricsKey(serverID)
	member := encodeMember(collectedAt, s.now(), payload)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score(collectedAt), Member: member})
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.historyLimit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Unavailable("put metric", err)
	}
	return nil
}

// GetLatest returns the metric with the newest collection time.
func (s *Store) GetLatest(ctx context.Context, serverID string) (domain.Metric, bool, error) {
	metrics, err := s.Recent(ctx, serverID, 1)
	if err != nil || len(metrics) == 0 {
		return domain.Metric{}, false, err
	}
	return metrics[0], true, nil
}

// Recent returns up to limit metrics, newest first.
func (s *Store) Recent(ctx context.Context, serverID string, limit int) ([]domain.Metric, error) {
	if limit <= 0 {
		return []domain.Metric{}, nil
	}
	members, err := s.client.ZRevRange(ctx, MetricsKey(serverID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, domain.Unavailable("read metrics", err)
	}

	metrics := make([]domain.Metric, 0, len(members))
	for _, m := range members {
		metric, err := decodeMember(serverID, m)
		if err != nil {
			// Skip members not written by this store
			continue
		}
		metrics = append(metrics, metric)
	}
	return metrics, nil
}

// PruneBefore removes metrics collected before cutoff for every server,
// always keeping each server's newest metric. It returns how many were removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	iter := s.client.Scan(ctx, 0, KeyPrefixMetrics+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, ok := ExtractServerID(key); !ok {
			continue
		}
		n, err := s.pruneKey(ctx, key, cutoff)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, domain.Unavailable("scan metrics", err)
	}
	return removed, nil
}

func (s *Store) pruneKey(ctx context.Context, key string, cutoff time.Time) (int64, error) {
	newest, err := s.client.ZRevRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return 0, domain.Unavailable("prune metrics", err)
	}
	if len(newest) == 0 {
		return 0, nil
	}

	var n int64
	if newest[0].Score < score(cutoff) {
		// Everything is older than the cutoff: keep only the top-ranked member.
		n, err = s.client.ZRemRangeByRank(ctx, key, 0, -2).Result()
	} else {
		bound := "(" + strconv.FormatInt(cutoff.UnixMicro(), 10)
		n, err = s.client.ZRemRangeByScore(ctx, key, "-inf", bound).Result()
	}
	if err != nil {
		return 0, domain.Unavailable("prune metrics", err)
	}
	return n, nil
}
