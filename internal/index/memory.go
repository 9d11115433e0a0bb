package index

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/taust/internal/domain"
)

// DefaultHistoryLimit caps how many metrics are kept per server
const DefaultHistoryLimit = 1000

// series is the metric history of one server, oldest first.
// Its own mutex serializes writers for that server only.
type series struct {
	mu      sync.Mutex
	metrics []domain.Metric
}

// MemoryMetrics stores metric history in process memory.
// It is used when no Redis is configured.
type MemoryMetrics struct {
	mu           sync.RWMutex
	series       map[string]*series // serverID -> history
	historyLimit int
}

// NewMemoryMetrics creates an empty store keeping at most historyLimit
// metrics per server. A non-positive limit uses DefaultHistoryLimit.
func NewMemoryMetrics(historyLimit int) *MemoryMetrics {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &MemoryMetrics{
		series:       make(map[string]*series),
		historyLimit: historyLimit,
	}
}

func (m *MemoryMetrics) get(serverID string) (*series, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.series[serverID]
	return s, ok
}

func (m *MemoryMetrics) getOrCreate(serverID string) *series {
	if s, ok := m.get(serverID); ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.series[serverID]
	if !ok {
		s = &series{}
		m.series[serverID] = s
	}
	return s
}

// PutMetric inserts a metric in collection-time order. A metric with the
// same timestamp as an existing one lands after it and becomes the latest.
func (m *MemoryMetrics) PutMetric(ctx context.Context, serverID string, collectedAt time.Time, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	metric := domain.Metric{
		ServerID:    serverID,
		CollectedAt: collectedAt.UTC(),
		Payload:     domain.ParsePayload(payload),
	}

	s := m.getOrCreate(serverID)
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.metrics), func(i int) bool {
		return s.metrics[i].CollectedAt.After(collectedAt)
	})
	s.metrics = append(s.metrics, domain.Metric{})
	copy(s.metrics[i+1:], s.metrics[i:])
	s.metrics[i] = metric

	if over := len(s.metrics) - m.historyLimit; over > 0 {
		s.metrics = append([]domain.Metric(nil), s.metrics[over:]...)
	}
	return nil
}

// GetLatest returns the metric with the newest collection time.
func (m *MemoryMetrics) GetLatest(ctx context.Context, serverID string) (domain.Metric, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Metric{}, false, err
	}

	s, ok := m.get(serverID)
	if !ok {
		return domain.Metric{}, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.metrics) == 0 {
		return domain.Metric{}, false, nil
	}
	return s.metrics[len(s.metrics)-1], true, nil
}

// Recent returns up to limit metrics, newest first.
func (m *MemoryMetrics) Recent(ctx context.Context, serverID string, limit int) ([]domain.Metric, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := []domain.Metric{}
	s, ok := m.get(serverID)
	if !ok || limit <= 0 {
		return out, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.metrics) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.metrics[i])
	}
	return out, nil
}

// PruneBefore drops metrics collected before cutoff, always keeping each
// server's newest metric. It returns how many were removed.
func (m *MemoryMetrics) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.RLock()
	all := make([]*series, 0, len(m.series))
	for _, s := range m.series {
		all = append(all, s)
	}
	m.mu.RUnlock()

	var removed int64
	for _, s := range all {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		removed += s.pruneBefore(cutoff)
	}
	return removed, nil
}

func (s *series) pruneBefore(cutoff time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.metrics) <= 1 {
		return 0
	}
	// First index collected at or after cutoff, never past the newest.
	i := sort.Search(len(s.metrics), func(i int) bool {
		return !s.metrics[i].CollectedAt.Before(cutoff)
	})
	if i > len(s.metrics)-1 {
		i = len(s.metrics) - 1
	}
	if i == 0 {
		return 0
	}
	s.metrics = append([]domain.Metric(nil), s.metrics[i:]...)
	return int64(i)
}

// Count returns the number of servers with metric history
func (m *MemoryMetrics) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.series)
}

// Ping always succeeds; it lets the memory store stand in for Redis in readiness checks.
func (m *MemoryMetrics) Ping(ctx context.Context) error {
	return ctx.Err()
}
