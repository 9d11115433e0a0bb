package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/taust/internal/logger"
)

const (
	// DefaultMetricRetention is how long metric history is kept
	DefaultMetricRetention = 7 * 24 * time.Hour
)

// MetricPruner drops metric history older than a cutoff, keeping each
// server's newest metric.
type MetricPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MetricRetention periodically prunes old metrics
type MetricRetention struct {
	store     MetricPruner
	logger    logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewMetricRetention creates a retention worker. A zero retention uses
// DefaultMetricRetention.
func NewMetricRetention(
	store MetricPruner,
	log logger.Logger,
	interval time.Duration,
	retention time.Duration,
) *MetricRetention {
	if retention <= 0 {
		retention = DefaultMetricRetention
	}

	return &MetricRetention{
		store:     store,
		logger:    log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start prunes once, then on every tick
func (mr *MetricRetention) Start(ctx context.Context) error {
	if _, err := mr.Prune(ctx); err != nil {
		mr.logger.Warn("initial metric pruning failed", logger.Error(err))
	}

	ticker := time.NewTicker(mr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := mr.Prune(ctx); err != nil {
					mr.logger.Error("metric pruning failed", logger.Error(err))
				}
			case <-mr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the worker. Safe to call more than once.
func (mr *MetricRetention) Stop() {
	mr.stopOnce.Do(func() { close(mr.stopCh) })
}

// Prune removes metrics older than the retention period
func (mr *MetricRetention) Prune(ctx context.Context) (int64, error) {
	cutoff := mr.now().Add(-mr.retention)
	removed, err := mr.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return removed, err
	}

	if removed > 0 {
		mr.logger.Info("metric pruning completed",
			logger.Int64("removed", removed),
			logger.Time("cutoff", cutoff))
	} else {
		mr.logger.Debug("no metrics to prune")
	}
	return removed, nil
}
