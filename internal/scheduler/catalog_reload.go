package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/taust/internal/logger"
	"github.com/MrSnakeDoc/taust/internal/sources/catalog"
)

// CatalogReloader periodically applies the catalog file to the store
type CatalogReloader struct {
	loader        *catalog.Loader
	target        catalog.Target
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}

	mu         sync.RWMutex
	lastReload time.Time
	lastReport catalog.Report
	lastErr    error
}

// NewCatalogReloader creates a new catalog reloader
func NewCatalogReloader(
	catalogFile string,
	target catalog.Target,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *CatalogReloader {
	return &CatalogReloader{
		loader:        catalog.NewLoader(catalogFile),
		target:        target,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start applies the catalog once, then on every tick and manual trigger.
// A failing first load does not prevent the loop from starting.
func (cr *CatalogReloader) Start(ctx context.Context) error {
	if err := cr.Reload(ctx); err != nil {
		cr.logger.Warn("initial catalog reload failed", logger.Error(err))
	}

	ticker := time.NewTicker(cr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload catalog", logger.Error(err))
				}
			case <-cr.manualTrigger:
				cr.logger.Info("manual catalog reload triggered")
				if err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload catalog", logger.Error(err))
				}
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader. Safe to call more than once.
func (cr *CatalogReloader) Stop() {
	cr.stopOnce.Do(func() { close(cr.stopCh) })
}

// Reload loads, normalizes and applies the catalog file. Entry-level
// problems are logged and returned; valid entries are still applied.
func (cr *CatalogReloader) Reload(ctx context.Context) error {
	cr.logger.Info("reloading catalog", logger.String("file", cr.loader.Path()))

	raw, err := cr.loader.Load()
	if err != nil {
		cr.record(catalog.Report{}, err)
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	cat, normErr := catalog.Normalize(raw)
	if normErr != nil {
		cr.logger.Warn("catalog has invalid entries", logger.Error(normErr))
	}

	report, applyErr := catalog.Apply(ctx, cr.target, cat)
	cr.logger.Info("catalog applied",
		logger.Int("servers_created", report.ServersCreated),
		logger.Int("domains_created", report.DomainsCreated),
		logger.Int("pages_created", report.PagesCreated),
		logger.Int("pages_updated", report.PagesUpdated))

	err = applyErr
	if err == nil {
		err = normErr
	}
	cr.record(report, err)
	if applyErr != nil {
		return fmt.Errorf("failed to apply catalog: %w", applyErr)
	}
	return normErr
}

func (cr *CatalogReloader) record(r catalog.Report, err error) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.lastReload = time.Now()
	cr.lastReport = r
	cr.lastErr = err
}

// LastReload returns when the last reload ran, its report and its error.
func (cr *CatalogReloader) LastReload() (time.Time, catalog.Report, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.lastReload, cr.lastReport, cr.lastErr
}
