package status

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/taust/internal/domain"
)

// PageRepository is the persistence the service needs. Lookups return
// found=false for absent rows and a domain.ErrStoreUnavailable error for
// infrastructure failures.
type PageRepository interface {
	GetPage(ctx context.Context, id string) (domain.Page, bool, error)
	FindPageByHostname(ctx context.Context, hostname string) (domain.Page, bool, error)
	FindPageByTitle(ctx context.Context, title string) (domain.Page, bool, error)
	ListPages(ctx context.Context) ([]domain.Page, error)
	SavePage(ctx context.Context, p *domain.Page) error
	// UpdatePage saves the row and the non-nil memberships atomically.
	UpdatePage(ctx context.Context, p *domain.Page, serverIDs, domainIDs *[]string) error
	DeletePage(ctx context.Context, id string) (bool, error)
	SetServers(ctx context.Context, pageID string, serverIDs []string) error
	SetDomains(ctx context.Context, pageID string, domainIDs []string) error

	GetServer(ctx context.Context, id string) (domain.Server, bool, error)
	FindServerByHostname(ctx context.Context, hostname string) (domain.Server, bool, error)
	ListServers(ctx context.Context) ([]domain.Server, error)
	SaveServer(ctx context.Context, s *domain.Server) error

	GetDomain(ctx context.Context, id string) (domain.Domain, bool, error)
	FindDomainByName(ctx context.Context, name string) (domain.Domain, bool, error)
	ListDomains(ctx context.Context) ([]domain.Domain, error)
	SaveDomain(ctx context.Context, d *domain.Domain) error

	ListAnnouncements(ctx context.Context, pageID string) ([]domain.Announcement, error)
	SaveAnnouncement(ctx context.Context, a *domain.Announcement) error
}

// MetricStore keeps per-server metric history; GetLatest is by collection time.
type MetricStore interface {
	PutMetric(ctx context.Context, serverID string, collectedAt time.Time, payload []byte) error
	GetLatest(ctx context.Context, serverID string) (domain.Metric, bool, error)
	Recent(ctx context.Context, serverID string, limit int) ([]domain.Metric, error)
}

// SummaryCache stores encoded page summaries for a short time.
type SummaryCache interface {
	CacheSummary(ctx context.Context, pageID string, data []byte, ttl time.Duration) error
	GetCachedSummary(ctx context.Context, pageID string) ([]byte, bool, error)
	InvalidateSummary(ctx context.Context, pageID string) error
}
