package status

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/MrSnakeDoc/taust/internal/domain"
	"github.com/MrSnakeDoc/taust/internal/logger"
)

const (
	DefaultCacheTTL    = 15 * time.Second
	DefaultRecentLimit = 20

	// MaxClockSkew bounds how far ahead of receipt a report may be dated.
	MaxClockSkew = time.Minute
)

// Options tunes the aggregation policy.
type Options struct {
	Policy         domain.SchedulePolicy
	HistoryDays    int
	StaleThreshold time.Duration
	CacheTTL       time.Duration
	RecentLimit    int // metrics returned by ServerHealth
}

// Service runs the aggregation engine against the stores.
type Service struct {
	repo      PageRepository
	metrics   MetricStore
	cache     SummaryCache // nil disables summary caching
	policy    domain.SchedulePolicy
	projector domain.Projector
	stale     time.Duration
	cacheTTL  time.Duration
	recent    int
	now       func() time.Time
	log       logger.Logger
}

// NewService wires the engine. cache may be nil.
func NewService(repo PageRepository, metrics MetricStore, cache SummaryCache, opts Options, log logger.Logger) *Service {
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = domain.DefaultStaleThreshold
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	if opts.Policy.Location == nil {
		opts.Policy.Location = time.UTC
	}
	return &Service{
		repo:      repo,
		metrics:   metrics,
		cache:     cache,
		policy:    opts.Policy,
		projector: domain.NewProjector(opts.Policy, opts.HistoryDays),
		stale:     opts.StaleThreshold,
		cacheTTL:  opts.CacheTTL,
		recent:    opts.RecentLimit,
		now:       time.Now,
		log:       log,
	}
}

// Location is the time zone used for day boundaries and form input.
func (s *Service) Location() *time.Location { return s.policy.Location }

// ServerHealth is one server's verdict inside a page summary.
type ServerHealth struct {
	Server  domain.Server        `json:"server"`
	Verdict domain.HealthVerdict `json:"verdict"`
	Latest  *domain.Metric       `json:"latest,omitempty"`
}

// Summary is the aggregated status of a page at GeneratedAt.
type Summary struct {
	Page        domain.Page           `json:"page"`
	Status      domain.PageStatus     `json:"status"`
	Servers     []ServerHealth        `json:"servers"`
	Active      []domain.Announcement `json:"active"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// ─────────────────────────────────────────────────────────────────
// Aggregation
// ─────────────────────────────────────────────────────────────────

func (s *Service) loadPage(ctx context.Context, id string) (domain.Page, error) {
	page, found, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return domain.Page{}, err
	}
	if !found {
		return domain.Page{}, domain.NotFoundf("page %s", id)
	}
	return page, nil
}

// PageStatus computes the page summary from one read of the page and one
// consistent now. A cached summary is served when still fresh.
func (s *Service) PageStatus(ctx context.Context, pageID string) (Summary, error) {
	if sum, ok := s.cachedSummary(ctx, pageID); ok {
		return sum, nil
	}

	page, err := s.loadPage(ctx, pageID)
	if err != nil {
		return Summary{}, err
	}
	sum, err := s.summarize(ctx, page, s.now())
	if err != nil {
		return Summary{}, err
	}
	s.storeSummary(ctx, sum)
	return sum, nil
}

func (s *Service) summarize(ctx context.Context, page domain.Page, now time.Time) (Summary, error) {
	verdicts := make(map[string]domain.HealthVerdict, len(page.Servers))
	servers := make([]ServerHealth, 0, len(page.Servers))
	for _, srv := range page.Servers {
		metric, found, err := s.metrics.GetLatest(ctx, srv.ID)
		if err != nil {
			return Summary{}, err
		}
		h := ServerHealth{Server: srv}
		if found {
			h.Latest = &metric
		}
		h.Verdict = domain.Evaluate(h.Latest, now, s.stale)
		verdicts[srv.ID] = h.Verdict
		servers = append(servers, h)
	}

	active := s.policy.Active(page.Announcements, now)
	return Summary{
		Page:        page,
		Status:      domain.Aggregate(page, verdicts, active, now),
		Servers:     servers,
		Active:      active,
		GeneratedAt: now,
	}, nil
}

func (s *Service) cachedSummary(ctx context.Context, pageID string) (Summary, bool) {
	if s.cache == nil {
		return Summary{}, false
	}
	data, hit, err := s.cache.GetCachedSummary(ctx, pageID)
	if err != nil {
		s.log.Warn("summary cache read failed", logger.String("page_id", pageID), logger.Error(err))
		return Summary{}, false
	}
	if !hit {
		return Summary{}, false
	}
	var sum Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		s.log.Warn("discarding undecodable cached summary", logger.String("page_id", pageID), logger.Error(err))
		return Summary{}, false
	}
	return sum, true
}

func (s *Service) storeSummary(ctx context.Context, sum Summary) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(sum)
	if err != nil {
		s.log.Warn("failed to encode summary", logger.String("page_id", sum.Page.ID), logger.Error(err))
		return
	}
	if err := s.cache.CacheSummary(ctx, sum.Page.ID, data, s.cacheTTL); err != nil {
		s.log.Warn("summary cache write failed", logger.String("page_id", sum.Page.ID), logger.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context, pageID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSummary(ctx, pageID); err != nil {
		s.log.Warn("summary cache invalidation failed", logger.String("page_id", pageID), logger.Error(err))
	}
}

// Project returns the page with its history and feed views.
func (s *Service) Project(ctx context.Context, pageID string) (domain.Page, domain.Projection, error) {
	page, err := s.loadPage(ctx, pageID)
	if err != nil {
		return domain.Page{}, domain.Projection{}, err
	}
	return page, s.projector.Project(page, page.Announcements, s.now()), nil
}

// PageByHost resolves the public page served on a Host header value.
func (s *Service) PageByHost(ctx context.Context, host string) (Summary, error) {
	host = normalizeHost(host)
	page, found, err := s.repo.FindPageByHostname(ctx, host)
	if err != nil {
		return Summary{}, err
	}
	if !found {
		return Summary{}, domain.NotFoundf("no page for host %q", host)
	}
	return s.PageStatus(ctx, page.ID)
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// ─────────────────────────────────────────────────────────────────
// Servers and metrics
// ─────────────────────────────────────────────────────────────────

// ServerDetail is a server with its current verdict and recent history.
type ServerDetail struct {
	Server  domain.Server
	Verdict domain.HealthVerdict
	Latest  *domain.Metric
	Recent  []domain.Metric
}

func (s *Service) loadServer(ctx context.Context, id string) (domain.Server, error) {
	srv, found, err := s.repo.GetServer(ctx, id)
	if err != nil {
		return domain.Server{}, err
	}
	if !found {
		return domain.Server{}, domain.NotFoundf("server %s", id)
	}
	return srv, nil
}

// ServerHealth evaluates one server now.
func (s *Service) ServerHealth(ctx context.Context, serverID string) (ServerDetail, error) {
	srv, err := s.loadServer(ctx, serverID)
	if err != nil {
		return ServerDetail{}, err
	}
	recent, err := s.metrics.Recent(ctx, serverID, s.recent)
	if err != nil {
		return ServerDetail{}, err
	}

	d := ServerDetail{Server: srv, Recent: recent}
	if len(recent) > 0 {
		latest := recent[0]
		d.Latest = &latest
	}
	d.Verdict = domain.Evaluate(d.Latest, s.now(), s.stale)
	return d, nil
}

// Ingest records a metric for a known server. A zero collectedAt means now,
// and one dated more than MaxClockSkew ahead is rejected on field "at".
// The payload is stored as received; its shape is never an error.
func (s *Service) Ingest(ctx context.Context, serverID string, collectedAt time.Time, payload []byte) error {
	if _, err := s.loadServer(ctx, serverID); err != nil {
		return err
	}
	received := s.now()
	if collectedAt.IsZero() {
		collectedAt = received
	}
	if collectedAt.After(received.Add(MaxClockSkew)) {
		verr := domain.NewValidationError()
		verr.Add("at", "The collection time cannot be in the future.")
		return verr
	}
	if err := s.metrics.PutMetric(ctx, serverID, collectedAt.UTC(), payload); err != nil {
		return err
	}
	s.log.Debug("metric ingested",
		logger.String("server_id", serverID),
		logger.Time("collected_at", collectedAt),
		logger.Int("bytes", len(payload)))
	return nil
}

// CreateServer validates and stores a new server.
func (s *Service) CreateServer(ctx context.Context, hostname string) (domain.Server, error) {
	srv := domain.NewServer(hostname, s.now())
	if err := srv.Validate(); err != nil {
		return domain.Server{}, err
	}
	if _, found, err := s.repo.FindServerByHostname(ctx, srv.Hostname); err != nil {
		return domain.Server{}, err
	} else if found {
		verr := domain.NewValidationError()
		verr.Add("hostname", "A server with this hostname already exists.")
		return domain.Server{}, verr
	}
	if err := s.repo.SaveServer(ctx, srv); err != nil {
		return domain.Server{}, err
	}
	s.log.Info("server created", logger.String("server_id", srv.ID), logger.String("hostname", srv.Hostname))
	return *srv, nil
}

func (s *Service) ListServers(ctx context.Context) ([]domain.Server, error) {
	return s.repo.ListServers(ctx)
}

// CreateDomain validates and stores a new domain.
func (s *Service) CreateDomain(ctx context.Context, name string) (domain.Domain, error) {
	d := domain.NewDomain(name, s.now())
	if err := d.Validate(); err != nil {
		return domain.Domain{}, err
	}
	if _, found, err := s.repo.FindDomainByName(ctx, d.Name); err != nil {
		return domain.Domain{}, err
	} else if found {
		verr := domain.NewValidationError()
		verr.Add("name", "This domain already exists.")
		return domain.Domain{}, verr
	}
	if err := s.repo.SaveDomain(ctx, d); err != nil {
		return domain.Domain{}, err
	}
	return *d, nil
}

func (s *Service) ListDomains(ctx context.Context) ([]domain.Domain, error) {
	return s.repo.ListDomains(ctx)
}

// Natural-key lookups used by the catalog reloader.

func (s *Service) ServerByHostname(ctx context.Context, hostname string) (domain.Server, bool, error) {
	return s.repo.FindServerByHostname(ctx, strings.TrimSpace(hostname))
}

func (s *Service) DomainByName(ctx context.Context, name string) (domain.Domain, bool, error) {
	return s.repo.FindDomainByName(ctx, strings.ToLower(strings.TrimSpace(name)))
}

func (s *Service) PageByTitle(ctx context.Context, title string) (domain.Page, bool, error) {
	return s.repo.FindPageByTitle(ctx, strings.TrimSpace(title))
}
