package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/taust/internal/domain"
	"github.com/MrSnakeDoc/taust/internal/logger"
	"github.com/MrSnakeDoc/taust/internal/retry"
)

var testRetry = retry.Options{
	ConnectTimeout: 2 * time.Second,
	RetryInterval:  10 * time.Millisecond,
	MaxWait:        50 * time.Millisecond,
	PingTimeout:    time.Second,
	WarnThreshold:  1,
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(context.Background(), Options{
		Dialect: DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "data", "taust.db"),
		Retry:   testRetry,
	}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db, DialectSQLite)
}

var now = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func seedServer(t *testing.T, repo *Repository, hostname string) domain.Server {
	t.Helper()
	s := domain.NewServer(hostname, now)
	require.NoError(t, repo.SaveServer(context.Background(), s))
	return *s
}

func seedPage(t *testing.T, repo *Repository, title, hostname string) domain.Page {
	t.Helper()
	p := domain.NewPage(title, now)
	p.Hostname = hostname
	require.NoError(t, repo.SavePage(context.Background(), p))
	return *p
}

func TestPageRoundTripWithAssociations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	web := seedServer(t, repo, "web-1.example.com")
	db := seedServer(t, repo, "db-1.example.com")
	d := domain.NewDomain("status.example.com", now)
	require.NoError(t, repo.SaveDomain(ctx, d))

	page := seedPage(t, repo, "Production", "status.example.com")
	require.NoError(t, repo.SetServers(ctx, page.ID, []string{web.ID, db.ID, web.ID}))
	require.NoError(t, repo.SetDomains(ctx, page.ID, []string{d.ID}))

	got, found, err := repo.GetPage(ctx, page.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Production", got.Title)
	assert.Equal(t, domain.DefaultLocale, got.Locale)
	assert.True(t, got.CreatedAt.Equal(now))
	require.Len(t, got.Servers, 2, "duplicate ids are stored once")
	assert.Equal(t, web.ID, got.Servers[0].ID, "membership keeps the given order")
	assert.Equal(t, db.ID, got.Servers[1].ID)
	require.Len(t, got.Domains, 1)
	assert.Equal(t, "status.example.com", got.Domains[0].Name)
	assert.Empty(t, got.Announcements)

	byHost, found, err := repo.FindPageByHostname(ctx, "status.example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, page.ID, byHost.ID)

	byTitle, found, err := repo.FindPageByTitle(ctx, "Production")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, page.ID, byTitle.ID)

	require.NoError(t, repo.SetServers(ctx, page.ID, []string{db.ID}))
	got, _, err = repo.GetPage(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, got.Servers, 1)
	assert.Equal(t, db.ID, got.Servers[0].ID)
}

func TestUpdatePageIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	web := seedServer(t, repo, "web-1.example.com")
	db := seedServer(t, repo, "db-1.example.com")
	seedPage(t, repo, "Other", "taken.example.com")
	page := seedPage(t, repo, "Production", "")
	require.NoError(t, repo.SetServers(ctx, page.ID, []string{web.ID}))

	// A hostname conflict rolls back the membership change too.
	p := page
	p.Hostname = "taken.example.com"
	servers := []string{db.ID}
	err := repo.UpdatePage(ctx, &p, &servers, nil)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "hostname")

	got, _, err := repo.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Hostname)
	require.Len(t, got.Servers, 1)
	assert.Equal(t, web.ID, got.Servers[0].ID)

	// nil memberships are left alone.
	p.Hostname = "status.example.com"
	p.Style = "body { color: red; }"
	require.NoError(t, repo.UpdatePage(ctx, &p, nil, nil))
	got, _, err = repo.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "status.example.com", got.Hostname)
	assert.Equal(t, "body { color: red; }", got.Style)
	require.Len(t, got.Servers, 1)
	assert.Equal(t, web.ID, got.Servers[0].ID)
}

func TestGetPageNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, found, err := repo.GetPage(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = repo.FindPageByHostname(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListPagesOrderedByTitle(t *testing.T) {
	repo := newTestRepo(t)
	seedPage(t, repo, "Zeta", "")
	seedPage(t, repo, "Alpha", "")

	pages, err := repo.ListPages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Alpha", pages[0].Title)
	assert.Equal(t, "", pages[0].Hostname)
}

func TestDuplicateHostnames(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seedServer(t, repo, "web-1")
	err := repo.SaveServer(ctx, domain.NewServer("web-1", now))
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "hostname")

	seedPage(t, repo, "A", "status.example.com")
	seedPage(t, repo, "No host 1", "")
	seedPage(t, repo, "No host 2", "")
	p := domain.NewPage("B", now)
	p.Hostname = "status.example.com"
	err = repo.SavePage(ctx, p)
	require.True(t, errors.As(err, &verr), "got %v", err)

	require.NoError(t, repo.SaveDomain(ctx, domain.NewDomain("example.com", now)))
	err = repo.SaveDomain(ctx, domain.NewDomain("example.com", now))
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "name")
}

func TestAnnouncementsOrderAndSequence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	page := seedPage(t, repo, "Production", "")

	at := now.Add(-time.Hour)
	a := domain.NewIncident(page.ID, at, "A", "first", now)
	b := domain.NewIncident(page.ID, at, "B", "second", now)
	c := domain.NewMaintenance(page.ID, now.Add(24*time.Hour), "C", "upgrade", now)
	for _, ann := range []*domain.Announcement{a, b, c} {
		require.NoError(t, repo.SaveAnnouncement(ctx, ann))
	}
	assert.Less(t, a.Seq, b.Seq)

	anns, err := repo.ListAnnouncements(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, anns, 3)
	assert.Equal(t, "C", anns[0].Title)
	assert.Equal(t, "B", anns[1].Title, "equal planned_at: later creation first")
	assert.Equal(t, "A", anns[2].Title)
	assert.Equal(t, domain.KindMaintenance, anns[0].Kind)
	assert.True(t, anns[2].PlannedAt.Equal(at))
}

func TestDeletePageCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	srv := seedServer(t, repo, "web-1")
	page := seedPage(t, repo, "Production", "")
	require.NoError(t, repo.SetServers(ctx, page.ID, []string{srv.ID}))
	require.NoError(t, repo.SaveAnnouncement(ctx, domain.NewIncident(page.ID, now, "t", "c", now)))

	deleted, err := repo.DeletePage(ctx, page.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, found, err := repo.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.False(t, found)

	anns, err := repo.ListAnnouncements(ctx, page.ID)
	require.NoError(t, err)
	assert.Empty(t, anns)

	_, found, err = repo.GetServer(ctx, srv.ID)
	require.NoError(t, err)
	assert.True(t, found, "servers outlive the pages that list them")

	deleted, err = repo.DeletePage(ctx, page.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestServerAndDomainLookups(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	srv := seedServer(t, repo, "web-1")
	d := domain.NewDomain("Example.com", now)
	require.NoError(t, repo.SaveDomain(ctx, d))

	got, found, err := repo.FindServerByHostname(ctx, "web-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, srv.ID, got.ID)

	servers, err := repo.ListServers(ctx)
	require.NoError(t, err)
	assert.Len(t, servers, 1)

	gotDomain, found, err := repo.FindDomainByName(ctx, "example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, d.ID, gotDomain.ID)

	_, found, err = repo.GetDomain(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	domains, err := repo.ListDomains(ctx)
	require.NoError(t, err)
	assert.Len(t, domains, 1)

	require.NoError(t, repo.Ping(ctx))
}
