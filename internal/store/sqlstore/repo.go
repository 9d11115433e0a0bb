package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/MrSnakeDoc/taust/internal/domain"
)

// Repository persists pages, servers, domains and announcements.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

func (r *Repository) DB() *sql.DB { return r.db }

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return domain.Unavailable("ping database", r.db.PingContext(ctx))
}

func (r *Repository) q(query string) string { return rebind(r.dialect, query) }

type rowScanner interface {
	Scan(dest ...any) error
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func utc(t time.Time) time.Time { return t.UTC() }

// ─────────────────────────────────────────────────────────────────
// Pages
// ─────────────────────────────────────────────────────────────────

const pageColumns = `id, title, hostname, style, locale, created_at`

func scanPage(row rowScanner) (domain.Page, error) {
	var (
		p        domain.Page
		hostname sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &hostname, &p.Style, &p.Locale, &p.CreatedAt); err != nil {
		return domain.Page{}, err
	}
	p.Hostname = hostname.String
	p.CreatedAt = utc(p.CreatedAt)
	return p, nil
}

// GetPage returns the page with its servers, domains and announcements.
func (r *Repository) GetPage(ctx context.Context, id string) (domain.Page, bool, error) {
	return r.findPage(ctx, "get page", `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
}

// FindPageByHostname returns the page served on hostname.
func (r *Repository) FindPageByHostname(ctx context.Context, hostname string) (domain.Page, bool, error) {
	if hostname == "" {
		return domain.Page{}, false, nil
	}
	return r.findPage(ctx, "find page by hostname", `SELECT `+pageColumns+` FROM pages WHERE hostname = ?`, hostname)
}

// FindPageByTitle returns the first page with this title.
func (r *Repository) FindPageByTitle(ctx context.Context, title string) (domain.Page, bool, error) {
	return r.findPage(ctx, "find page by title", `SELECT `+pageColumns+` FROM pages WHERE title = ? ORDER BY created_at LIMIT 1`, title)
}

func (r *Repository) findPage(ctx context.Context, op, query string, arg any) (domain.Page, bool, error) {
	p, err := scanPage(r.db.QueryRowContext(ctx, r.q(query), arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Page{}, false, nil
	}
	if err != nil {
		return domain.Page{}, false, domain.Unavailable(op, err)
	}
	if err := r.loadAssociations(ctx, &p); err != nil {
		return domain.Page{}, false, err
	}
	return p, true, nil
}

func (r *Repository) loadAssociations(ctx context.Context, p *domain.Page) error {
	var err error
	if p.Servers, err = r.pageServers(ctx, p.ID); err != nil {
		return err
	}
	if p.Domains, err = r.pageDomains(ctx, p.ID); err != nil {
		return err
	}
	if p.Announcements, err = r.ListAnnouncements(ctx, p.ID); err != nil {
		return err
	}
	return nil
}

// ListPages returns all pages ordered by title, without associations.
func (r *Repository) ListPages(ctx context.Context) ([]domain.Page, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY title, created_at`)
	if err != nil {
		return nil, domain.Unavailable("list pages", err)
	}
	defer rows.Close()

	pages := []domain.Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, domain.Unavailable("list pages", err)
		}
		pages = append(pages, p)
	}
	return pages, domain.Unavailable("list pages", rows.Err())
}

// SavePage inserts or updates the page row. Associations are changed with
// SetServers and SetDomains, or together with the row through UpdatePage.
func (r *Repository) SavePage(ctx context.Context, p *domain.Page) error {
	err := r.savePage(ctx, r.db, p)
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return domain.Unavailable("save page", err)
}

// UpdatePage saves the page row and replaces the memberships that are not
// nil in one transaction, so a failure leaves the page unchanged.
func (r *Repository) UpdatePage(ctx context.Context, p *domain.Page, serverIDs, domainIDs *[]string) error {
	return r.inTx(ctx, "update page", func(tx *sql.Tx) error {
		if err := r.savePage(ctx, tx, p); err != nil {
			return err
		}
		if serverIDs != nil {
			if err := r.replaceMembers(ctx, tx, clearServers, insertServer, p.ID, *serverIDs); err != nil {
				return err
			}
		}
		if domainIDs != nil {
			return r.replaceMembers(ctx, tx, clearDomains, insertDomain, p.ID, *domainIDs)
		}
		return nil
	})
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) savePage(ctx context.Context, ex execer, p *domain.Page) error {
	_, err := ex.ExecContext(ctx, r.q(`INSERT INTO pages (id,title,hostname,style,locale,created_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title,hostname=excluded.hostname,style=excluded.style,locale=excluded.locale`),
		p.ID, p.Title, nullable(p.Hostname), p.Style, p.Locale, p.CreatedAt.UTC())
	if isUniqueViolation(err) {
		verr := domain.NewValidationError()
		verr.Add("hostname", "is already used by another page")
		return verr
	}
	return err
}

// DeletePage removes the page, its memberships and its announcements.
func (r *Repository) DeletePage(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.inTx(ctx, "delete page", func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM page_to_server WHERE page_id = ?`,
			`DELETE FROM page_to_domain WHERE page_id = ?`,
			`DELETE FROM announcements WHERE page_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, r.q(stmt), id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, r.q(`DELETE FROM pages WHERE id = ?`), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

const (
	clearServers = `DELETE FROM page_to_server WHERE page_id = ?`
	insertServer = `INSERT INTO page_to_server (page_id, server_id, position) VALUES (?,?,?)`
	clearDomains = `DELETE FROM page_to_domain WHERE page_id = ?`
	insertDomain = `INSERT INTO page_to_domain (page_id, domain_id, position) VALUES (?,?,?)`
)

// SetServers replaces the page's server membership, keeping the given order.
func (r *Repository) SetServers(ctx context.Context, pageID string, serverIDs []string) error {
	return r.inTx(ctx, "set page servers", func(tx *sql.Tx) error {
		return r.replaceMembers(ctx, tx, clearServers, insertServer, pageID, serverIDs)
	})
}

// SetDomains replaces the page's domain membership, keeping the given order.
func (r *Repository) SetDomains(ctx context.Context, pageID string, domainIDs []string) error {
	return r.inTx(ctx, "set page domains", func(tx *sql.Tx) error {
		return r.replaceMembers(ctx, tx, clearDomains, insertDomain, pageID, domainIDs)
	})
}

func (r *Repository) replaceMembers(ctx context.Context, tx *sql.Tx, clear, insert, pageID string, ids []string) error {
	if _, err := tx.ExecContext(ctx, r.q(clear), pageID); err != nil {
		return err
	}
	seen := make(map[string]bool, len(ids))
	pos := 0
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := tx.ExecContext(ctx, r.q(insert), pageID, id, pos); err != nil {
			return err
		}
		pos++
	}
	return nil
}

func (r *Repository) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Unavailable(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		return domain.Unavailable(op, err)
	}
	return domain.Unavailable(op, tx.Commit())
}

// ─────────────────────────────────────────────────────────────────
// Servers
// ─────────────────────────────────────────────────────────────────

func scanServer(row rowScanner) (domain.Server, error) {
	var s domain.Server
	if err := row.Scan(&s.ID, &s.Hostname, &s.CreatedAt); err != nil {
		return domain.Server{}, err
	}
	s.CreatedAt = utc(s.CreatedAt)
	return s, nil
}

func (r *Repository) queryServers(ctx context.Context, op, query string, args ...any) ([]domain.Server, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, domain.Unavailable(op, err)
	}
	defer rows.Close()

	servers := []domain.Server{}
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, domain.Unavailable(op, err)
		}
		servers = append(servers, s)
	}
	return servers, domain.Unavailable(op, rows.Err())
}

func (r *Repository) pageServers(ctx context.Context, pageID string) ([]domain.Server, error) {
	return r.queryServers(ctx, "load page servers", `SELECT s.id, s.hostname, s.created_at
		FROM servers s JOIN page_to_server ps ON ps.server_id = s.id
		WHERE ps.page_id = ? ORDER BY ps.position, s.hostname`, pageID)
}

// ListServers returns all servers ordered by hostname.
func (r *Repository) ListServers(ctx context.Context) ([]domain.Server, error) {
	return r.queryServers(ctx, "list servers", `SELECT id, hostname, created_at FROM servers ORDER BY hostname`)
}

func (r *Repository) GetServer(ctx context.Context, id string) (domain.Server, bool, error) {
	return r.findServer(ctx, "get server", `SELECT id, hostname, created_at FROM servers WHERE id = ?`, id)
}

func (r *Repository) FindServerByHostname(ctx context.Context, hostname string) (domain.Server, bool, error) {
	return r.findServer(ctx, "find server by hostname", `SELECT id, hostname, created_at FROM servers WHERE hostname = ?`, hostname)
}

func (r *Repository) findServer(ctx context.Context, op, query string, arg any) (domain.Server, bool, error) {
	s, err := scanServer(r.db.QueryRowContext(ctx, r.q(query), arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Server{}, false, nil
	}
	if err != nil {
		return domain.Server{}, false, domain.Unavailable(op, err)
	}
	return s, true, nil
}

// SaveServer inserts or updates a server. A duplicate hostname is a validation error.
func (r *Repository) SaveServer(ctx context.Context, s *domain.Server) error {
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO servers (id,hostname,created_at) VALUES (?,?,?)
		ON CONFLICT(id) DO UPDATE SET hostname=excluded.hostname`),
		s.ID, s.Hostname, s.CreatedAt.UTC())
	if isUniqueViolation(err) {
		verr := domain.NewValidationError()
		verr.Add("hostname", "is already registered")
		return verr
	}
	return domain.Unavailable("save server", err)
}

// ─────────────────────────────────────────────────────────────────
// Domains
// ─────────────────────────────────────────────────────────────────

func scanDomain(row rowScanner) (domain.Domain, error) {
	var d domain.Domain
	if err := row.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
		return domain.Domain{}, err
	}
	d.CreatedAt = utc(d.CreatedAt)
	return d, nil
}

func (r *Repository) queryDomains(ctx context.Context, op, query string, args ...any) ([]domain.Domain, error) {
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, domain.Unavailable(op, err)
	}
	defer rows.Close()

	domains := []domain.Domain{}
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, domain.Unavailable(op, err)
		}
		domains = append(domains, d)
	}
	return domains, domain.Unavailable(op, rows.Err())
}

func (r *Repository) pageDomains(ctx context.Context, pageID string) ([]domain.Domain, error) {
	return r.queryDomains(ctx, "load page domains", `SELECT d.id, d.name, d.created_at
		FROM domains d JOIN page_to_domain pd ON pd.domain_id = d.id
		WHERE pd.page_id = ? ORDER BY pd.position, d.name`, pageID)
}

// ListDomains returns all domains ordered by name.
func (r *Repository) ListDomains(ctx context.Context) ([]domain.Domain, error) {
	return r.queryDomains(ctx, "list domains", `SELECT id, name, created_at FROM domains ORDER BY name`)
}

func (r *Repository) GetDomain(ctx context.Context, id string) (domain.Domain, bool, error) {
	return r.findDomain(ctx, "get domain", `SELECT id, name, created_at FROM domains WHERE id = ?`, id)
}

func (r *Repository) FindDomainByName(ctx context.Context, name string) (domain.Domain, bool, error) {
	return r.findDomain(ctx, "find domain by name", `SELECT id, name, created_at FROM domains WHERE name = ?`, name)
}

func (r *Repository) findDomain(ctx context.Context, op, query string, arg any) (domain.Domain, bool, error) {
	d, err := scanDomain(r.db.QueryRowContext(ctx, r.q(query), arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Domain{}, false, nil
	}
	if err != nil {
		return domain.Domain{}, false, domain.Unavailable(op, err)
	}
	return d, true, nil
}

// SaveDomain inserts or updates a domain. A duplicate name is a validation error.
func (r *Repository) SaveDomain(ctx context.Context, d *domain.Domain) error {
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO domains (id,name,created_at) VALUES (?,?,?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name`),
		d.ID, d.Name, d.CreatedAt.UTC())
	if isUniqueViolation(err) {
		verr := domain.NewValidationError()
		verr.Add("name", "is already registered")
		return verr
	}
	return domain.Unavailable("save domain", err)
}

// ─────────────────────────────────────────────────────────────────
// Announcements
// ─────────────────────────────────────────────────────────────────

// ListAnnouncements returns the page's announcements, newest planned first.
func (r *Repository) ListAnnouncements(ctx context.Context, pageID string) ([]domain.Announcement, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT seq, id, page_id, kind, planned_at, title, content, created_at
		FROM announcements WHERE page_id = ? ORDER BY planned_at DESC, seq DESC`), pageID)
	if err != nil {
		return nil, domain.Unavailable("list announcements", err)
	}
	defer rows.Close()

	anns := []domain.Announcement{}
	for rows.Next() {
		var (
			a    domain.Announcement
			kind string
		)
		if err := rows.Scan(&a.Seq, &a.ID, &a.PageID, &kind, &a.PlannedAt, &a.Title, &a.Content, &a.CreatedAt); err != nil {
			return nil, domain.Unavailable("list announcements", err)
		}
		a.Kind = domain.Kind(kind)
		a.PlannedAt = utc(a.PlannedAt)
		a.CreatedAt = utc(a.CreatedAt)
		anns = append(anns, a)
	}
	return anns, domain.Unavailable("list announcements", rows.Err())
}

// SaveAnnouncement inserts an announcement and sets its creation sequence.
func (r *Repository) SaveAnnouncement(ctx context.Context, a *domain.Announcement) error {
	err := r.db.QueryRowContext(ctx, r.q(`INSERT INTO announcements (id,page_id,kind,planned_at,title,content,created_at)
		VALUES (?,?,?,?,?,?,?) RETURNING seq`),
		a.ID, a.PageID, string(a.Kind), a.PlannedAt.UTC(), a.Title, a.Content, a.CreatedAt.UTC()).Scan(&a.Seq)
	return domain.Unavailable("save announcement", err)
}
