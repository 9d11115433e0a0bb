package status

import (
	"context"
	"errors"
	"strings"

	"github.com/MrSnakeDoc/taust/internal/domain"
	"github.com/MrSnakeDoc/taust/internal/logger"
)

// PageUpdate carries the fields to change; nil leaves a field untouched.
type PageUpdate struct {
	Title     *string
	Hostname  *string
	Style     *string
	Locale    *string
	ServerIDs *[]string
	DomainIDs *[]string
}

// AnnouncementInput is an announcement as submitted by a client.
type AnnouncementInput struct {
	Kind      string
	PlannedAt string // RFC 3339 or datetime-local in the service location
	Title     string
	Content   string
}

func (s *Service) GetPage(ctx context.Context, id string) (domain.Page, error) {
	return s.loadPage(ctx, id)
}

func (s *Service) ListPages(ctx context.Context) ([]domain.Page, error) {
	return s.repo.ListPages(ctx)
}

// CreatePage validates and stores a page from its title.
func (s *Service) CreatePage(ctx context.Context, title string) (domain.Page, error) {
	page := domain.NewPage(title, s.now())
	if err := page.Validate(); err != nil {
		return domain.Page{}, err
	}
	if err := s.repo.SavePage(ctx, page); err != nil {
		return domain.Page{}, err
	}
	s.log.Info("page created", logger.String("page_id", page.ID), logger.String("title", page.Title))
	return *page, nil
}

// UpdatePage applies u, checks hostname uniqueness and association ids,
// then replaces memberships that were given.
func (s *Service) UpdatePage(ctx context.Context, id string, u PageUpdate) (domain.Page, error) {
	page, err := s.loadPage(ctx, id)
	if err != nil {
		return domain.Page{}, err
	}

	if u.Title != nil {
		page.Title = strings.TrimSpace(*u.Title)
	}
	if u.Hostname != nil {
		page.Hostname = normalizeHost(*u.Hostname)
	}
	if u.Style != nil {
		page.Style = *u.Style
	}
	if u.Locale != nil {
		page.Locale = strings.TrimSpace(*u.Locale)
	}

	verr := domain.NewValidationError()
	if err := page.Validate(); err != nil {
		if !mergeValidation(verr, err) {
			return domain.Page{}, err
		}
	}
	if page.Hostname != "" {
		other, found, err := s.repo.FindPageByHostname(ctx, page.Hostname)
		if err != nil {
			return domain.Page{}, err
		}
		if found && other.ID != page.ID {
			verr.Add("hostname", "This hostname is already used by another page.")
		}
	}
	if u.ServerIDs != nil {
		if err := s.checkServers(ctx, *u.ServerIDs, verr); err != nil {
			return domain.Page{}, err
		}
	}
	if u.DomainIDs != nil {
		if err := s.checkDomains(ctx, *u.DomainIDs, verr); err != nil {
			return domain.Page{}, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return domain.Page{}, err
	}

	if err := s.repo.UpdatePage(ctx, &page, u.ServerIDs, u.DomainIDs); err != nil {
		return domain.Page{}, err
	}
	s.invalidate(ctx, page.ID)
	s.log.Info("page updated", logger.String("page_id", page.ID))
	return s.loadPage(ctx, page.ID)
}

func mergeValidation(dst *domain.ValidationError, err error) bool {
	var src *domain.ValidationError
	if !errors.As(err, &src) {
		return false
	}
	for field, msg := range src.Fields {
		dst.Add(field, msg)
	}
	return true
}

func (s *Service) checkServers(ctx context.Context, ids []string, verr *domain.ValidationError) error {
	for _, id := range ids {
		_, found, err := s.repo.GetServer(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			verr.Add("server_ids", "Unknown server "+id+".")
		}
	}
	return nil
}

func (s *Service) checkDomains(ctx context.Context, ids []string, verr *domain.ValidationError) error {
	for _, id := range ids {
		_, found, err := s.repo.GetDomain(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			verr.Add("domain_ids", "Unknown domain "+id+".")
		}
	}
	return nil
}

// DeletePage removes the page and its announcements. Servers and domains stay.
func (s *Service) DeletePage(ctx context.Context, id string) error {
	deleted, err := s.repo.DeletePage(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NotFoundf("page %s", id)
	}
	s.invalidate(ctx, id)
	s.log.Info("page deleted", logger.String("page_id", id))
	return nil
}

// PageStyle returns the custom CSS of a page.
func (s *Service) PageStyle(ctx context.Context, id string) (string, error) {
	page, err := s.loadPage(ctx, id)
	if err != nil {
		return "", err
	}
	return page.Style, nil
}

// ─────────────────────────────────────────────────────────────────
// Announcements
// ─────────────────────────────────────────────────────────────────

// CreateAnnouncement validates and stores an announcement on a page.
func (s *Service) CreateAnnouncement(ctx context.Context, pageID string, in AnnouncementInput) (domain.Announcement, error) {
	if _, err := s.loadPage(ctx, pageID); err != nil {
		return domain.Announcement{}, err
	}

	now := s.now()
	plannedAt := domain.ParsePlannedAt(in.PlannedAt, s.policy.Location)
	kind, ok := domain.ParseKind(in.Kind)

	var a *domain.Announcement
	if kind == domain.KindMaintenance {
		a = domain.NewMaintenance(pageID, plannedAt, in.Title, in.Content, now)
	} else {
		a = domain.NewIncident(pageID, plannedAt, in.Title, in.Content, now)
	}
	if !ok {
		a.Kind = kind
	}
	if err := a.Validate(); err != nil {
		return domain.Announcement{}, err
	}

	if err := s.repo.SaveAnnouncement(ctx, a); err != nil {
		return domain.Announcement{}, err
	}
	s.invalidate(ctx, pageID)
	s.log.Info("announcement created",
		logger.String("page_id", pageID),
		logger.String("announcement_id", a.ID),
		logger.String("kind", string(a.Kind)),
		logger.Time("planned_at", a.PlannedAt))
	return *a, nil
}

// ListAnnouncements returns a page's announcements newest planned first.
func (s *Service) ListAnnouncements(ctx context.Context, pageID string) ([]domain.Announcement, error) {
	page, err := s.loadPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return domain.SortNewestFirst(page.Announcements), nil
}
