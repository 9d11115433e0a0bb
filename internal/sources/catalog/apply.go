package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/taust/internal/domain"
	"github.com/MrSnakeDoc/taust/internal/status"
)

// Target is where a catalog is applied. *status.Service implements it.
type Target interface {
	ServerByHostname(ctx context.Context, hostname string) (domain.Server, bool, error)
	CreateServer(ctx context.Context, hostname string) (domain.Server, error)
	DomainByName(ctx context.Context, name string) (domain.Domain, bool, error)
	CreateDomain(ctx context.Context, name string) (domain.Domain, error)
	PageByTitle(ctx context.Context, title string) (domain.Page, bool, error)
	CreatePage(ctx context.Context, title string) (domain.Page, error)
	UpdatePage(ctx context.Context, id string, u status.PageUpdate) (domain.Page, error)
}

// Report counts what Apply changed.
type Report struct {
	ServersCreated int
	DomainsCreated int
	PagesCreated   int
	PagesUpdated   int
}

// Apply upserts servers, domains and pages by natural key. An invalid entry
// is reported and skipped; a store failure aborts the run.
func Apply(ctx context.Context, t Target, cat Catalog) (Report, error) {
	var (
		rep  Report
		errs []error
	)

	serverIDs := make(map[string]string, len(cat.Servers))
	for _, s := range cat.Servers {
		id, created, err := ensureServer(ctx, t, s.Hostname)
		if err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return rep, err
			}
			errs = append(errs, fmt.Errorf("server %s: %w", s.Hostname, err))
			continue
		}
		serverIDs[s.Hostname] = id
		if created {
			rep.ServersCreated++
		}
	}

	domainIDs := make(map[string]string, len(cat.Domains))
	for _, name := range cat.Domains {
		id, created, err := ensureDomain(ctx, t, name)
		if err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return rep, err
			}
			errs = append(errs, fmt.Errorf("domain %s: %w", name, err))
			continue
		}
		domainIDs[name] = id
		if created {
			rep.DomainsCreated++
		}
	}

	for _, p := range cat.Pages {
		created, err := applyPage(ctx, t, p, serverIDs, domainIDs)
		if err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return rep, err
			}
			errs = append(errs, fmt.Errorf("page %q: %w", p.Title, err))
			continue
		}
		if created {
			rep.PagesCreated++
		}
		rep.PagesUpdated++
	}

	return rep, errors.Join(errs...)
}

func ensureServer(ctx context.Context, t Target, hostname string) (string, bool, error) {
	srv, found, err := t.ServerByHostname(ctx, hostname)
	if err != nil {
		return "", false, err
	}
	if found {
		return srv.ID, false, nil
	}
	srv, err = t.CreateServer(ctx, hostname)
	return srv.ID, err == nil, err
}

func ensureDomain(ctx context.Context, t Target, name string) (string, bool, error) {
	d, found, err := t.DomainByName(ctx, name)
	if err != nil {
		return "", false, err
	}
	if found {
		return d.ID, false, nil
	}
	d, err = t.CreateDomain(ctx, name)
	return d.ID, err == nil, err
}

func resolve(names []string, known map[string]string, lookup func(string) (string, bool, error), kind string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := known[name]; ok {
			ids = append(ids, id)
			continue
		}
		id, found, err := lookup(name)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("unknown %s %q", kind, name)
		}
		known[name] = id
		ids = append(ids, id)
	}
	return ids, nil
}

func applyPage(ctx context.Context, t Target, p PageEntry, serverIDs, domainIDs map[string]string) (bool, error) {
	u := status.PageUpdate{}
	if p.Hostname != "" {
		u.Hostname = &p.Hostname
	}
	if p.Locale != "" {
		u.Locale = &p.Locale
	}
	if p.Style != "" {
		u.Style = &p.Style
	}
	if p.Servers != nil {
		ids, err := resolve(p.Servers, serverIDs, func(h string) (string, bool, error) {
			s, found, err := t.ServerByHostname(ctx, h)
			return s.ID, found, err
		}, "server")
		if err != nil {
			return false, err
		}
		u.ServerIDs = &ids
	}
	if p.Domains != nil {
		ids, err := resolve(p.Domains, domainIDs, func(n string) (string, bool, error) {
			d, found, err := t.DomainByName(ctx, n)
			return d.ID, found, err
		}, "domain")
		if err != nil {
			return false, err
		}
		u.DomainIDs = &ids
	}

	page, found, err := t.PageByTitle(ctx, p.Title)
	if err != nil {
		return false, err
	}
	created := false
	if !found {
		if page, err = t.CreatePage(ctx, p.Title); err != nil {
			return false, err
		}
		created = true
	}
	_, err = t.UpdatePage(ctx, page.ID, u)
	return created, err
}
