package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Normalize trims and lowercases natural keys, drops duplicates (first one
// wins) and checks that pages only reference declared or blank names.
// References to servers or domains not declared in the file are allowed;
// they are resolved against the store when applying.
func Normalize(cat Catalog) (Catalog, error) {
	var errs []error
	out := Catalog{}

	seenServers := map[string]bool{}
	for i, s := range cat.Servers {
		h := strings.TrimSpace(s.Hostname)
		if h == "" {
			errs = append(errs, fmt.Errorf("servers[%d]: hostname is required", i))
			continue
		}
		if seenServers[h] {
			continue
		}
		seenServers[h] = true
		out.Servers = append(out.Servers, ServerEntry{Hostname: h})
	}

	seenDomains := map[string]bool{}
	for i, d := range cat.Domains {
		name := strings.ToLower(strings.TrimSpace(d))
		if name == "" {
			errs = append(errs, fmt.Errorf("domains[%d]: name is required", i))
			continue
		}
		if seenDomains[name] {
			continue
		}
		seenDomains[name] = true
		out.Domains = append(out.Domains, name)
	}

	seenPages := map[string]bool{}
	for i, p := range cat.Pages {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			errs = append(errs, fmt.Errorf("pages[%d]: title is required", i))
			continue
		}
		if seenPages[title] {
			errs = append(errs, fmt.Errorf("pages[%d]: duplicate title %q", i, title))
			continue
		}
		seenPages[title] = true

		entry := PageEntry{
			Title:    title,
			Hostname: strings.ToLower(strings.TrimSpace(p.Hostname)),
			Locale:   strings.TrimSpace(p.Locale),
			Style:    p.Style,
		}
		if p.Servers != nil {
			entry.Servers = trimAll(p.Servers, false)
		}
		if p.Domains != nil {
			entry.Domains = trimAll(p.Domains, true)
		}
		out.Pages = append(out.Pages, entry)
	}

	if len(out.Servers) == 0 && len(out.Domains) == 0 && len(out.Pages) == 0 {
		errs = append(errs, errors.New("no valid entries found in catalog"))
	}
	return out, errors.Join(errs...)
}

func trimAll(in []string, lower bool) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
