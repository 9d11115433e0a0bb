package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLocale is used when a page does not set one.
const DefaultLocale = "en_GB"

// SupportedLocales lists the locales a page can be rendered in.
var SupportedLocales = []string{"en_GB", "fr_FR"}

// Page is a public status page.
//
// Servers and Domains are shared associations: deleting a page detaches
// them but never deletes them. Announcements are owned by the page.
type Page struct {
	ID        string
	Title     string
	Hostname  string // empty or unique across pages
	Style     string // custom CSS served with the page
	Locale    string
	CreatedAt time.Time

	// Resolved associations, filled by the repository on GetPage.
	Servers       []Server
	Domains       []Domain
	Announcements []Announcement
}

// NewPage initializes a page from its title.
func NewPage(title string, now time.Time) *Page {
	return &Page{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Locale:    DefaultLocale,
		CreatedAt: now.UTC(),
	}
}

// Validate checks the page fields. Hostname uniqueness needs the store
// and is checked by the caller.
func (p *Page) Validate() error {
	verr := NewValidationError()
	if p.Title == "" {
		verr.Add("title", "The title is required.")
	}
	if strings.ContainsAny(p.Hostname, " \t/") {
		verr.Add("hostname", "The hostname must not contain spaces or slashes.")
	}
	if !isSupportedLocale(p.Locale) {
		verr.Add("locale", "The locale is not supported.")
	}
	return verr.OrNil()
}

// ServerIDs returns the ids of the attached servers, in repository order.
func (p *Page) ServerIDs() []string {
	ids := make([]string, 0, len(p.Servers))
	for _, s := range p.Servers {
		ids = append(ids, s.ID)
	}
	return ids
}

// DomainIDs returns the ids of the attached domains, in repository order.
func (p *Page) DomainIDs() []string {
	ids := make([]string, 0, len(p.Domains))
	for _, d := range p.Domains {
		ids = append(ids, d.ID)
	}
	return ids
}

func isSupportedLocale(locale string) bool {
	for _, l := range SupportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}
