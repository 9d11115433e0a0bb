package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes planned maintenance from incidents.
type Kind string

const (
	KindMaintenance Kind = "maintenance"
	KindIncident    Kind = "incident"
)

// PlannedAtLayout is the layout of datetime-local form inputs.
const PlannedAtLayout = "2006-01-02T15:04"

// Announcement is a maintenance or incident notice posted on a page.
type Announcement struct {
	ID        string
	PageID    string
	Kind      Kind
	PlannedAt time.Time
	Title     string
	Content   string
	CreatedAt time.Time

	// Seq is the creation sequence assigned by the repository.
	// It breaks ties between equal PlannedAt values.
	Seq int64
}

// NewMaintenance initializes a maintenance announcement.
func NewMaintenance(pageID string, plannedAt time.Time, title, content string, now time.Time) *Announcement {
	return newAnnouncement(pageID, KindMaintenance, plannedAt, title, content, now)
}

// NewIncident initializes an incident announcement.
func NewIncident(pageID string, plannedAt time.Time, title, content string, now time.Time) *Announcement {
	return newAnnouncement(pageID, KindIncident, plannedAt, title, content, now)
}

func newAnnouncement(pageID string, kind Kind, plannedAt time.Time, title, content string, now time.Time) *Announcement {
	return &Announcement{
		ID:        uuid.NewString(),
		PageID:    pageID,
		Kind:      kind,
		PlannedAt: plannedAt,
		Title:     strings.TrimSpace(title),
		Content:   strings.TrimSpace(content),
		CreatedAt: now.UTC(),
	}
}

// Validate checks title, content, kind and planned_at.
func (a *Announcement) Validate() error {
	verr := NewValidationError()
	if a.Kind != KindMaintenance && a.Kind != KindIncident {
		verr.Add("type", "The type must be either maintenance or incident.")
	}
	if a.PlannedAt.IsZero() {
		verr.Add("planned_at", "The date is required and must be valid.")
	}
	if a.Title == "" {
		verr.Add("title", "The title is required.")
	}
	if a.Content == "" {
		verr.Add("content", "The content is required.")
	}
	return verr.OrNil()
}

// ParseKind maps a form value to a Kind. ok is false for unknown values.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindMaintenance:
		return KindMaintenance, true
	case KindIncident:
		return KindIncident, true
	default:
		return Kind(s), false
	}
}

// ParsePlannedAt accepts RFC 3339 or a datetime-local value interpreted in loc.
// Invalid input yields the zero time, which Validate rejects.
func ParsePlannedAt(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(PlannedAtLayout, s, loc); err == nil {
		return t
	}
	return time.Time{}
}
