package domain

import "time"

// PageStatus is the single status shown to visitors of a page.
type PageStatus string

const (
	StatusOperational PageStatus = "operational"
	StatusDegraded    PageStatus = "degraded"
	StatusMaintenance PageStatus = "maintenance"
	StatusMajorOutage PageStatus = "major_outage"
)

// Aggregate derives the page status.
//
// Precedence, highest first: an active incident, an active maintenance,
// any server that is not healthy, then operational. verdicts is keyed by
// server id; a page server missing from it counts as unknown. A page with
// no servers and no active announcements is operational.
//
// Announcements planned after now are ignored even if passed as active.
func Aggregate(page Page, verdicts map[string]HealthVerdict, active []Announcement, now time.Time) PageStatus {
	maintenance := false
	for _, a := range active {
		if a.PlannedAt.After(now) {
			continue
		}
		switch a.Kind {
		case KindIncident:
			return StatusMajorOutage
		case KindMaintenance:
			maintenance = true
		}
	}
	if maintenance {
		return StatusMaintenance
	}

	for _, s := range page.Servers {
		verdict, ok := verdicts[s.ID]
		if !ok {
			verdict = HealthUnknown
		}
		if verdict != HealthHealthy {
			return StatusDegraded
		}
	}

	return StatusOperational
}
