package domain

import (
	"sort"
	"time"
)

// Phase is the position of an announcement relative to now.
type Phase string

const (
	PhaseUpcoming Phase = "upcoming"
	PhaseActive   Phase = "active"
	PhasePast     Phase = "past"
)

// DayKeyLayout formats bucket keys.
const DayKeyLayout = "2006-01-02"

// SchedulePolicy holds the time rules applied to announcements.
//
// Maintenance announcements carry no end time. With a zero
// MaintenanceWindow a started maintenance stays active for the rest of its
// calendar day in Location; otherwise it stays active for that duration.
type SchedulePolicy struct {
	Location          *time.Location
	MaintenanceWindow time.Duration
}

// DefaultSchedulePolicy uses UTC days and the calendar-day maintenance rule.
func DefaultSchedulePolicy() SchedulePolicy {
	return SchedulePolicy{Location: time.UTC}
}

func (p SchedulePolicy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Classify places a under the default policy.
func Classify(a Announcement, now time.Time) Phase {
	return DefaultSchedulePolicy().Classify(a, now)
}

// Classify places a as upcoming, active or past at now.
// Incidents have no end: once started they stay active.
func (p SchedulePolicy) Classify(a Announcement, now time.Time) Phase {
	if a.PlannedAt.After(now) {
		return PhaseUpcoming
	}

	if a.Kind == KindIncident {
		return PhaseActive
	}

	if p.MaintenanceWindow > 0 {
		if now.Before(a.PlannedAt.Add(p.MaintenanceWindow)) {
			return PhaseActive
		}
		return PhasePast
	}

	loc := p.location()
	if StartOfDay(a.PlannedAt, loc).Equal(StartOfDay(now, loc)) {
		return PhaseActive
	}
	return PhasePast
}

// Active filters the announcements active at now, keeping their order.
func (p SchedulePolicy) Active(announcements []Announcement, now time.Time) []Announcement {
	var active []Announcement
	for _, a := range announcements {
		if p.Classify(a, now) == PhaseActive {
			active = append(active, a)
		}
	}
	return active
}

// DayBucket groups the announcements planned on one calendar day.
type DayBucket struct {
	Day           time.Time // midnight in the bucketing location
	Announcements []Announcement
}

// Key returns the bucket date as YYYY-MM-DD.
func (b DayBucket) Key() string {
	return b.Day.Format(DayKeyLayout)
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SortNewestFirst returns a copy of announcements ordered by PlannedAt
// descending, then by creation order, newest first.
func SortNewestFirst(announcements []Announcement) []Announcement {
	sorted := make([]Announcement, len(announcements))
	copy(sorted, announcements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return newerThan(sorted[i], sorted[j])
	})
	return sorted
}

func newerThan(a, b Announcement) bool {
	if !a.PlannedAt.Equal(b.PlannedAt) {
		return a.PlannedAt.After(b.PlannedAt)
	}
	if a.Seq != b.Seq {
		return a.Seq > b.Seq
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// BucketByDay partitions announcements by calendar day in loc.
// Buckets come most recent day first; each announcement lands in exactly one.
func BucketByDay(announcements []Announcement, loc *time.Location) []DayBucket {
	if loc == nil {
		loc = time.UTC
	}

	var buckets []DayBucket
	for _, a := range SortNewestFirst(announcements) {
		day := StartOfDay(a.PlannedAt, loc)
		if n := len(buckets); n > 0 && buckets[n-1].Day.Equal(day) {
			buckets[n-1].Announcements = append(buckets[n-1].Announcements, a)
			continue
		}
		buckets = append(buckets, DayBucket{Day: day, Announcements: []Announcement{a}})
	}
	return buckets
}
