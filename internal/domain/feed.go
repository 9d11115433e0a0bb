package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryDays is the size of the trailing history window, today included.
const DefaultHistoryDays = 7

// feedNamespace scopes the name-based UUIDs of feed entries.
var feedNamespace = uuid.MustParse("8f1c2a64-5d0b-4b7e-9a43-6a2f0f4b9c1d")

// FeedEntry is one logical syndication entry. Rendering it (Atom, JSON)
// is left to the presentation layer.
type FeedEntry struct {
	ID             string
	AnnouncementID string
	Kind           Kind
	Title          string
	Content        string
	Published      time.Time // planned_at
	Updated        time.Time // created_at
}

// Projection is the read model of a page's announcements.
type Projection struct {
	History []DayBucket
	Feed    []FeedEntry
}

// Projector builds history and feed views.
type Projector struct {
	Policy      SchedulePolicy
	HistoryDays int
}

// NewProjector returns a projector with the given policy and window size.
// A non-positive historyDays falls back to DefaultHistoryDays.
func NewProjector(policy SchedulePolicy, historyDays int) Projector {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return Projector{Policy: policy, HistoryDays: historyDays}
}

// FeedEntryID derives a stable entry id from the page and announcement ids.
func FeedEntryID(pageID, announcementID string) string {
	return "urn:uuid:" + uuid.NewSHA1(feedNamespace, []byte(pageID+"/"+announcementID)).String()
}

// Project builds both views. It reads its inputs only.
func (p Projector) Project(page Page, announcements []Announcement, now time.Time) Projection {
	return Projection{
		History: p.History(announcements, now),
		Feed:    Feed(page, announcements),
	}
}

// History returns upcoming days followed by one bucket per day of the
// trailing window, newest first. Days without announcements are empty
// buckets; days older than the window are dropped.
func (p Projector) History(announcements []Announcement, now time.Time) []DayBucket {
	loc := p.Policy.location()
	days := p.HistoryDays
	if days <= 0 {
		days = DefaultHistoryDays
	}

	today := StartOfDay(now, loc)
	byKey := make(map[string]DayBucket)
	var history []DayBucket
	for _, b := range BucketByDay(announcements, loc) {
		if b.Day.After(today) {
			history = append(history, b)
			continue
		}
		byKey[b.Key()] = b
	}

	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, -i)
		key := day.Format(DayKeyLayout)
		if b, ok := byKey[key]; ok {
			history = append(history, b)
			continue
		}
		history = append(history, DayBucket{Day: day})
	}
	return history
}

// Feed lists every announcement newest first with stable entry ids.
func Feed(page Page, announcements []Announcement) []FeedEntry {
	sorted := SortNewestFirst(announcements)
	entries := make([]FeedEntry, 0, len(sorted))
	for _, a := range sorted {
		entries = append(entries, FeedEntry{
			ID:             FeedEntryID(page.ID, a.ID),
			AnnouncementID: a.ID,
			Kind:           a.Kind,
			Title:          a.Title,
			Content:        a.Content,
			Published:      a.PlannedAt,
			Updated:        a.CreatedAt,
		})
	}
	return entries
}
