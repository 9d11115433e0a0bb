package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/taust/internal/domain"
	"github.com/MrSnakeDoc/taust/internal/httpserver/deps"
)

type dayResponse struct {
	Date          string                 `json:"date"`
	Announcements []announcementResponse `json:"announcements"`
}

type historyResponse struct {
	PageID string        `json:"page_id"`
	Days   []dayResponse `json:"days"`
}

// feedResponse follows the JSON Feed 1.1 layout.
type feedResponse struct {
	Version string             `json:"version"`
	Title   string             `json:"title"`
	HomeURL string             `json:"home_page_url,omitempty"`
	FeedURL string             `json:"feed_url,omitempty"`
	Items   []feedItemResponse `json:"items"`
}

type feedItemResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ContentText   string    `json:"content_text"`
	DatePublished time.Time `json:"date_published"`
	DateModified  time.Time `json:"date_modified"`
	Tags          []string  `json:"tags"`
}

const jsonFeedVersion = "https://jsonfeed.org/version/1.1"

// PageStatus returns the aggregated status of a page.
func PageStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := d.Status.PageStatus(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, toSummary(sum))
	}
}

// PublicStatus serves the status of the page bound to the request Host.
func PublicStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := d.Status.PageByHost(r.Context(), r.Host)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		if sum.Page.Locale != "" {
			w.Header().Set("Content-Language", localeTag(sum.Page.Locale))
		}
		writeJSON(w, http.StatusOK, toSummary(sum))
	}
}

// localeTag turns "fr_FR" into the BCP 47 form "fr-FR".
func localeTag(locale string) string {
	return strings.ReplaceAll(locale, "_", "-")
}

// PageHistory returns announcements grouped by day, most recent first.
func PageHistory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, proj, err := d.Status.Project(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		days := make([]dayResponse, 0, len(proj.History))
		for _, b := range proj.History {
			days = append(days, dayResponse{Date: b.Key(), Announcements: toAnnouncements(b.Announcements)})
		}
		writeJSON(w, http.StatusOK, historyResponse{PageID: page.ID, Days: days})
	}
}

// PageFeed renders the syndication feed of a page.
func PageFeed(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, proj, err := d.Status.Project(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		feed := feedResponse{
			Version: jsonFeedVersion,
			Title:   page.Title,
			Items:   make([]feedItemResponse, 0, len(proj.Feed)),
		}
		if page.Hostname != "" {
			feed.HomeURL = "https://" + page.Hostname + "/"
			feed.FeedURL = "https://" + page.Hostname + "/pages/" + page.ID + "/feed"
		}
		for _, e := range proj.Feed {
			feed.Items = append(feed.Items, toFeedItem(e))
		}
		w.Header().Set("Content-Type", "application/feed+json")
		w.WriteHeader(http.StatusOK)
		_ = encodeJSON(w, feed)
	}
}

func toFeedItem(e domain.FeedEntry) feedItemResponse {
	return feedItemResponse{
		ID:            e.ID,
		Title:         e.Title,
		ContentText:   e.Content,
		DatePublished: e.Published,
		DateModified:  e.Updated,
		Tags:          []string{string(e.Kind)},
	}
}
