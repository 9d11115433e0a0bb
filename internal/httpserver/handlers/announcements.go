package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/taust/internal/httpserver/deps"
	"github.com/MrSnakeDoc/taust/internal/status"
)

type createAnnouncementRequest struct {
	Kind      string `json:"type"`
	PlannedAt string `json:"planned_at"` // RFC 3339, or "2006-01-02T15:04" in the service time zone
	Title     string `json:"title"`
	Content   string `json:"content"`
}

func ListAnnouncements(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		anns, err := d.Status.ListAnnouncements(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAnnouncements(anns))
	}
}

func CreateAnnouncement(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAnnouncementRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		a, err := d.Status.CreateAnnouncement(r.Context(), chi.URLParam(r, "id"), status.AnnouncementInput{
			Kind:      req.Kind,
			PlannedAt: req.PlannedAt,
			Title:     req.Title,
			Content:   req.Content,
		})
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAnnouncement(a))
	}
}
