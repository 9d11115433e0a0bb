package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/taust/internal/httpserver/deps"
	"github.com/MrSnakeDoc/taust/internal/status"
)

type createPageRequest struct {
	Title string `json:"title"`
}

type updatePageRequest struct {
	Title     *string   `json:"title"`
	Hostname  *string   `json:"hostname"`
	Style     *string   `json:"style"`
	Locale    *string   `json:"locale"`
	ServerIDs *[]string `json:"server_ids"`
	DomainIDs *[]string `json:"domain_ids"`
}

func ListPages(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pages, err := d.Status.ListPages(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		out := make([]pageResponse, 0, len(pages))
		for _, p := range pages {
			out = append(out, toPage(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func CreatePage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		page, err := d.Status.CreatePage(r.Context(), req.Title)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.Header().Set("Location", "/pages/"+page.ID)
		writeJSON(w, http.StatusCreated, toPage(page))
	}
}

func GetPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := d.Status.GetPage(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toPage(page))
	}
}

// UpdatePage changes only the fields present in the body. server_ids and
// domain_ids replace the page memberships in the given order.
func UpdatePage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updatePageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		page, err := d.Status.UpdatePage(r.Context(), chi.URLParam(r, "id"), status.PageUpdate{
			Title:     req.Title,
			Hostname:  req.Hostname,
			Style:     req.Style,
			Locale:    req.Locale,
			ServerIDs: req.ServerIDs,
			DomainIDs: req.DomainIDs,
		})
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toPage(page))
	}
}

func DeletePage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Status.DeletePage(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PageStyle serves the custom stylesheet of a page.
func PageStyle(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		css, err := d.Status.PageStyle(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=60")
		_, _ = w.Write([]byte(css))
	}
}
