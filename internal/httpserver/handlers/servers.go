package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/taust/internal/domain"
	"github.com/MrSnakeDoc/taust/internal/httpserver/deps"
)

// maxMetricBytes bounds one metric report.
const maxMetricBytes = 64 << 10

type createServerRequest struct {
	Hostname string `json:"hostname"`
}

type createDomainRequest struct {
	Name string `json:"name"`
}

type ingestResponse struct {
	ServerID    string    `json:"server_id"`
	CollectedAt time.Time `json:"collected_at"`
}

func ListServers(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		servers, err := d.Status.ListServers(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toServers(servers))
	}
}

func CreateServer(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createServerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		srv, err := d.Status.CreateServer(r.Context(), req.Hostname)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.Header().Set("Location", "/servers/"+srv.ID)
		writeJSON(w, http.StatusCreated, toServer(srv))
	}
}

// GetServer returns a server with its verdict and recent metrics.
func GetServer(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := d.Status.ServerHealth(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toServerDetail(detail))
	}
}

// IngestMetric stores the request body as a metric report. The collection
// time comes from ?at= (RFC 3339) or defaults to the receipt time. The body
// is stored as received whatever its shape.
func IngestMetric(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collectedAt := d.Now().UTC()
		if at := r.URL.Query().Get("at"); at != "" {
			t, err := time.Parse(time.RFC3339Nano, at)
			if err != nil {
				verr := domain.NewValidationError()
				verr.Add("at", "The collection time must be an RFC 3339 timestamp.")
				writeError(w, r, d.Logger, verr)
				return
			}
			collectedAt = t.UTC()
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMetricBytes))
		if err != nil {
			verr := domain.NewValidationError()
			verr.Add("body", "The metric report is too large.")
			writeError(w, r, d.Logger, verr)
			return
		}

		serverID := chi.URLParam(r, "id")
		if err := d.Status.Ingest(r.Context(), serverID, collectedAt, body); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusAccepted, ingestResponse{ServerID: serverID, CollectedAt: collectedAt})
	}
}

func ListDomains(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domains, err := d.Status.ListDomains(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toDomains(domains))
	}
}

func CreateDomain(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDomainRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		dom, err := d.Status.CreateDomain(r.Context(), req.Name)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, domainResponse{ID: dom.ID, Name: dom.Name, CreatedAt: dom.CreatedAt})
	}
}
