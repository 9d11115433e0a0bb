package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/taust/internal/httpserver/deps"
	"github.com/MrSnakeDoc/taust/internal/version"
)

type componentStatus struct {
	OK         bool          `json:"ok"`
	Mode       string        `json:"mode,omitempty"`
	Impact     string        `json:"impact,omitempty"`
	Error      string        `json:"error,omitempty"`
	LastReload string        `json:"last_reload,omitempty"`
	Catalog    *reloadReport `json:"catalog,omitempty"`
}

type reloadReport struct {
	ServersCreated int `json:"servers_created"`
	DomainsCreated int `json:"domains_created"`
	PagesCreated   int `json:"pages_created"`
	PagesUpdated   int `json:"pages_updated"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Build      version.Info               `json:"build"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports every backend and the catalog reloader.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := make(map[string]componentStatus, len(d.Checks)+1)
		mode := "operational"

		for _, c := range d.Checks {
			cs := componentStatus{OK: true, Mode: c.Mode}
			if err := ping(r.Context(), c); err != nil {
				cs.OK = false
				cs.Error = err.Error()
				if c.Critical {
					cs.Impact = "requests-failing"
					mode = "critical"
				} else {
					cs.Impact = "degraded"
					if mode == "operational" {
						mode = "degraded"
					}
				}
			}
			components[c.Name] = cs
		}

		if d.Reloader != nil {
			components["catalog"] = catalogStatus(d.Reloader)
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       mode,
			Build:      d.Build,
			Components: components,
		})
	}
}

func catalogStatus(rs deps.ReloadStatus) componentStatus {
	at, rep, err := rs.LastReload()
	cs := componentStatus{
		OK:         err == nil,
		LastReload: "never",
		Catalog: &reloadReport{
			ServersCreated: rep.ServersCreated,
			DomainsCreated: rep.DomainsCreated,
			PagesCreated:   rep.PagesCreated,
			PagesUpdated:   rep.PagesUpdated,
		},
	}
	if !at.IsZero() {
		cs.LastReload = at.Format(time.RFC3339)
	}
	if err != nil {
		cs.Error = err.Error()
		cs.Impact = "catalog-entries-skipped"
	}
	return cs
}
