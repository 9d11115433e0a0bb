package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/taust/internal/httpserver/deps"
	"github.com/MrSnakeDoc/taust/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/taust/internal/httpserver/mw"
)

func init() { Register(registerServers) }

func registerServers(r chi.Router, d deps.Deps) {
	a := r.With(admin(d)...)
	a.Get("/servers", handlers.ListServers(d))
	a.Post("/servers", handlers.CreateServer(d))
	a.Get("/servers/{id}", handlers.GetServer(d))
	a.Get("/domains", handlers.ListDomains(d))
	a.Post("/domains", handlers.CreateDomain(d))

	// Agents report from anywhere; each (ip, server) pair gets its own bucket.
	r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.IngestBurst,
		RefillPerIPPerMin: d.IngestRefillPerMin,
		MaxEntries:        10000,
		IdleTTL:           15 * time.Minute,
		TrustProxy:        d.TrustProxy,
		KeyFunc:           func(r *http.Request) string { return chi.URLParam(r, "id") },
	})).Post("/servers/{id}/metrics", handlers.IngestMetric(d))
}
