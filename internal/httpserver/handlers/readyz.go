package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/taust/internal/httpserver/deps"
	"github.com/MrSnakeDoc/taust/internal/logger"
)

// checkTimeout bounds each backend ping on readiness and infra probes.
const checkTimeout = 2 * time.Second

type readyzResponse struct {
	Ready  bool     `json:"ready"`
	Failed []string `json:"failed,omitempty"`
}

// Readyz is ready when every critical backend answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var failed []string
		for _, c := range d.Checks {
			if !c.Critical {
				continue
			}
			if err := ping(r.Context(), c); err != nil {
				d.Logger.Warn("readiness check failed",
					logger.String("check", c.Name),
					logger.Error(err))
				failed = append(failed, c.Name)
			}
		}

		status := http.StatusOK
		if len(failed) > 0 {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: len(failed) == 0, Failed: failed})
	}
}

func ping(ctx context.Context, c deps.Check) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return c.Pinger.Ping(ctx)
}
