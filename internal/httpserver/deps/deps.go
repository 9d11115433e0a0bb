package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/taust/internal/logger"
	"github.com/MrSnakeDoc/taust/internal/sources/catalog"
	"github.com/MrSnakeDoc/taust/internal/status"
	"github.com/MrSnakeDoc/taust/internal/version"
)

// Pinger is a backend that can report whether it answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one backend reported on /readyz and /infra.
type Check struct {
	Name     string // "database", "redis", "metrics"
	Mode     string // ex: "sqlite3", "redis", "memory"
	Pinger   Pinger
	Critical bool // false => failure only degrades the service
}

// ReloadStatus reports the outcome of the last catalog reload.
type ReloadStatus interface {
	LastReload() (time.Time, catalog.Report, error)
}

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Build         version.Info
	TimeNow       func() time.Time // for testing, defaults to time.Now
	AllowedHosts  []string         // Host headers allowed to reach admin routes
	AllowedCIDRS  []string         // IPs allowed to reach admin routes
	TrustProxy    bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Status        *status.Service  // aggregation engine
	Checks        []Check          // backends probed by readiness and infra
	ReloadTrigger chan struct{}    // manual catalog reload, nil when no catalog file
	Reloader      ReloadStatus     // nil when no catalog file

	// Metric ingestion rate limit, per client IP and server
	IngestBurst        int
	IngestRefillPerMin int
}

// Now returns the current time from TimeNow, or time.Now when unset.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
