package domain

import "time"

// HealthVerdict is the evaluated health of a single server.
type HealthVerdict string

const (
	HealthHealthy   HealthVerdict = "healthy"
	HealthUnhealthy HealthVerdict = "unhealthy"
	HealthStale     HealthVerdict = "stale"
	HealthUnknown   HealthVerdict = "unknown"
)

// DefaultStaleThreshold is the maximum metric age trusted as current.
const DefaultStaleThreshold = 5 * time.Minute

var (
	healthyIndicators = map[string]bool{
		"ok":          true,
		"healthy":     true,
		"up":          true,
		"operational": true,
	}
	failureIndicators = map[string]bool{
		"error":     true,
		"fail":      true,
		"failed":    true,
		"failure":   true,
		"ko":        true,
		"down":      true,
		"critical":  true,
		"unhealthy": true,
	}
)

// Evaluate turns the latest metric of a server into a verdict.
//
// A nil metric means the server never reported. A report older than
// staleThreshold is stale whatever it says. A fresh report without a
// recognized indicator counts as healthy: the report itself proves liveness.
func Evaluate(metric *Metric, now time.Time, staleThreshold time.Duration) HealthVerdict {
	if metric == nil {
		return HealthUnknown
	}

	if now.Sub(metric.CollectedAt) > staleThreshold {
		return HealthStale
	}

	indicator, ok := metric.Payload.Indicator()
	if ok && failureIndicators[indicator] {
		return HealthUnhealthy
	}
	// "ok" and unrecognized indicators both end up healthy
	return HealthHealthy
}

// IsRecognizedIndicator reports whether s maps to an explicit verdict.
func IsRecognizedIndicator(s string) bool {
	return healthyIndicators[s] || failureIndicators[s]
}
