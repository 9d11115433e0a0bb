package redis

import "strings"

const (
	// KeyPrefixMetrics is the prefix for per-server metric history sorted sets
	KeyPrefixMetrics = "taust:metrics:"
	// KeyPrefixSummary is the prefix for cached page summaries
	KeyPrefixSummary = "taust:summary:"
)

// MetricsKey returns the Redis key for a server's metric history
func MetricsKey(serverID string) string {
	return KeyPrefixMetrics + serverID
}

// SummaryKey returns the Redis key for a cached page summary
func SummaryKey(pageID string) string {
	return KeyPrefixSummary + pageID
}

// ExtractServerID extracts the server ID from a metrics key
func ExtractServerID(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, KeyPrefixMetrics)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
