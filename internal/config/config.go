package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/taust/internal/retry"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Database (pages, servers, domains, announcements)
	DBDriver string // "sqlite3" (default) | "postgres"
	DBDSN    string // sqlite file path or postgres connection string

	// Background workers
	CatalogFile       string        // optional YAML catalog, empty = no reloader
	ReloadInterval    time.Duration // catalog reload interval (default: 1h)
	RetentionInterval time.Duration // metric pruning interval (default: 1h)
	MetricRetention   time.Duration // how long metric history is kept (default: 7 days)
	MetricHistory     int           // max metrics kept per server (default: 1000)

	// Aggregation policy
	StaleThreshold    time.Duration  // metric age after which a server is stale (default: 5m)
	Location          *time.Location // day boundaries for maintenance and history (default: UTC)
	MaintenanceWindow time.Duration  // 0 => maintenance active for its calendar day
	HistoryDays       int            // trailing history window, today included (default: 7)
	StatusCacheTTL    time.Duration  // page summary cache TTL when Redis is set (default: 15s)
	RecentMetrics     int            // metrics returned with a server (default: 20)

	// Redis (optional: empty address => in-memory metric store, no summary cache)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisPoolSize         int           // Redis connection pool size

	// Connection retry, shared by Redis and the database
	ConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RetryMaxWait   time.Duration // max wait between retries (ex: 10s)
	PingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	WarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict admin routes to specific Host headers
	AllowedCIDRS []string // optional, restrict admin routes to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	// Metric ingestion rate limit, per client IP and server
	IngestBurst        int
	IngestRefillPerMin int
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("TAUST_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("TAUST_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("TAUST_LOG_LEVEL", "info"),
		PrettyLog: mustBool("TAUST_PRETTY_LOG", true),

		// Database
		DBDriver: getenv("TAUST_DB_DRIVER", "sqlite3"),
		DBDSN:    getenv("TAUST_DB_DSN", "/app/data/taust.db"),

		// Workers
		CatalogFile:       getenv("TAUST_CATALOG_FILE", ""),
		ReloadInterval:    mustPositiveDuration("TAUST_RELOAD_INTERVAL", time.Hour),
		RetentionInterval: mustPositiveDuration("TAUST_RETENTION_INTERVAL", time.Hour),
		MetricRetention:   mustDuration("TAUST_METRIC_RETENTION", 7*24*time.Hour),
		MetricHistory:     getenvInt("TAUST_METRIC_HISTORY", 1000),

		// Aggregation policy
		StaleThreshold:    mustDuration("TAUST_STALE_THRESHOLD", 5*time.Minute),
		Location:          mustLocation("TAUST_TIMEZONE", time.UTC),
		MaintenanceWindow: mustDuration("TAUST_MAINTENANCE_WINDOW", 0),
		HistoryDays:       getenvInt("TAUST_HISTORY_DAYS", 7),
		StatusCacheTTL:    mustDuration("TAUST_STATUS_CACHE_TTL", 15*time.Second),
		RecentMetrics:     getenvInt("TAUST_RECENT_METRICS", 20),

		// Redis settings
		RedisAddr:             getenv("TAUST_REDIS_ADDR", ""),
		RedisUser:             getenv("TAUST_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("TAUST_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("TAUST_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("TAUST_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),

		// Connection retry
		ConnectTimeout: mustDuration("TAUST_CONNECT_TIMEOUT", 30*time.Second),
		RetryInterval:  mustDuration("TAUST_RETRY_INTERVAL", 2*time.Second),
		RetryMaxWait:   mustDuration("TAUST_RETRY_MAX_WAIT", 10*time.Second),
		PingTimeout:    mustDuration("TAUST_PING_TIMEOUT", 5*time.Second),
		WarnThreshold:  getenvInt("TAUST_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("TAUST_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("TAUST_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("TAUST_TRUST_PROXY", false),

		// Ingestion
		IngestBurst:        getenvInt("TAUST_INGEST_BURST", 60),
		IngestRefillPerMin: getenvInt("TAUST_INGEST_REFILL_PER_MIN", 60),
	}

	// Validate Redis password configuration
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: TAUST_REDIS_PASSWORD is required when TAUST_REDIS_PASSWORD_REQUIRED=true")
	}

	// A postgres DSN has no sensible default
	if isPostgres(cfg.DBDriver) && os.Getenv("TAUST_DB_DSN") == "" {
		cfg.DBDSN = requireEnv("TAUST_DB_DSN")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		if isPostgres(cfg.DBDriver) {
			cfgCopy.DBDSN = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// Retry returns the connection retry options for Redis and the database.
func (c *Config) Retry() retry.Options {
	return retry.Options{
		ConnectTimeout: c.ConnectTimeout,
		RetryInterval:  c.RetryInterval,
		MaxWait:        c.RetryMaxWait,
		PingTimeout:    c.PingTimeout,
		WarnThreshold:  c.WarnThreshold,
	}
}

func isPostgres(driver string) bool {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pq":
		return true
	}
	return false
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustPositiveDuration is mustDuration for ticker intervals, which must be > 0.
func mustPositiveDuration(key string, def time.Duration) time.Duration {
	d := mustDuration(key, def)
	if d <= 0 {
		panic(fmt.Sprintf("❌ FATAL: %s must be a positive duration, got %s", key, d))
	}
	return d
}

// mustLocation loads an IANA zone name. An unknown zone is fatal since every
// day boundary depends on it.
func mustLocation(key string, def *time.Location) *time.Location {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid time zone for %s: %s", key, v))
	}
	return loc
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
