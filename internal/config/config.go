package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PostgresDSN   string
	ClickHouseDSN string
	RedisAddr     string
	GeoIPDB       string
	ServiceName   string

	// Reputation service configuration. An empty API key disables the
	// reputation filter entirely; it is not an error.
	ProxyCheckURL      string
	ProxyCheckAPIKey   string
	ProxyCheckTimeout  time.Duration
	ReputationCacheTTL time.Duration

	// FallbackURL is where unknown slugs, malformed requests and internal
	// failures land. The /cloak endpoint never answers with anything else
	// when it cannot resolve a campaign.
	FallbackURL string

	// MinScreenWidth is the reported-screen-width pre-filter threshold.
	MinScreenWidth int

	// HitQueueSize bounds the fire-and-forget hit log queue.
	HitQueueSize    int
	HitWriteTimeout time.Duration

	// Database connection pooling configuration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Port = getenv("PORT", "8787")
	cfg.ReadTimeout = envDuration("READ_TIMEOUT", 5*time.Second)
	cfg.WriteTimeout = envDuration("WRITE_TIMEOUT", 10*time.Second)
	cfg.PostgresDSN = getenv("POSTGRES_DSN", "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000/default?async_insert=1&wait_for_async_insert=0")
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.GeoIPDB = getenv("GEOIP_DB", "internal/geoip/testdata/GeoLite2-Country.mmdb")
	cfg.ServiceName = getenv("SERVICE_NAME", "cloakgate")

	cfg.ProxyCheckURL = getenv("PROXYCHECK_URL", "http://proxycheck.io")
	cfg.ProxyCheckAPIKey = getenv("PROXYCHECK_API_KEY", "")
	cfg.ProxyCheckTimeout = envDuration("PROXYCHECK_TIMEOUT", 2500*time.Millisecond)
	cfg.ReputationCacheTTL = envDuration("REPUTATION_CACHE_TTL", 10*time.Minute)

	cfg.FallbackURL = getenv("FALLBACK_URL", "https://google.com")
	cfg.MinScreenWidth = envInt("MIN_SCREEN_WIDTH", 100)

	cfg.HitQueueSize = envInt("HIT_QUEUE_SIZE", 1024)
	cfg.HitWriteTimeout = envDuration("HIT_WRITE_TIMEOUT", 5*time.Second)

	// Database connection pooling configuration
	cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DBConnMaxIdleTime = envDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute)

	// Tracing configuration
	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}
