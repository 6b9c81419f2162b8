package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	Storage     string
	DatabaseURL string
	DBPath      string
	SeedPath    string

	Port        string
	JWTSecret   string
	CORSOrigins []string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LatestCacheTTL time.Duration

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	MetricsAddr string

	Retention       time.Duration
	CleanupInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := &Config{}

	cfg.Storage = strings.ToLower(getenvDefault("STORAGE", StoragePostgres))
	switch cfg.Storage {
	case StoragePostgres:
		dsn, err := postgresDSN()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	case StorageSQLite:
		cfg.DBPath = getenvDefault("DB_PATH", "data/tracker.db")
	default:
		return nil, fmt.Errorf("invalid STORAGE: %q (want postgres or sqlite)", cfg.Storage)
	}
	cfg.SeedPath = os.Getenv("SEED_PATH")

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	cfg.CORSOrigins = splitList(getenvDefault("CORS_ORIGINS", "http://localhost:5173"))

	// Latest-position cache. Empty REDIS_ADDR disables it.
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid REDIS_DB: %q", v)
		}
		cfg.RedisDB = n
	}
	if v := os.Getenv("LATEST_CACHE_TTL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid LATEST_CACHE_TTL_MS: %q", v)
		}
		cfg.LatestCacheTTL = time.Duration(ms) * time.Millisecond
	} else {
		cfg.LatestCacheTTL = 2 * time.Second
	}

	// Position fan-out. Empty NATS_URL disables it.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "vehicles")
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	if v := os.Getenv("RETENTION_HOURS"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h <= 0 {
			return nil, fmt.Errorf("invalid RETENTION_HOURS: %q", v)
		}
		cfg.Retention = time.Duration(h) * time.Hour
	} else {
		cfg.Retention = 48 * time.Hour
	}

	// 0 leaves cleanup to an external scheduler running cmd/cleanup.
	if v := os.Getenv("CLEANUP_INTERVAL_MIN"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 {
			return nil, fmt.Errorf("invalid CLEANUP_INTERVAL_MIN: %q", v)
		}
		cfg.CleanupInterval = time.Duration(m) * time.Minute
	}

	return cfg, nil
}

// RequireSecret fails when no token signing secret is configured.
// Only the HTTP server verifies tokens; the command line tools do not need one.
func (c *Config) RequireSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	return getenvDefault(key, fallback)
}

// Prefer DATABASE_URL / PG_DSN, else build from PG* vars.
func postgresDSN() (string, error) {
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn != "" {
		return dsn, nil
	}

	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	if db == "" {
		return "", errors.New("PGDATABASE or DATABASE_URL must be set (or use STORAGE=sqlite)")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
