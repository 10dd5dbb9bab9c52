package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/openhouse/marketing-stats/domain"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Backend     BackendConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Journal     JournalConfig
	Stats       StatsConfig
	Scheduler   SchedulerConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxConn       int
	EnableMetrics bool
}

// BackendConfig describes the hosted analytics datastore. URL carries host and
// database only; the two credential tiers are supplied as "role:secret" keys.
type BackendConfig struct {
	URL             string
	ReadKey         string
	ServiceKey      string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	TrustedProxies    int
}

type JournalConfig struct {
	Path         string
	SyncInterval time.Duration
	MaxRetry     int
	BatchSize    int
}

type StatsConfig struct {
	AggregateInterval        time.Duration
	InternalSchedulerEnabled bool
	ActiveWindow             time.Duration
	LiveWindow               time.Duration
	DefaultTotalUnits        int64
}

type SchedulerConfig struct {
	AggregateURL string
	Timeout      time.Duration
	TokenTTL     time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "marketing-stats"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:       getInt("SERVER_MAX_CONN", 0),
			EnableMetrics: getBool("SERVER_ENABLE_METRICS", true),
		},
		Backend: BackendConfig{
			URL:             strings.TrimSpace(os.Getenv("STATS_DATABASE_URL")),
			ReadKey:         strings.TrimSpace(os.Getenv("STATS_READ_KEY")),
			ServiceKey:      strings.TrimSpace(os.Getenv("STATS_SERVICE_KEY")),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 0),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getFloat("RATE_LIMIT_RPS", 5),
			Burst:             getInt("RATE_LIMIT_BURST", 20),
			TrustedProxies:    getInt("RATE_LIMIT_TRUSTED_PROXIES", 0),
		},
		Journal: JournalConfig{
			Path:         getString("JOURNAL_PATH", "./data/journal.db"),
			SyncInterval: getDuration("JOURNAL_SYNC_INTERVAL", time.Minute),
			MaxRetry:     getInt("JOURNAL_MAX_RETRY", 5),
			BatchSize:    getInt("JOURNAL_BATCH_SIZE", 100),
		},
		Stats: StatsConfig{
			AggregateInterval:        getDuration("STATS_AGGREGATE_INTERVAL", 10*time.Minute),
			InternalSchedulerEnabled: getBool("STATS_INTERNAL_SCHEDULER_ENABLED", false),
			ActiveWindow:             getDuration("STATS_ACTIVE_WINDOW", 30*24*time.Hour),
			LiveWindow:               getDuration("STATS_LIVE_WINDOW", 5*time.Minute),
			DefaultTotalUnits:        int64(getInt("STATS_DEFAULT_TOTAL_UNITS", int(domain.DefaultTotalUnits))),
		},
		Scheduler: SchedulerConfig{
			AggregateURL: getString("STATS_AGGREGATE_URL", "http://localhost:8080/api/internal/stats/aggregate"),
			Timeout:      getDuration("SCHEDULER_TIMEOUT", 60*time.Second),
			TokenTTL:     getDuration("SCHEDULER_TOKEN_TTL", 5*time.Minute),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Stats.DefaultTotalUnits <= 0 {
		cfg.Stats.DefaultTotalUnits = domain.DefaultTotalUnits
	}

	return cfg, nil
}

// ReaderDSN returns the connection string for the read-only credential tier.
func (b BackendConfig) ReaderDSN() (string, error) {
	return b.dsn(b.ReadKey)
}

// WriterDSN returns the connection string for the privileged credential tier.
func (b BackendConfig) WriterDSN() (string, error) {
	return b.dsn(b.ServiceKey)
}

// DatabaseName returns the database part of the backend URL, if any.
func (b BackendConfig) DatabaseName() string {
	parsed, err := url.Parse(b.URL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Path, "/")
}

// Host returns the backend host for log fields; credentials are never included.
func (b BackendConfig) Host() string {
	parsed, err := url.Parse(b.URL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func (b BackendConfig) dsn(key string) (string, error) {
	if b.URL == "" || key == "" {
		return "", domain.ErrBackendNotConfigured
	}

	parsed, err := url.Parse(b.URL)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeUnavailable, domain.ErrBackendMisconfigured.Message, err)
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return "", domain.ErrBackendMisconfigured
	}
	if parsed.Host == "" {
		return "", domain.ErrBackendMisconfigured
	}

	role, secret, ok := strings.Cut(key, ":")
	if !ok || role == "" || secret == "" {
		return "", domain.ErrBackendMisconfigured
	}

	parsed.User = url.UserPassword(role, secret)
	return parsed.String(), nil
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
