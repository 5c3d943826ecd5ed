package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

// Store backends selectable through REGISTRY_STORE.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Registry RegistryConfig
	Events   EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
}

// RegistryConfig tunes the donor registry.
type RegistryConfig struct {
	Store                 string
	Cities                []string
	SearchCacheTTLSeconds int
	RetryAttempts         int
	RetryIntervalMillis   int
	DefaultPageSize       int
	MaxPageSize           int
}

// EventsConfig configures lifecycle event fan-out. Kafka publishing is
// disabled when no brokers are set.
type EventsConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "bloodshare-registry"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Registry: RegistryConfig{
			Store:                 strings.ToLower(getEnv("REGISTRY_STORE", StorePostgres)),
			Cities:                getEnvAsList("REGISTRY_CITIES", domain.DefaultCities),
			SearchCacheTTLSeconds: getEnvAsInt("REGISTRY_SEARCH_CACHE_TTL_SECONDS", 0),
			RetryAttempts:         getEnvAsInt("REGISTRY_RETRY_ATTEMPTS", 3),
			RetryIntervalMillis:   getEnvAsInt("REGISTRY_RETRY_INTERVAL_MS", 100),
			DefaultPageSize:       getEnvAsInt("REGISTRY_DEFAULT_PAGE_SIZE", 50),
			MaxPageSize:           getEnvAsInt("REGISTRY_MAX_PAGE_SIZE", 200),
		},
		Events: EventsConfig{
			KafkaBrokers: getEnvAsList("EVENTS_KAFKA_BROKERS", nil),
			KafkaTopic:   getEnv("EVENTS_KAFKA_TOPIC", "bloodshare.donors"),
		},
	}

	if err := cfg.Registry.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SearchCacheTTL returns how long public search pages are cached. Zero, the
// default, disables caching; a flush only reaches the local process.
func (r RegistryConfig) SearchCacheTTL() time.Duration {
	if r.SearchCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.SearchCacheTTLSeconds) * time.Second
}

// RetryInterval returns the initial backoff between store retries.
func (r RegistryConfig) RetryInterval() time.Duration {
	if r.RetryIntervalMillis <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(r.RetryIntervalMillis) * time.Millisecond
}

func (r RegistryConfig) validate() error {
	switch r.Store {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("invalid REGISTRY_STORE %q: want postgres, redis or memory", r.Store)
	}
	if r.MaxPageSize <= 0 || r.DefaultPageSize <= 0 || r.DefaultPageSize > r.MaxPageSize {
		return fmt.Errorf("invalid page sizes: default %d, max %d", r.DefaultPageSize, r.MaxPageSize)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
