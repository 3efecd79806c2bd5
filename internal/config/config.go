package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Liveness   LivenessConfig
	TokenStore TokenStoreConfig
	Grant      GrantConfig
	Audit      AuditConfig
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
	MigrationsDir  string
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
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminKey              string
}

// LivenessConfig bounds the repository lookups behind every liveness check.
type LivenessConfig struct {
	LookupTimeoutMillis int
}

// TokenStoreConfig selects and tunes the reference token backend.
type TokenStoreConfig struct {
	Backend              string
	RedisPrefix          string
	TokenTTLMinutes      int
	SweepIntervalSeconds int
}

// GrantConfig configures the custom credential grant.
type GrantConfig struct {
	GrantType string
}

// AuditConfig lists the audit sinks to enable. Empty values disable a sink.
type AuditConfig struct {
	FilePath    string
	RedisStream string
}

const (
	TokenBackendMemory = "memory"
	TokenBackendRedis  = "redis"
)

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
			Name:                  getEnv("APP_NAME", "revocation-service"),
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
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminKey:              os.Getenv("ADMIN_API_KEY"),
		},
		Liveness: LivenessConfig{
			LookupTimeoutMillis: getEnvAsInt("LIVENESS_LOOKUP_TIMEOUT_MS", 2000),
		},
		TokenStore: TokenStoreConfig{
			Backend:              strings.ToLower(getEnv("TOKENSTORE_BACKEND", TokenBackendMemory)),
			RedisPrefix:          getEnv("TOKENSTORE_REDIS_PREFIX", "refs:"),
			TokenTTLMinutes:      getEnvAsInt("TOKENSTORE_TTL_MINUTES", 60),
			SweepIntervalSeconds: getEnvAsInt("TOKENSTORE_SWEEP_INTERVAL_SECONDS", 60),
		},
		Grant: GrantConfig{
			GrantType: getEnv("GRANT_TYPE", "windows"),
		},
		Audit: AuditConfig{
			FilePath:    getEnv("AUDIT_FILE_PATH", "audit.log"),
			RedisStream: os.Getenv("AUDIT_REDIS_STREAM"),
		},
	}

	switch cfg.TokenStore.Backend {
	case TokenBackendMemory, TokenBackendRedis:
	default:
		return nil, fmt.Errorf("invalid TOKENSTORE_BACKEND: %q", cfg.TokenStore.Backend)
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

// LookupTimeout returns the per-lookup deadline, never zero.
func (l LivenessConfig) LookupTimeout() time.Duration {
	if l.LookupTimeoutMillis <= 0 {
		return 2 * time.Second
	}
	return time.Duration(l.LookupTimeoutMillis) * time.Millisecond
}

// TokenTTL returns the lifetime given to newly issued reference tokens.
func (t TokenStoreConfig) TokenTTL() time.Duration {
	if t.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(t.TokenTTLMinutes) * time.Minute
}

// SweepInterval returns how often expired reference tokens are purged; zero disables sweeping.
func (t TokenStoreConfig) SweepInterval() time.Duration {
	if t.SweepIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(t.SweepIntervalSeconds) * time.Second
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
