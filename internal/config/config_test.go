package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TokenBackendMemory, cfg.TokenStore.Backend)
	assert.Equal(t, "refs:", cfg.TokenStore.RedisPrefix)
	assert.Equal(t, "windows", cfg.Grant.GrantType)
	assert.Equal(t, 2*time.Second, cfg.Liveness.LookupTimeout())
	assert.Equal(t, time.Hour, cfg.TokenStore.TokenTTL())
	assert.Equal(t, time.Minute, cfg.TokenStore.SweepInterval())
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsDir)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TOKENSTORE_BACKEND", "Redis")
	t.Setenv("LIVENESS_LOOKUP_TIMEOUT_MS", "150")
	t.Setenv("TOKENSTORE_SWEEP_INTERVAL_SECONDS", "0")
	t.Setenv("GRANT_TYPE", "kerberos")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("AUDIT_REDIS_STREAM", "audit")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, TokenBackendRedis, cfg.TokenStore.Backend)
	assert.Equal(t, 150*time.Millisecond, cfg.Liveness.LookupTimeout())
	assert.Zero(t, cfg.TokenStore.SweepInterval())
	assert.Equal(t, "kerberos", cfg.Grant.GrantType)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, "audit", cfg.Audit.RedisStream)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("TOKENSTORE_BACKEND", "etcd")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TOKENSTORE_BACKEND", "")
	t.Setenv("REDIS_DB", "zero")
	_, err = Load()
	assert.Error(t, err)
}

func TestRequestTimeout(t *testing.T) {
	assert.Zero(t, AppConfig{}.RequestTimeout())
	assert.Equal(t, 3*time.Second, AppConfig{RequestTimeoutSeconds: 3}.RequestTimeout())
}
