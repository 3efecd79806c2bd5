package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/revocation-service/internal/config"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/connect/token", http.MethodPost, 200, time.Millisecond)
	m.RecordRequest("/connect/token", http.MethodPost, 200, time.Millisecond)
	m.RecordError("/connect/token", http.MethodPost, "UNAUTHORIZED")
	m.RecordLiveness("denied")
	m.RecordTokenOperation("get", "not_live")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap["requests"]["/connect/token|POST|200"])
	assert.Equal(t, int64(1), snap["errors"]["/connect/token|POST|UNAUTHORIZED"])
	assert.Equal(t, int64(1), snap["liveness"]["denied"])
	assert.Equal(t, int64(1), snap["tokens"]["get|not_live"])

	snap["liveness"]["denied"] = 99
	assert.Equal(t, int64(1), m.Snapshot()["liveness"]["denied"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", http.MethodGet, 200, 0)
		m.RecordError("/", http.MethodGet, "X")
		m.RecordLiveness("live")
		m.RecordTokenOperation("get", "ok")
	})
	assert.Nil(t, m.Snapshot())
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusTeapot) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/health/live", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(1), metrics.Snapshot()["requests"]["/health/live|GET|418"])
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "DEBUG"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(config.LoggerConfig{Level: "chatty"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	assert.NotNil(t, Named(nil, "x"))
}
