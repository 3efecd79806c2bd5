package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/revocation-service/internal/domain"
)

func TestSinkLogger_Outcomes(t *testing.T) {
	ctx := context.Background()
	sink := &MemorySink{}
	log := NewSinkLogger(sink, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return fixed }

	blocked := true
	entry := Entry{UserID: "u", UserName: "alice", ClientID: "c", ClientName: "portal", IsBlocked: &blocked}
	log.UserSignedIn(ctx, entry)
	log.UnsuccessfulSignIn(ctx, entry)
	log.ProfileAccessed(ctx, entry)
	log.UserSignedOut(ctx, entry)
	log.UnknownUserAttempt(ctx, Entry{UserName: "ghost"})

	events := sink.Events()
	require.Len(t, events, 5)
	outcomes := make([]domain.AuditOutcome, 0, len(events))
	for _, e := range events {
		outcomes = append(outcomes, e.Outcome)
		assert.Equal(t, fixed, e.Timestamp)
	}
	assert.Equal(t, []domain.AuditOutcome{
		domain.AuditSignedIn,
		domain.AuditFailedAttempt,
		domain.AuditProfileAccessed,
		domain.AuditSignedOut,
		domain.AuditUnknownUser,
	}, outcomes)
	assert.Equal(t, "portal", events[0].ClientName)
	require.NotNil(t, events[0].Blocked)
	assert.True(t, *events[0].Blocked)
	assert.Equal(t, "ghost", events[4].SubjectName)
}

func TestSinkLogger_SinkFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	memory := &MemorySink{}
	failing := SinkFunc(func(context.Context, domain.AuditEvent) error { return errors.New("disk full") })
	log := NewSinkLogger(MultiSink(failing, nil, memory), zap.New(core))

	log.UserSignedIn(context.Background(), Entry{UserID: "u"})

	assert.Len(t, memory.Events(), 1)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "audit sink failed", entry.Message)
	assert.Equal(t, "disk full", entry.ContextMap()["error"])
}

func TestNormalize(t *testing.T) {
	assert.NotPanics(t, func() {
		Normalize(nil).UserSignedIn(context.Background(), Entry{})
	})
	assert.NoError(t, SinkFunc(nil).Record(context.Background(), domain.AuditEvent{}))
}

func TestWriterSink_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, sink.Record(context.Background(), domain.AuditEvent{
		Timestamp:   ts,
		Outcome:     domain.AuditFailedAttempt,
		SubjectID:   "u",
		SubjectName: "alice",
		ClientID:    "c",
		Reason:      "invalid_grant",
	}))
	require.NoError(t, sink.Record(context.Background(), domain.AuditEvent{Timestamp: ts, Outcome: domain.AuditUnknownUser}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "failed-attempt", first["outcome"])
	assert.Equal(t, "alice", first["subject_name"])
	assert.Equal(t, "invalid_grant", first["reason"])
	assert.Equal(t, "2026-03-01T12:00:00.000Z", first["timestamp"])
	assert.NotContains(t, first, "client_name")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "unknown-user", second["outcome"])
	assert.NotContains(t, second, "subject_id")
}

func TestFileSink_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	for i := 0; i < 2; i++ {
		sink, err := NewFileSink(path)
		require.NoError(t, err)
		require.NoError(t, sink.Record(context.Background(), domain.AuditEvent{Outcome: domain.AuditSignedIn, Timestamp: time.Now()}))
		require.NoError(t, sink.Close())
	}

	sink, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestRedisStreamSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sink := NewRedisStreamSink(client, "audit", 0)
	blocked := false
	require.NoError(t, sink.Record(ctx, domain.AuditEvent{
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Outcome:   domain.AuditSignedOut,
		SubjectID: "u",
		ClientID:  "c",
		Blocked:   &blocked,
	}))

	msgs, err := client.XRange(ctx, "audit", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "signed-out", msgs[0].Values["outcome"])
	assert.Equal(t, "u", msgs[0].Values["subject_id"])
	assert.Equal(t, "false", msgs[0].Values["blocked"])
	assert.Equal(t, "2026-03-01T12:00:00Z", msgs[0].Values["timestamp"])
	assert.NotContains(t, msgs[0].Values, "reason")

	mr.Close()
	assert.Error(t, sink.Record(ctx, domain.AuditEvent{Outcome: domain.AuditSignedIn}))
}
