package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/revocation-service/internal/domain"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// DefaultStreamMaxLen caps the audit stream length; trimming is approximate.
const DefaultStreamMaxLen = 100000

// RedisStreamSink appends events to a Redis stream with XADD.
type RedisStreamSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisStreamSink returns a sink for stream. maxLen <= 0 selects DefaultStreamMaxLen.
func NewRedisStreamSink(client redis.UniversalClient, stream string, maxLen int64) *RedisStreamSink {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStreamSink) Record(ctx context.Context, event domain.AuditEvent) error {
	values := map[string]any{
		"timestamp": event.Timestamp.UTC().Format(time.RFC3339Nano),
		"outcome":   string(event.Outcome),
	}
	setIf(values, "subject_id", event.SubjectID)
	setIf(values, "subject_name", event.SubjectName)
	setIf(values, "client_id", event.ClientID)
	setIf(values, "client_name", event.ClientName)
	if event.Blocked != nil {
		values["blocked"] = strconv.FormatBool(*event.Blocked)
	}
	setIf(values, "reason", event.Reason)

	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return apperrors.FromContext("audit stream append", err)
	}
	return nil
}

func setIf(values map[string]any, key, value string) {
	if value != "" {
		values[key] = value
	}
}
