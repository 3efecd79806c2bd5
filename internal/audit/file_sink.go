package audit

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/revocation-service/internal/domain"
)

// FileSink appends one JSON line per event through a dedicated zap core.
type FileSink struct {
	logger *zap.Logger
	closer io.Closer
}

// NewFileSink opens path for appending, creating it if needed.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, err
	}
	sink := NewWriterSink(f)
	sink.closer = f
	return sink, nil
}

// NewWriterSink writes events to w.
func NewWriterSink(w io.Writer) *FileSink {
	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "outcome",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), zapcore.InfoLevel)
	return &FileSink{logger: zap.New(core)}
}

func (s *FileSink) Record(_ context.Context, event domain.AuditEvent) error {
	fields := []zap.Field{zap.Time("timestamp", event.Timestamp)}
	fields = appendString(fields, "subject_id", event.SubjectID)
	fields = appendString(fields, "subject_name", event.SubjectName)
	fields = appendString(fields, "client_id", event.ClientID)
	fields = appendString(fields, "client_name", event.ClientName)
	if event.Blocked != nil {
		fields = append(fields, zap.Bool("blocked", *event.Blocked))
	}
	fields = appendString(fields, "reason", event.Reason)

	s.logger.Info(string(event.Outcome), fields...)
	return nil
}

// Close flushes and closes the underlying file, if any.
func (s *FileSink) Close() error {
	_ = s.logger.Sync()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func appendString(fields []zap.Field, key, value string) []zap.Field {
	if value == "" {
		return fields
	}
	return append(fields, zap.String(key, value))
}
