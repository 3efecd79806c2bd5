// Package audit records authentication decisions to append-only sinks.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/observability"
)

// Entry carries whatever the caller knows about the actor. Empty fields are omitted.
type Entry struct {
	UserID     string
	UserName   string
	ClientID   string
	ClientName string
	IsBlocked  *bool
	Reason     string
}

// Logger receives one call per audited decision.
type Logger interface {
	UserSignedIn(ctx context.Context, entry Entry)
	UserSignedOut(ctx context.Context, entry Entry)
	UnsuccessfulSignIn(ctx context.Context, entry Entry)
	ProfileAccessed(ctx context.Context, entry Entry)
	UnknownUserAttempt(ctx context.Context, entry Entry)
}

// Sink persists audit events.
type Sink interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event domain.AuditEvent) error

func (f SinkFunc) Record(ctx context.Context, event domain.AuditEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopSink struct{}

func (noopSink) Record(context.Context, domain.AuditEvent) error { return nil }

func normalizeSink(s Sink) Sink {
	if s == nil {
		return noopSink{}
	}
	return s
}

// MultiSink writes every event to each sink in order and joins their errors.
func MultiSink(sinks ...Sink) Sink {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return SinkFunc(func(ctx context.Context, event domain.AuditEvent) error {
		var errs []error
		for _, s := range active {
			if err := s.Record(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (m *MemorySink) Record(_ context.Context, event domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (m *MemorySink) Events() []domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEvent(nil), m.events...)
}

// SinkLogger turns Logger calls into timestamped events. Sink failures are logged and
// otherwise ignored.
type SinkLogger struct {
	sink   Sink
	logger *zap.Logger
	now    func() time.Time
}

// NewSinkLogger returns a Logger writing to sink.
func NewSinkLogger(sink Sink, logger *zap.Logger) *SinkLogger {
	return &SinkLogger{
		sink:   normalizeSink(sink),
		logger: observability.Named(logger, "audit"),
		now:    time.Now,
	}
}

var _ Logger = (*SinkLogger)(nil)

func (l *SinkLogger) UserSignedIn(ctx context.Context, e Entry) {
	l.emit(ctx, domain.AuditSignedIn, e)
}

func (l *SinkLogger) UserSignedOut(ctx context.Context, e Entry) {
	l.emit(ctx, domain.AuditSignedOut, e)
}

func (l *SinkLogger) UnsuccessfulSignIn(ctx context.Context, e Entry) {
	l.emit(ctx, domain.AuditFailedAttempt, e)
}

func (l *SinkLogger) ProfileAccessed(ctx context.Context, e Entry) {
	l.emit(ctx, domain.AuditProfileAccessed, e)
}

func (l *SinkLogger) UnknownUserAttempt(ctx context.Context, e Entry) {
	l.emit(ctx, domain.AuditUnknownUser, e)
}

func (l *SinkLogger) emit(ctx context.Context, outcome domain.AuditOutcome, e Entry) {
	event := domain.AuditEvent{
		Timestamp:   l.now().UTC(),
		Outcome:     outcome,
		SubjectID:   e.UserID,
		SubjectName: e.UserName,
		ClientID:    e.ClientID,
		ClientName:  e.ClientName,
		Blocked:     e.IsBlocked,
		Reason:      e.Reason,
	}
	if err := l.sink.Record(ctx, event); err != nil {
		l.logger.Error("audit sink failed",
			zap.String("outcome", string(outcome)),
			zap.String("subject_id", e.UserID),
			zap.Error(err),
		)
	}
}

type noopLogger struct{}

func (noopLogger) UserSignedIn(context.Context, Entry)       {}
func (noopLogger) UserSignedOut(context.Context, Entry)      {}
func (noopLogger) UnsuccessfulSignIn(context.Context, Entry) {}
func (noopLogger) ProfileAccessed(context.Context, Entry)    {}
func (noopLogger) UnknownUserAttempt(context.Context, Entry) {}

// Normalize returns l, or a Logger that drops everything when l is nil.
func Normalize(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}
