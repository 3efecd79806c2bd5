// Package liveness decides whether a subject and a client may still operate. Every call
// reads the current user and client records; nothing is cached between calls, so a block
// or deletion takes effect on the next check.
package liveness

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/observability"
	"github.com/spec-kit/revocation-service/internal/repository"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// DefaultLookupTimeout bounds each repository call when no timeout is configured.
const DefaultLookupTimeout = apperrors.DefaultCallTimeout

// Oracle checks user and client records on every call.
type Oracle struct {
	users   repository.UserRepository
	clients repository.ClientRepository
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithTimeout sets the deadline applied to each repository lookup.
func WithTimeout(d time.Duration) Option {
	return func(o *Oracle) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Oracle) {
		o.logger = observability.Named(logger, "liveness")
	}
}

// WithMetrics records one counter per decision.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *Oracle) {
		o.metrics = metrics
	}
}

// New builds an Oracle over the two repositories.
func New(users repository.UserRepository, clients repository.ClientRepository, opts ...Option) *Oracle {
	o := &Oracle{
		users:   users,
		clients: clients,
		timeout: DefaultLookupTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Check fetches the user, then the client, and reports their current state. A missing or
// blocked user stops the check before the client is fetched. Negative decisions are
// reported through the status; the error is reserved for lookups that failed or timed out.
func (o *Oracle) Check(ctx context.Context, subjectID, clientID string) (domain.LivenessStatus, error) {
	var status domain.LivenessStatus

	user, err := apperrors.Bounded(ctx, o.timeout, "user lookup", func(ctx context.Context) (*domain.User, error) {
		return o.users.FindByID(ctx, subjectID)
	})
	switch {
	case err != nil && !apperrors.IsNotFound(err):
		o.fail("user", subjectID, clientID, err)
		return status, err
	case err == nil && user != nil:
		status.SubjectExists = true
		status.SubjectBlocked = user.IsBlocked
	}

	if !status.SubjectExists || status.SubjectBlocked {
		o.decide(status, subjectID, clientID)
		return status, nil
	}

	client, err := apperrors.Bounded(ctx, o.timeout, "client lookup", func(ctx context.Context) (*domain.Client, error) {
		return o.clients.FindByID(ctx, clientID)
	})
	switch {
	case err != nil && !apperrors.IsNotFound(err):
		o.fail("client", subjectID, clientID, err)
		return status, err
	case err == nil && client != nil:
		status.ClientExists = true
		status.ClientBlocked = client.IsBlocked
	}

	o.decide(status, subjectID, clientID)
	return status, nil
}

// IsLive is Check collapsed to a boolean.
func (o *Oracle) IsLive(ctx context.Context, subjectID, clientID string) (bool, error) {
	status, err := o.Check(ctx, subjectID, clientID)
	if err != nil {
		return false, err
	}
	return status.Live(), nil
}

func (o *Oracle) decide(status domain.LivenessStatus, subjectID, clientID string) {
	if status.Live() {
		o.metrics.RecordLiveness("live")
		return
	}
	o.metrics.RecordLiveness("denied")
	o.logger.Debug("liveness denied",
		zap.String("subject_id", subjectID),
		zap.String("client_id", clientID),
		zap.Bool("subject_exists", status.SubjectExists),
		zap.Bool("subject_blocked", status.SubjectBlocked),
		zap.Bool("client_exists", status.ClientExists),
		zap.Bool("client_blocked", status.ClientBlocked),
	)
}

func (o *Oracle) fail(record, subjectID, clientID string, err error) {
	result := "error"
	if apperrors.IsTimeout(err) {
		result = "timeout"
	}
	o.metrics.RecordLiveness(result)
	o.logger.Warn("liveness lookup failed",
		zap.String("record", record),
		zap.String("subject_id", subjectID),
		zap.String("client_id", clientID),
		zap.Error(err),
	)
}
