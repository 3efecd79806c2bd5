// Package tokenstore owns issued reference tokens. Every read is filtered through a fresh
// liveness check, so a token becomes unusable as soon as its subject or client is blocked
// or removed, and usable again once the block is lifted.
package tokenstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/events"
	"github.com/spec-kit/revocation-service/internal/observability"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// LivenessChecker answers whether a subject and client may still operate.
type LivenessChecker interface {
	Check(ctx context.Context, subjectID, clientID string) (domain.LivenessStatus, error)
}

// Store is the token handle store. It is safe for concurrent use; the backend serializes
// mutations and liveness lookups run outside any lock.
type Store struct {
	records    Records
	oracle     LivenessChecker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithDispatcher publishes lifecycle events to d.
func WithDispatcher(d events.Dispatcher) Option {
	return func(s *Store) { s.dispatcher = events.Normalize(d) }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = observability.Named(logger, "tokenstore") }
}

// WithMetrics counts operations by result.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Store) { s.metrics = metrics }
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Store over records. A nil records uses a fresh in-memory backend.
func New(records Records, oracle LivenessChecker, opts ...Option) *Store {
	if records == nil {
		records = NewMemoryRecords()
	}
	s := &Store{
		records:    records,
		oracle:     oracle,
		dispatcher: events.Normalize(nil),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewKey returns a fresh opaque handle for a reference token.
func NewKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Store inserts token under key. An existing key is a Conflict; nothing is overwritten.
func (s *Store) Store(ctx context.Context, key string, token *domain.ReferenceToken) error {
	if strings.TrimSpace(key) == "" || token == nil {
		return apperrors.NewValidationError("token key and token are required", nil)
	}
	record := token.Clone()
	record.Key = key
	if record.IssuedAt.IsZero() {
		record.IssuedAt = s.now().UTC()
	}

	if err := s.records.Insert(ctx, record); err != nil {
		s.record("store", err)
		return err
	}
	s.record("store", nil)
	s.publish(ctx, events.EventTokenStored, events.TokenStoredPayload{
		Key:       key,
		SubjectID: record.SubjectID,
		ClientID:  record.ClientID,
	})
	return nil
}

// Get returns the token only while it is unexpired and its subject and client are live.
// Missing, expired and non-live tokens all read as NotFound and none of them is evicted.
// A failed liveness lookup is returned as is.
func (s *Store) Get(ctx context.Context, key string) (*domain.ReferenceToken, error) {
	token, err := s.records.Lookup(ctx, key)
	if err != nil {
		s.record("get", err)
		return nil, err
	}
	if token.Expired(s.now()) {
		s.metrics.RecordTokenOperation("get", "expired")
		return nil, tokenNotFound()
	}

	status, err := s.oracle.Check(ctx, token.SubjectID, token.ClientID)
	if err != nil {
		s.record("get", err)
		return nil, err
	}
	if !status.Live() {
		s.metrics.RecordTokenOperation("get", "not_live")
		return nil, tokenNotFound()
	}
	s.record("get", nil)
	return token, nil
}

// Remove deletes key. Removing an unknown key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	removed, err := s.records.Delete(ctx, key)
	s.record("remove", err)
	if err != nil {
		return err
	}
	if removed {
		s.publish(ctx, events.EventTokenRemoved, events.TokenRemovedPayload{Key: key})
	}
	return nil
}

// Revoke removes the tokens issued to subjectID through clientID; tokens matching only
// one of the two are kept. It returns the number of tokens removed.
func (s *Store) Revoke(ctx context.Context, subjectID, clientID string) (int, error) {
	return s.RevokeMatchingSubjectAndClient(ctx, subjectID, clientID)
}

// RevokeMatchingSubjectAndClient removes tokens whose subject and client both match.
func (s *Store) RevokeMatchingSubjectAndClient(ctx context.Context, subjectID, clientID string) (int, error) {
	return s.revoke(ctx, subjectID, clientID, MatchSubjectAndClient)
}

// RevokeMatchingSubjectOrClient removes every token of subjectID and every token issued
// through clientID.
func (s *Store) RevokeMatchingSubjectOrClient(ctx context.Context, subjectID, clientID string) (int, error) {
	return s.revoke(ctx, subjectID, clientID, MatchSubjectOrClient)
}

func (s *Store) revoke(ctx context.Context, subjectID, clientID string, mode MatchMode) (int, error) {
	keys, err := s.records.DeleteMatching(ctx, subjectID, clientID, mode)
	s.record("revoke", err)
	if err != nil {
		return 0, err
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		s.publish(ctx, events.EventTokensRevoked, events.TokensRevokedPayload{
			SubjectID: subjectID,
			ClientID:  clientID,
			Mode:      string(mode),
			Keys:      keys,
		})
	}
	return len(keys), nil
}

// GetAllForSubject lists the subject's tokens that are unexpired and currently live,
// oldest first. Liveness is checked for each entry.
func (s *Store) GetAllForSubject(ctx context.Context, subjectID string) ([]domain.TokenMetadata, error) {
	tokens, err := s.records.ListBySubject(ctx, subjectID)
	if err != nil {
		s.record("list", err)
		return nil, err
	}

	now := s.now()
	result := make([]domain.TokenMetadata, 0, len(tokens))
	for _, token := range tokens {
		if token.Expired(now) {
			continue
		}
		status, err := s.oracle.Check(ctx, token.SubjectID, token.ClientID)
		if err != nil {
			s.record("list", err)
			return nil, err
		}
		if status.Live() {
			result = append(result, token.Metadata())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IssuedAt.Equal(result[j].IssuedAt) {
			return result[i].Key < result[j].Key
		}
		return result[i].IssuedAt.Before(result[j].IssuedAt)
	})
	s.record("list", nil)
	return result, nil
}

// SweepExpired deletes tokens whose lifetime has ended and returns how many were removed.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	keys, err := s.records.DeleteExpired(ctx, s.now())
	s.record("sweep", err)
	if err != nil {
		return 0, err
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		s.publish(ctx, events.EventTokensExpired, events.TokensExpiredPayload{Keys: keys})
	}
	return len(keys), nil
}

func (s *Store) record(op string, err error) {
	switch {
	case err == nil:
		s.metrics.RecordTokenOperation(op, "ok")
	case apperrors.IsNotFound(err):
		s.metrics.RecordTokenOperation(op, "not_found")
	case apperrors.IsConflict(err):
		s.metrics.RecordTokenOperation(op, "conflict")
	default:
		s.metrics.RecordTokenOperation(op, "error")
		s.logger.Warn("token store operation failed", zap.String("op", op), zap.Error(err))
	}
}

func (s *Store) publish(ctx context.Context, eventType events.EventType, payload any) {
	event := events.Event{Type: eventType, Timestamp: s.now().UTC(), Payload: payload}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("token event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
