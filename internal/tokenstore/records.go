package tokenstore

import (
	"context"
	"time"

	"github.com/spec-kit/revocation-service/internal/domain"
)

// MatchMode selects which tokens a revoke removes.
type MatchMode string

const (
	// MatchSubjectAndClient removes tokens whose subject and client both match.
	MatchSubjectAndClient MatchMode = "subject_and_client"
	// MatchSubjectOrClient removes tokens whose subject or client matches.
	MatchSubjectOrClient MatchMode = "subject_or_client"
)

// Matches reports whether token falls under the revoke target.
func (m MatchMode) Matches(token *domain.ReferenceToken, subjectID, clientID string) bool {
	subject := token.SubjectID == subjectID
	client := token.ClientID == clientID
	if m == MatchSubjectOrClient {
		return subject || client
	}
	return subject && client
}

// Records is the raw keyed storage beneath Store. It knows nothing about liveness.
// Implementations are safe for concurrent use and return copies, never shared records.
type Records interface {
	// Insert adds token under token.Key and returns a Conflict error if the key exists.
	Insert(ctx context.Context, token *domain.ReferenceToken) error
	// Lookup returns a NotFound error for unknown keys.
	Lookup(ctx context.Context, key string) (*domain.ReferenceToken, error)
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, key string) (bool, error)
	// DeleteMatching removes every record matched by mode and returns the removed keys.
	DeleteMatching(ctx context.Context, subjectID, clientID string, mode MatchMode) ([]string, error)
	// ListBySubject returns all records for subjectID, expired ones included.
	ListBySubject(ctx context.Context, subjectID string) ([]*domain.ReferenceToken, error)
	// DeleteExpired removes records that expired at or before now and returns their keys.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}
