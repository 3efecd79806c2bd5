package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/revocation-service/internal/domain"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// MemoryRecords keeps reference tokens in a mutex-guarded map owned by one Store.
type MemoryRecords struct {
	mu     sync.RWMutex
	tokens map[string]*domain.ReferenceToken
}

// NewMemoryRecords returns an empty in-process backend.
func NewMemoryRecords() *MemoryRecords {
	return &MemoryRecords{tokens: make(map[string]*domain.ReferenceToken)}
}

var _ Records = (*MemoryRecords)(nil)

func (m *MemoryRecords) Insert(_ context.Context, token *domain.ReferenceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tokens[token.Key]; exists {
		return duplicateKey(token.Key)
	}
	m.tokens[token.Key] = token.Clone()
	return nil
}

func (m *MemoryRecords) Lookup(_ context.Context, key string) (*domain.ReferenceToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[key]
	if !ok {
		return nil, tokenNotFound()
	}
	return token.Clone(), nil
}

func (m *MemoryRecords) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[key]; !ok {
		return false, nil
	}
	delete(m.tokens, key)
	return true, nil
}

func (m *MemoryRecords) DeleteMatching(_ context.Context, subjectID, clientID string, mode MatchMode) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for key, token := range m.tokens {
		if mode.Matches(token, subjectID, clientID) {
			delete(m.tokens, key)
			removed = append(removed, key)
		}
	}
	return removed, nil
}

func (m *MemoryRecords) ListBySubject(_ context.Context, subjectID string) ([]*domain.ReferenceToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ReferenceToken
	for _, token := range m.tokens {
		if token.SubjectID == subjectID {
			result = append(result, token.Clone())
		}
	}
	return result, nil
}

func (m *MemoryRecords) DeleteExpired(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for key, token := range m.tokens {
		if token.Expired(now) {
			delete(m.tokens, key)
			removed = append(removed, key)
		}
	}
	return removed, nil
}

// Len returns the number of stored records, expired and non-live ones included.
func (m *MemoryRecords) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

func duplicateKey(key string) error {
	return apperrors.NewConflict("duplicate token key", map[string]any{"key": key})
}

func tokenNotFound() error {
	return apperrors.NewNotFound("token", nil)
}
