package domain

import "time"

// TokenType distinguishes reference token kinds.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access_token"
	TokenTypeRefresh TokenType = "refresh_token"
)

// ReferenceToken is an opaque token whose claims live server-side.
type ReferenceToken struct {
	Key       string
	SubjectID string
	ClientID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    map[string]string
	TokenType TokenType
}

// TokenMetadata is the listing projection of a ReferenceToken.
type TokenMetadata struct {
	Key       string    `json:"key"`
	SubjectID string    `json:"subject_id"`
	ClientID  string    `json:"client_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType TokenType `json:"token_type"`
}

// Expired reports whether the token lifetime ended at or before now. A zero ExpiresAt never expires.
func (t *ReferenceToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Clone returns a deep copy so callers never share the stored claims map.
func (t *ReferenceToken) Clone() *ReferenceToken {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Claims != nil {
		cp.Claims = make(map[string]string, len(t.Claims))
		for k, v := range t.Claims {
			cp.Claims[k] = v
		}
	}
	return &cp
}

// Metadata projects the token for listings.
func (t *ReferenceToken) Metadata() TokenMetadata {
	return TokenMetadata{
		Key:       t.Key,
		SubjectID: t.SubjectID,
		ClientID:  t.ClientID,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
		TokenType: t.TokenType,
	}
}
