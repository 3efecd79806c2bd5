package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenStored   EventType = "token_stored"
	EventTokenRemoved  EventType = "token_removed"
	EventTokensRevoked EventType = "tokens_revoked"
	EventTokensExpired EventType = "tokens_expired"
)

// Event represents a token store lifecycle change.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TokenStoredPayload payload.
type TokenStoredPayload struct {
	Key       string `json:"key"`
	SubjectID string `json:"subject_id"`
	ClientID  string `json:"client_id"`
}

// TokenRemovedPayload payload.
type TokenRemovedPayload struct {
	Key string `json:"key"`
}

// TokensRevokedPayload payload. Mode names the matching rule that was applied.
type TokensRevokedPayload struct {
	SubjectID string   `json:"subject_id"`
	ClientID  string   `json:"client_id"`
	Mode      string   `json:"mode"`
	Keys      []string `json:"keys"`
}

// TokensExpiredPayload payload.
type TokensExpiredPayload struct {
	Keys []string `json:"keys"`
}
