package domain

import "time"

// AuditOutcome classifies an audit record.
type AuditOutcome string

const (
	AuditSignedIn        AuditOutcome = "signed-in"
	AuditFailedAttempt   AuditOutcome = "failed-attempt"
	AuditProfileAccessed AuditOutcome = "profile-accessed"
	AuditSignedOut       AuditOutcome = "signed-out"
	AuditUnknownUser     AuditOutcome = "unknown-user"
)

// AuditEvent is one append-only audit line.
type AuditEvent struct {
	Timestamp   time.Time    `json:"timestamp"`
	Outcome     AuditOutcome `json:"outcome"`
	SubjectID   string       `json:"subject_id,omitempty"`
	SubjectName string       `json:"subject_name,omitempty"`
	ClientID    string       `json:"client_id,omitempty"`
	ClientName  string       `json:"client_name,omitempty"`
	Blocked     *bool        `json:"blocked,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}
