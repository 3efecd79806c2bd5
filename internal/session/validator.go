// Package session decides whether an established sign-in session may continue.
package session

import (
	"context"

	"github.com/spec-kit/revocation-service/internal/domain"
)

// LivenessChecker answers whether a subject and client may still operate.
type LivenessChecker interface {
	Check(ctx context.Context, subjectID, clientID string) (domain.LivenessStatus, error)
}

// Validator re-checks the session principal on every call.
type Validator struct {
	oracle LivenessChecker
}

// NewValidator returns a Validator backed by oracle.
func NewValidator(oracle LivenessChecker) *Validator {
	return &Validator{oracle: oracle}
}

// IsValid reports whether the principal's subject and client are both live. A nil
// principal is never valid. Lookup failures are returned, not folded into false.
func (v *Validator) IsValid(ctx context.Context, principal *domain.Principal) (bool, error) {
	if principal == nil || principal.Subject == "" || principal.Subject == domain.UnknownSubject {
		return false, nil
	}
	status, err := v.oracle.Check(ctx, principal.Subject, principal.ClientID)
	if err != nil {
		return false, err
	}
	return status.Live(), nil
}
