package auth

import (
	"context"

	"github.com/spec-kit/revocation-service/internal/domain"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// LivenessChecker answers whether a subject and client may still operate.
type LivenessChecker interface {
	Check(ctx context.Context, subjectID, clientID string) (domain.LivenessStatus, error)
}

// AccessTokenValidator accepts a JWT only while its subject and client are live.
// A valid signature is not enough: the check runs against current records on every call.
type AccessTokenValidator struct {
	tokens *TokenManager
	oracle LivenessChecker
}

// NewAccessTokenValidator constructs the validator.
func NewAccessTokenValidator(tokens *TokenManager, oracle LivenessChecker) *AccessTokenValidator {
	return &AccessTokenValidator{tokens: tokens, oracle: oracle}
}

// Validate returns the token claims, an Unauthorized error for any invalid token, or a
// TransientFailure when liveness could not be determined.
func (v *AccessTokenValidator) Validate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := v.tokens.ParseToken(raw)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	status, err := v.oracle.Check(ctx, claims.Subject, claims.ClientID)
	if err != nil {
		return nil, err
	}
	if !status.Live() {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	return claims, nil
}
