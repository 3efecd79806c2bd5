package audit

import (
	"context"

	"github.com/spec-kit/revocation-service/internal/authn"
	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/grant"
)

// WithGrantAudit wraps inner so every completed Validate call emits exactly one record.
// The result is returned untouched. When inner returns an error nothing is recorded.
func WithGrantAudit(inner grant.CustomGrantValidator, log Logger) grant.CustomGrantValidator {
	return &auditedGrant{inner: inner, log: Normalize(log)}
}

type auditedGrant struct {
	inner grant.CustomGrantValidator
	log   Logger
}

func (g *auditedGrant) GrantType() string { return g.inner.GrantType() }

func (g *auditedGrant) Validate(ctx context.Context, req grant.Request) (domain.AuthenticateResult, error) {
	result, err := g.inner.Validate(ctx, req)
	if err != nil {
		return result, err
	}
	recordDecision(ctx, g.log, result, Entry{
		UserName:   req.UserName,
		ClientID:   req.ClientID,
		ClientName: req.ClientName,
	})
	return result, nil
}

// WithUserServiceAudit wraps inner with the same one-record-per-call contract.
func WithUserServiceAudit(inner authn.UserService, log Logger) authn.UserService {
	return &auditedUserService{inner: inner, log: Normalize(log)}
}

type auditedUserService struct {
	inner authn.UserService
	log   Logger
}

func (s *auditedUserService) AuthenticateLocal(ctx context.Context, req authn.LocalAuthRequest) (domain.AuthenticateResult, error) {
	result, err := s.inner.AuthenticateLocal(ctx, req)
	if err != nil {
		return result, err
	}
	recordDecision(ctx, s.log, result, Entry{
		UserName:   req.UserName,
		ClientID:   req.ClientID,
		ClientName: req.ClientName,
	})
	return result, nil
}

func (s *auditedUserService) AuthenticateExternal(ctx context.Context, req authn.ExternalAuthRequest) (domain.AuthenticateResult, error) {
	result, err := s.inner.AuthenticateExternal(ctx, req)
	if err != nil {
		return result, err
	}
	recordDecision(ctx, s.log, result, Entry{
		UserName:   req.UserName,
		ClientID:   req.ClientID,
		ClientName: req.ClientName,
		Reason:     req.Provider,
	})
	return result, nil
}

func (s *auditedUserService) GetProfileData(ctx context.Context, req authn.ProfileRequest) (authn.Profile, error) {
	profile, err := s.inner.GetProfileData(ctx, req)
	if err != nil {
		return profile, err
	}
	entry := Entry{
		UserID:     req.Subject,
		UserName:   profile.Claims["name"],
		ClientID:   req.ClientID,
		ClientName: req.ClientName,
	}
	if !profile.IsActive {
		entry.Reason = "inactive"
	}
	s.log.ProfileAccessed(ctx, entry)
	return profile, nil
}

func (s *auditedUserService) SignOut(ctx context.Context, req authn.SignOutRequest) error {
	if err := s.inner.SignOut(ctx, req); err != nil {
		return err
	}
	s.log.UserSignedOut(ctx, Entry{
		UserID:     req.Subject,
		UserName:   req.UserName,
		ClientID:   req.ClientID,
		ClientName: req.ClientName,
	})
	return nil
}

// recordDecision classifies an authentication result: success is signed-in, a failure on
// a resolved user is a failed attempt carrying the blocked flag, anything else is an
// unknown-user attempt.
func recordDecision(ctx context.Context, log Logger, result domain.AuthenticateResult, entry Entry) {
	switch {
	case !result.IsError:
		entry.UserID = result.Subject
		log.UserSignedIn(ctx, entry)
	case result.SubjectResolved():
		blocked := result.Blocked
		entry.UserID = result.Subject
		entry.IsBlocked = &blocked
		entry.Reason = result.Error
		log.UnsuccessfulSignIn(ctx, entry)
	default:
		entry.UserID = result.Subject
		entry.Reason = result.Error
		log.UnknownUserAttempt(ctx, entry)
	}
}
