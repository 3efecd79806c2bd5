// Package authn is the user authentication service behind interactive sign-in,
// profile lookups and sign-out. Each decision re-checks liveness.
package authn

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/grant"
	"github.com/spec-kit/revocation-service/internal/repository"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// LocalAuthRequest is a user name and password sign-in through a client.
type LocalAuthRequest struct {
	UserName   string
	Password   string
	ClientID   string
	ClientName string
}

// ExternalAuthRequest is a sign-in already authenticated by an external provider.
type ExternalAuthRequest struct {
	Provider   string
	UserName   string
	ClientID   string
	ClientName string
}

// ProfileRequest asks for the claims of a signed-in subject.
type ProfileRequest struct {
	Subject    string
	ClientID   string
	ClientName string
}

// Profile is the claim set of a subject. Inactive profiles carry no claims.
type Profile struct {
	Subject  string            `json:"sub"`
	IsActive bool              `json:"active"`
	Claims   map[string]string `json:"claims,omitempty"`
}

// SignOutRequest ends the subject's session on a client.
type SignOutRequest struct {
	Subject    string
	UserName   string
	ClientID   string
	ClientName string
}

// UserService is the contract the host's sign-in pipeline calls.
type UserService interface {
	AuthenticateLocal(ctx context.Context, req LocalAuthRequest) (domain.AuthenticateResult, error)
	AuthenticateExternal(ctx context.Context, req ExternalAuthRequest) (domain.AuthenticateResult, error)
	GetProfileData(ctx context.Context, req ProfileRequest) (Profile, error)
	SignOut(ctx context.Context, req SignOutRequest) error
}

// LivenessChecker answers whether a subject and client may still operate.
type LivenessChecker interface {
	Check(ctx context.Context, subjectID, clientID string) (domain.LivenessStatus, error)
}

// TokenRevoker removes the reference tokens a subject holds on a client.
type TokenRevoker interface {
	RevokeMatchingSubjectAndClient(ctx context.Context, subjectID, clientID string) (int, error)
}

// Service is the default UserService.
type Service struct {
	users       repository.UserRepository
	clients     repository.ClientRepository
	oracle      LivenessChecker
	credentials grant.CredentialChecker
	tokens      TokenRevoker
	timeout     time.Duration
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLookupTimeout bounds each repository lookup and credential check.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService wires the service. credentials may be nil to check against users.
func NewService(users repository.UserRepository, clients repository.ClientRepository, oracle LivenessChecker, credentials grant.CredentialChecker, tokens TokenRevoker, opts ...Option) *Service {
	if credentials == nil {
		credentials = grant.NewRepositoryCredentials(users)
	}
	s := &Service{
		users:       users,
		clients:     clients,
		oracle:      oracle,
		credentials: credentials,
		tokens:      tokens,
		timeout:     apperrors.DefaultCallTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ UserService = (*Service)(nil)

// AuthenticateLocal resolves the user, checks liveness, then verifies the password.
func (s *Service) AuthenticateLocal(ctx context.Context, req LocalAuthRequest) (domain.AuthenticateResult, error) {
	if strings.TrimSpace(req.UserName) == "" || req.Password == "" {
		return domain.Failed(domain.ResultErrorInvalidGrant, ""), nil
	}
	user, result, err := s.resolveLive(ctx, req.UserName, req.ClientID)
	if user == nil || err != nil {
		return result, err
	}

	ok, err := apperrors.Bounded(ctx, s.timeout, "credential check", func(ctx context.Context) (bool, error) {
		return s.credentials.CheckCredentials(ctx, user.UserName, req.Password)
	})
	if err != nil {
		return domain.AuthenticateResult{}, err
	}
	if !ok {
		return domain.Failed(domain.ResultErrorInvalidGrant, user.ID.String()), nil
	}
	return s.succeed(user, req.ClientID, domain.AuthMethodPassword), nil
}

// AuthenticateExternal maps the provider's user name to a local user and checks liveness.
func (s *Service) AuthenticateExternal(ctx context.Context, req ExternalAuthRequest) (domain.AuthenticateResult, error) {
	if strings.TrimSpace(req.UserName) == "" {
		return domain.Failed(domain.ResultErrorInvalidGrant, ""), nil
	}
	user, result, err := s.resolveLive(ctx, req.UserName, req.ClientID)
	if user == nil || err != nil {
		return result, err
	}
	return s.succeed(user, req.ClientID, domain.AuthMethodExternal), nil
}

// GetProfileData returns the subject's claims while subject and client are live.
func (s *Service) GetProfileData(ctx context.Context, req ProfileRequest) (Profile, error) {
	profile := Profile{Subject: req.Subject}
	status, err := s.oracle.Check(ctx, req.Subject, req.ClientID)
	if err != nil {
		return Profile{}, err
	}
	if !status.Live() {
		return profile, nil
	}

	user, err := apperrors.Bounded(ctx, s.timeout, "profile lookup", func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByID(ctx, req.Subject)
	})
	if apperrors.IsNotFound(err) {
		return profile, nil
	}
	if err != nil {
		return Profile{}, err
	}
	profile.IsActive = true
	profile.Claims = map[string]string{
		"sub":                user.ID.String(),
		"name":               user.UserName,
		"preferred_username": user.UserName,
		"client_id":          req.ClientID,
	}
	return profile, nil
}

// SignOut revokes the reference tokens the subject holds on the client.
func (s *Service) SignOut(ctx context.Context, req SignOutRequest) error {
	if req.Subject == "" || req.ClientID == "" {
		return apperrors.NewValidationError("subject and client are required", nil)
	}
	if s.tokens == nil {
		return nil
	}
	_, err := s.tokens.RevokeMatchingSubjectAndClient(ctx, req.Subject, req.ClientID)
	return err
}

// IsRedirectAllowed reports whether uri is registered as a redirect for any client.
func (s *Service) IsRedirectAllowed(ctx context.Context, uri string) (bool, error) {
	if strings.TrimSpace(uri) == "" {
		return false, nil
	}
	uris, err := apperrors.Bounded(ctx, s.timeout, "redirect lookup", s.clients.AllRedirectURIs)
	if err != nil {
		return false, err
	}
	for _, allowed := range uris {
		if allowed == uri {
			return true, nil
		}
	}
	return false, nil
}

// resolveLive returns the user when it exists and it and the client are live. Otherwise
// user is nil and result or err holds the outcome.
func (s *Service) resolveLive(ctx context.Context, userName, clientID string) (*domain.User, domain.AuthenticateResult, error) {
	user, err := apperrors.Bounded(ctx, s.timeout, "user lookup", func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByName(ctx, userName)
	})
	if apperrors.IsNotFound(err) {
		return nil, domain.Failed(domain.ResultErrorInvalidGrant, ""), nil
	}
	if err != nil {
		return nil, domain.AuthenticateResult{}, err
	}

	status, err := s.oracle.Check(ctx, user.ID.String(), clientID)
	if err != nil {
		return nil, domain.AuthenticateResult{}, err
	}
	if !status.Live() {
		return nil, domain.NotLive(domain.ResultErrorInvalidGrant, user.ID.String(), status), nil
	}
	return user, domain.AuthenticateResult{}, nil
}

func (s *Service) succeed(user *domain.User, clientID, method string) domain.AuthenticateResult {
	return domain.Succeeded(&domain.Principal{
		Subject:    user.ID.String(),
		Name:       user.UserName,
		ClientID:   clientID,
		AuthMethod: method,
		AuthTime:   s.now().UTC(),
	})
}
