package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/revocation-service/internal/auth"
	"github.com/spec-kit/revocation-service/internal/config"
	"github.com/spec-kit/revocation-service/internal/domain"
	"github.com/spec-kit/revocation-service/internal/grant"
	"github.com/spec-kit/revocation-service/internal/repository"
	"github.com/spec-kit/revocation-service/internal/tokenstore"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// Token formats a client may request.
const (
	TokenFormatReference = "reference"
	TokenFormatJWT       = "jwt"
)

// TokenRequest is a token endpoint call.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	UserName     string
	Password     string
	Format       string
}

// IssuedToken is a successful token endpoint response.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	Format      string
	ExpiresAt   time.Time
	Subject     string
}

// Introspection describes a presented token. Inactive tokens carry no other fields.
type Introspection struct {
	Active    bool   `json:"active"`
	Subject   string `json:"sub,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Name      string `json:"name,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

// TokenService authenticates clients, runs the custom grant and issues tokens.
type TokenService struct {
	clients repository.ClientRepository
	grant   grant.CustomGrantValidator
	store   *tokenstore.Store
	jwt     *auth.TokenManager
	access  *auth.AccessTokenValidator
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

// TokenDependencies encapsulates collaborators for the token service.
type TokenDependencies struct {
	Clients repository.ClientRepository
	Grant   grant.CustomGrantValidator
	Store   *tokenstore.Store
	JWT     *auth.TokenManager
	Access  *auth.AccessTokenValidator
}

// NewTokenService builds the service.
func NewTokenService(cfg config.Config, deps TokenDependencies) *TokenService {
	return &TokenService{
		clients: deps.Clients,
		grant:   deps.Grant,
		store:   deps.Store,
		jwt:     deps.JWT,
		access:  deps.Access,
		ttl:     cfg.TokenStore.TokenTTL(),
		timeout: cfg.Liveness.LookupTimeout(),
		now:     time.Now,
	}
}

// GrantType returns the custom grant type served by the token endpoint.
func (s *TokenService) GrantType() string {
	return s.grant.GrantType()
}

// AuthenticateClient verifies client credentials. Unknown, blocked and wrong-secret
// clients fail with the same Unauthorized error.
func (s *TokenService) AuthenticateClient(ctx context.Context, clientID, secret string) (*domain.Client, error) {
	invalid := apperrors.NewUnauthorized("invalid client credentials")
	client, err := apperrors.Bounded(ctx, s.timeout, "client lookup", func(ctx context.Context) (*domain.Client, error) {
		return s.clients.FindByID(ctx, clientID)
	})
	if apperrors.IsNotFound(err) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if client.IsBlocked || !auth.SecretMatches(client.SecretHash, secret) {
		return nil, invalid
	}
	return client, nil
}

// Issue authenticates the client, validates the grant and issues a token. A rejected
// grant returns the result with IsError set and no token.
func (s *TokenService) Issue(ctx context.Context, req TokenRequest) (*IssuedToken, domain.AuthenticateResult, error) {
	client, err := s.AuthenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, domain.AuthenticateResult{}, err
	}

	result, err := s.grant.Validate(ctx, grant.Request{
		GrantType:  req.GrantType,
		ClientID:   client.ID.String(),
		ClientName: client.Name,
		UserName:   req.UserName,
		Password:   req.Password,
	})
	if err != nil || result.IsError {
		return nil, result, err
	}

	principal := result.Principal
	switch strings.ToLower(req.Format) {
	case TokenFormatJWT:
		raw, exp, err := s.jwt.GenerateToken(principal.Subject, principal.ClientID, principal.Name)
		if err != nil {
			return nil, result, apperrors.NewInternalError(err)
		}
		return &IssuedToken{
			AccessToken: raw,
			TokenType:   "Bearer",
			Format:      TokenFormatJWT,
			ExpiresAt:   exp,
			Subject:     principal.Subject,
		}, result, nil
	case "", TokenFormatReference:
	default:
		return nil, result, apperrors.NewValidationError("unsupported token format", map[string]any{"format": req.Format})
	}

	issued, err := s.IssueReference(ctx, principal)
	return issued, result, err
}

// IssueReference stores a new reference access token for an authenticated principal.
func (s *TokenService) IssueReference(ctx context.Context, principal *domain.Principal) (*IssuedToken, error) {
	now := s.now().UTC()
	key := tokenstore.NewKey()
	token := &domain.ReferenceToken{
		SubjectID: principal.Subject,
		ClientID:  principal.ClientID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
		TokenType: domain.TokenTypeAccess,
		Claims: map[string]string{
			"name": principal.Name,
			"amr":  principal.AuthMethod,
		},
	}
	if err := s.store.Store(ctx, key, token); err != nil {
		return nil, err
	}
	return &IssuedToken{
		AccessToken: key,
		TokenType:   "Bearer",
		Format:      TokenFormatReference,
		ExpiresAt:   token.ExpiresAt,
		Subject:     principal.Subject,
	}, nil
}

// Introspect reports whether raw is currently usable. Dependency failures are returned as
// errors rather than as inactive tokens.
func (s *TokenService) Introspect(ctx context.Context, raw string) (Introspection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Introspection{}, nil
	}

	if strings.Count(raw, ".") == 2 {
		claims, err := s.access.Validate(ctx, raw)
		if apperrors.KindOf(err) == apperrors.KindUnauthorized {
			return Introspection{}, nil
		}
		if err != nil {
			return Introspection{}, err
		}
		out := Introspection{
			Active:    true,
			Subject:   claims.Subject,
			ClientID:  claims.ClientID,
			Name:      claims.Name,
			TokenType: string(domain.TokenTypeAccess),
		}
		if claims.ExpiresAt != nil {
			out.ExpiresAt = claims.ExpiresAt.Unix()
		}
		return out, nil
	}

	token, err := s.store.Get(ctx, raw)
	if apperrors.IsNotFound(err) {
		return Introspection{}, nil
	}
	if err != nil {
		return Introspection{}, err
	}
	return Introspection{
		Active:    true,
		Subject:   token.SubjectID,
		ClientID:  token.ClientID,
		Name:      token.Claims["name"],
		TokenType: string(token.TokenType),
		ExpiresAt: unixOrZero(token.ExpiresAt),
	}, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// Revoke removes a reference token. Unknown handles and JWTs are accepted silently.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apperrors.NewValidationError("token is required", nil)
	}
	return s.store.Remove(ctx, raw)
}
