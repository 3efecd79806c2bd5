package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/revocation-service/internal/domain"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"
	rawTokenKey  = "auth_raw_token"
)

// AuthMethodJWT marks principals built from self-contained access tokens.
const AuthMethodJWT = "jwt"

// ReferenceTokenReader resolves opaque reference tokens.
type ReferenceTokenReader interface {
	Get(ctx context.Context, key string) (*domain.ReferenceToken, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	access *AccessTokenValidator
	refs   ReferenceTokenReader
}

// NewAuthMiddleware constructs middleware. Either validator may be nil to disable that token kind.
func NewAuthMiddleware(access *AccessTokenValidator, refs ReferenceTokenReader) *AuthMiddleware {
	return &AuthMiddleware{access: access, refs: refs}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized("invalid authorization header")
	}
	raw := strings.TrimSpace(parts[1])

	principal, err := m.resolve(c.UserContext(), raw)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	c.Locals(rawTokenKey, raw)
	return c.Next()
}

func (m *AuthMiddleware) resolve(ctx context.Context, raw string) (*domain.Principal, error) {
	if looksLikeJWT(raw) {
		if m.access == nil {
			return nil, apperrors.NewUnauthorized("invalid token")
		}
		claims, err := m.access.Validate(ctx, raw)
		if err != nil {
			return nil, err
		}
		var authTime time.Time
		if claims.IssuedAt != nil {
			authTime = claims.IssuedAt.Time
		}
		return &domain.Principal{
			Subject:    claims.Subject,
			Name:       claims.Name,
			ClientID:   claims.ClientID,
			AuthMethod: AuthMethodJWT,
			AuthTime:   authTime,
		}, nil
	}

	if m.refs == nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	token, err := m.refs.Get(ctx, raw)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid token")
		}
		return nil, err
	}
	return &domain.Principal{
		Subject:    token.SubjectID,
		Name:       token.Claims["name"],
		ClientID:   token.ClientID,
		AuthMethod: token.Claims["amr"],
		AuthTime:   token.IssuedAt,
	}, nil
}

func looksLikeJWT(raw string) bool {
	return strings.Count(raw, ".") == 2
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}

// RawTokenFromContext returns the bearer token the principal was resolved from.
func RawTokenFromContext(c *fiber.Ctx) string {
	raw, _ := c.Locals(rawTokenKey).(string)
	return raw
}
