package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// AdminKeyHeader carries the operator key for administrative routes.
const AdminKeyHeader = "X-Admin-Key"

// RequirePrincipal ensures a caller was authenticated by AuthMiddleware.
func RequirePrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized(http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

// RequireAdminKey guards operator routes with a shared key. An empty key rejects every request.
func RequireAdminKey(key string) fiber.Handler {
	expected := []byte(key)
	return func(c *fiber.Ctx) error {
		provided := []byte(c.Get(AdminKeyHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
			return apperrors.NewDomainError(apperrors.KindUnauthorized, "FORBIDDEN", "admin key required", http.StatusForbidden, nil)
		}
		return c.Next()
	}
}
