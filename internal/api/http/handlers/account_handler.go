package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/revocation-service/internal/api/dto"
	"github.com/spec-kit/revocation-service/internal/auth"
	"github.com/spec-kit/revocation-service/internal/authn"
	"github.com/spec-kit/revocation-service/internal/repository"
	"github.com/spec-kit/revocation-service/internal/service"
	"github.com/spec-kit/revocation-service/internal/session"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// RedirectChecker validates post-logout redirect targets.
type RedirectChecker interface {
	IsRedirectAllowed(ctx context.Context, uri string) (bool, error)
}

// AccountHandler exposes interactive sign-in, profile, session and sign-out endpoints.
type AccountHandler struct {
	users     authn.UserService
	redirects RedirectChecker
	sessions  *session.Validator
	tokens    *service.TokenService
	clients   repository.ClientRepository
}

// AccountDependencies bundles the account handler collaborators.
type AccountDependencies struct {
	Users     authn.UserService
	Redirects RedirectChecker
	Sessions  *session.Validator
	Tokens    *service.TokenService
	Clients   repository.ClientRepository
}

// NewAccountHandler constructs handler.
func NewAccountHandler(deps AccountDependencies) *AccountHandler {
	return &AccountHandler{
		users:     deps.Users,
		redirects: deps.Redirects,
		sessions:  deps.Sessions,
		tokens:    deps.Tokens,
		clients:   deps.Clients,
	}
}

// Login handles POST /account/login and returns a reference token as session handle.
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserName == "" || req.Password == "" || req.ClientID == "" {
		return apperrors.NewValidationError("user_name, password and client_id required", nil)
	}

	ctx := c.UserContext()
	result, err := h.users.AuthenticateLocal(ctx, authn.LocalAuthRequest{
		UserName:   req.UserName,
		Password:   req.Password,
		ClientID:   req.ClientID,
		ClientName: h.clientName(ctx, req.ClientID),
	})
	if err != nil {
		return err
	}
	if result.IsError {
		return apperrors.NewUnauthorized(result.ErrorDescription)
	}

	issued, err := h.tokens.IssueReference(ctx, result.Principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Subject:   result.Principal.Subject,
		Name:      result.Principal.Name,
		Token:     issued.AccessToken,
		ExpiresAt: issued.ExpiresAt,
	}})
}

// UserInfo handles GET /connect/userinfo.
func (h *AccountHandler) UserInfo(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	ctx := c.UserContext()
	profile, err := h.users.GetProfileData(ctx, authn.ProfileRequest{
		Subject:    principal.Subject,
		ClientID:   principal.ClientID,
		ClientName: h.clientName(ctx, principal.ClientID),
	})
	if err != nil {
		return err
	}
	if !profile.IsActive {
		return apperrors.NewUnauthorized("invalid token")
	}
	return c.JSON(profile.Claims)
}

// Session handles GET /connect/session.
func (h *AccountHandler) Session(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	valid, err := h.sessions.IsValid(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"valid":     valid,
		"sub":       principal.Subject,
		"client_id": principal.ClientID,
		"amr":       principal.AuthMethod,
		"auth_time": principal.AuthTime,
	}})
}

// EndSession handles POST /connect/endsession. The redirect is echoed back only when it
// is registered for some client.
func (h *AccountHandler) EndSession(c *fiber.Ctx) error {
	var req dto.EndSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if req.PostLogoutRedirectURI == "" {
		req.PostLogoutRedirectURI = c.Query("post_logout_redirect_uri")
	}

	principal, _ := auth.PrincipalFromContext(c)
	ctx := c.UserContext()
	if err := h.users.SignOut(ctx, authn.SignOutRequest{
		Subject:    principal.Subject,
		UserName:   principal.Name,
		ClientID:   principal.ClientID,
		ClientName: h.clientName(ctx, principal.ClientID),
	}); err != nil {
		return err
	}

	data := fiber.Map{"signed_out": true}
	if req.PostLogoutRedirectURI != "" {
		allowed, err := h.redirects.IsRedirectAllowed(ctx, req.PostLogoutRedirectURI)
		if err != nil {
			return err
		}
		if allowed {
			data["redirect_uri"] = req.PostLogoutRedirectURI
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": data})
}

// clientName resolves a display name for audit records; lookup failures leave it empty.
func (h *AccountHandler) clientName(ctx context.Context, clientID string) string {
	if h.clients == nil || clientID == "" {
		return ""
	}
	client, err := h.clients.FindByID(ctx, clientID)
	if err != nil {
		return ""
	}
	return client.Name
}
