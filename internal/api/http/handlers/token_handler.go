package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/revocation-service/internal/api/dto"
	"github.com/spec-kit/revocation-service/internal/service"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// TokenHandler exposes the token, introspection and revocation endpoints.
type TokenHandler struct {
	tokens *service.TokenService
}

// NewTokenHandler constructs handler.
func NewTokenHandler(tokens *service.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// Token handles POST /connect/token.
func (h *TokenHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	clientID, secret := clientCredentials(c, req.ClientID, req.ClientSecret)
	if clientID == "" {
		return apperrors.NewValidationError("client_id required", nil)
	}

	issued, result, err := h.tokens.Issue(c.UserContext(), service.TokenRequest{
		GrantType:    req.GrantType,
		ClientID:     clientID,
		ClientSecret: secret,
		UserName:     req.UserName,
		Password:     req.Password,
		Format:       req.TokenFormat,
	})
	if err != nil {
		return err
	}
	if result.IsError {
		return c.Status(http.StatusBadRequest).JSON(dto.GrantErrorResponse{
			Error:            result.Error,
			ErrorDescription: result.ErrorDescription,
		})
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(dto.TokenResponse{
		AccessToken: issued.AccessToken,
		TokenType:   issued.TokenType,
		ExpiresIn:   int64(time.Until(issued.ExpiresAt).Round(time.Second) / time.Second),
		TokenFormat: issued.Format,
	})
}

// Introspect handles POST /connect/introspect.
func (h *TokenHandler) Introspect(c *fiber.Ctx) error {
	req, err := h.authorizedAction(c)
	if err != nil {
		return err
	}
	info, err := h.tokens.Introspect(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(info)
}

// Revocation handles POST /connect/revocation. Unknown tokens still answer 200.
func (h *TokenHandler) Revocation(c *fiber.Ctx) error {
	req, err := h.authorizedAction(c)
	if err != nil {
		return err
	}
	if err := h.tokens.Revoke(c.UserContext(), req.Token); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}

func (h *TokenHandler) authorizedAction(c *fiber.Ctx) (dto.TokenActionRequest, error) {
	var req dto.TokenActionRequest
	if err := c.BodyParser(&req); err != nil {
		return req, apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Token) == "" {
		return req, apperrors.NewValidationError("token required", nil)
	}
	clientID, secret := clientCredentials(c, req.ClientID, req.ClientSecret)
	if _, err := h.tokens.AuthenticateClient(c.UserContext(), clientID, secret); err != nil {
		return req, err
	}
	return req, nil
}

// clientCredentials prefers HTTP Basic credentials over body fields.
func clientCredentials(c *fiber.Ctx, bodyID, bodySecret string) (string, string) {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 6 && strings.EqualFold(header[:6], "basic ") {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[6:]))
		if err == nil {
			if id, secret, ok := strings.Cut(string(decoded), ":"); ok {
				return id, secret
			}
		}
	}
	return strings.TrimSpace(bodyID), bodySecret
}
