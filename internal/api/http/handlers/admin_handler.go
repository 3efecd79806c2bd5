package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/revocation-service/internal/api/dto"
	"github.com/spec-kit/revocation-service/internal/service"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// AdminHandler exposes operator endpoints guarded by the admin key.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// CreateUser handles POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.admin.CreateUser(c.UserContext(), req.UserName, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":        user.ID,
		"user_name": user.UserName,
	}})
}

// CreateClient handles POST /admin/clients.
func (h *AdminHandler) CreateClient(c *fiber.Ctx) error {
	var req dto.CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	client, err := h.admin.CreateClient(c.UserContext(), req.Name, req.Secret, req.URI)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":   client.ID,
		"name": client.Name,
		"uri":  client.URI,
	}})
}

// BlockUser handles PUT /admin/users/:id/blocked.
func (h *AdminHandler) BlockUser(c *fiber.Ctx) error {
	var req dto.BlockRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.admin.SetUserBlocked(c.UserContext(), c.Params("id"), req.Blocked); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// BlockClient handles PUT /admin/clients/:id/blocked.
func (h *AdminHandler) BlockClient(c *fiber.Ctx) error {
	var req dto.BlockRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.admin.SetClientBlocked(c.UserContext(), c.Params("id"), req.Blocked); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SubjectTokens handles GET /admin/subjects/:id/tokens.
func (h *AdminHandler) SubjectTokens(c *fiber.Ctx) error {
	tokens, err := h.admin.SubjectTokens(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": tokens})
}

// RevokeTokens handles DELETE /admin/tokens?subject_id=&client_id=&mode=both|either.
func (h *AdminHandler) RevokeTokens(c *fiber.Ctx) error {
	mode := c.Query("mode", service.RevokeModeBoth)
	removed, err := h.admin.RevokeTokens(c.UserContext(), c.Query("subject_id"), c.Query("client_id"), mode)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"revoked": removed, "mode": mode}})
}
