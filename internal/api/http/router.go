package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/revocation-service/internal/api/http/handlers"
	"github.com/spec-kit/revocation-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tokens         *handlers.TokenHandler
	Account        *handlers.AccountHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	AdminKey       string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	connect := app.Group("/connect")
	connect.Post("/token", cfg.Tokens.Token)
	connect.Post("/introspect", cfg.Tokens.Introspect)
	connect.Post("/revocation", cfg.Tokens.Revocation)

	app.Post("/account/login", cfg.Account.Login)

	bearer := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequirePrincipal()}
	connect.Get("/userinfo", append(bearer, cfg.Account.UserInfo)...)
	connect.Get("/session", append(bearer, cfg.Account.Session)...)
	connect.Post("/endsession", append(bearer, cfg.Account.EndSession)...)

	admin := app.Group("/admin", auth.RequireAdminKey(cfg.AdminKey))
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Put("/users/:id/blocked", cfg.Admin.BlockUser)
	admin.Post("/clients", cfg.Admin.CreateClient)
	admin.Put("/clients/:id/blocked", cfg.Admin.BlockClient)
	admin.Get("/subjects/:id/tokens", cfg.Admin.SubjectTokens)
	admin.Delete("/tokens", cfg.Admin.RevokeTokens)
}
