package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lucasreis/accounts/api/http/handlers"
)

// Register wires all HTTP routes onto given Fiber app.
func Register(app *fiber.App, user *handlers.UserHandler, auth *handlers.AuthHandler, health *handlers.HealthHandler, authMW fiber.Handler) {
	// Health and readiness endpoints for probes/monitoring
	app.Get("/health", health.Health)
	app.Get("/ready", health.Ready)

	u := app.Group("/user")
	u.Post("/register", user.Register)
	u.Post("/auth", auth.Authenticate)
	u.Get("/", authMW, user.Get)
	u.Post("/update", authMW, user.Update)
}
