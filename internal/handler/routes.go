package handler

import (
	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(
	app *fiber.App,
	authHandler *AuthHandler,
	userHandler *UserHandler,
	healthHandler *HealthHandler,
	protect fiber.Handler,
	securityHeaders fiber.Handler,
	metricsHandler fiber.Handler,
) {
	api := app.Group("/api")

	// Health checks (public)
	api.Get("/health", healthHandler.Health)
	api.Get("/ready", healthHandler.Ready)
	app.Get("/metrics", metricsHandler)

	// Auth routes (public; check-auth reports rather than rejects)
	auth := api.Group("/auth", securityHeaders)
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh-token", authHandler.RefreshToken)
	auth.Get("/check-auth", authHandler.CheckAuth)
	auth.Post("/logout", authHandler.Logout)

	// User routes (protected)
	users := api.Group("/users", protect, securityHeaders)
	users.Get("/", userHandler.GetProfile)
	users.Put("/data", userHandler.UpdateData)
	users.Put("/updatePassword", userHandler.UpdatePassword)
}
