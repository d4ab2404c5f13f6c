package handler

import (
	"context"
	"time"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	userRepo repository.UserRepository
}

func NewHealthHandler(userRepo repository.UserRepository) *HealthHandler {
	return &HealthHandler{userRepo: userRepo}
}

// Health returns basic health status
// GET /api/health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Server is healthy",
	})
}

// Ready reports whether the user store answers
// GET /api/ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.userRepo.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"checks": fiber.Map{"database": "down"},
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ready",
		"checks": fiber.Map{"database": "ok"},
	})
}
