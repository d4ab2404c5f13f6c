package handler

import (
	"errors"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/handler/middleware"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/service"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/validator"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *service.UserService
	validator   *validator.Validator
}

func NewUserHandler(userService *service.UserService, validator *validator.Validator) *UserHandler {
	return &UserHandler{
		userService: userService,
		validator:   validator,
	}
}

// GetProfile returns the current user's profile
// GET /api/users (protected route)
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.userService.GetProfile(c.Context(), current.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return userNotFound(c)
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// UpdateData updates name, email and phone number
// PUT /api/users/data (protected route)
func (h *UserHandler) UpdateData(c *fiber.Ctx) error {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req service.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.validator.Validate(req); err != nil {
		return validationFailed(c, err)
	}

	user, err := h.userService.UpdateProfile(c.Context(), current.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Email already in use",
			})
		case errors.Is(err, domain.ErrUserNotFound):
			return userNotFound(c)
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// UpdatePassword changes the password after checking the current one
// PUT /api/users/updatePassword (protected route)
func (h *UserHandler) UpdatePassword(c *fiber.Ctx) error {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		return unauthorized(c)
	}

	var req service.UpdatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.validator.Validate(req); err != nil {
		return validationFailed(c, err)
	}

	if err := h.userService.UpdatePassword(c.Context(), current.ID, req); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Current password is incorrect",
			})
		case errors.Is(err, domain.ErrUserNotFound):
			return userNotFound(c)
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Password updated successfully",
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "Not authenticated",
	})
}

func userNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"message": "User not found",
	})
}
