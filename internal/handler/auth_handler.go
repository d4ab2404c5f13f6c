package handler

import (
	"errors"

	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/handler/cookie"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/service"
	"github.com/Deepak-900/j-pani-paicha-backend/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService    *service.AuthService
	sessionService *service.SessionService
	validator      *validator.Validator
	jar            *cookie.Jar
	logger         *zap.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	sessionService *service.SessionService,
	validator *validator.Validator,
	jar *cookie.Jar,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		validator:      validator,
		jar:            jar,
		logger:         logger,
	}
}

// Register handles user registration
// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.validator.Validate(req); err != nil {
		return validationFailed(c, err)
	}

	user, err := h.authService.Register(c.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Email already in use.",
			})
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.validator.Validate(req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.authService.Login(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid credentials",
			})
		case errors.Is(err, domain.ErrTooManyAttempts):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many login attempts. Please try again later.",
			})
		}
		return err
	}

	h.jar.SetAccessToken(c, result.Tokens.AccessToken, result.Tokens.AccessTTL)
	h.jar.SetRefreshToken(c, result.Tokens.RefreshToken, result.Tokens.RefreshTTL)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"user":    result.User,
	})
}

// RefreshToken rotates the token pair held in cookies
// POST /api/auth/refresh-token
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies(cookie.RefreshTokenName)
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Refresh token not found",
		})
	}

	tokens, err := h.sessionService.Refresh(c.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshRejected) {
			h.jar.Clear(c)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or expired refresh token",
			})
		}
		return err
	}

	h.jar.SetAccessToken(c, tokens.AccessToken, tokens.AccessTTL)
	h.jar.SetRefreshToken(c, tokens.RefreshToken, tokens.RefreshTTL)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Token refreshed successfully",
	})
}

// Logout clears the session and both cookies. It always succeeds; a failed
// store cleanup is only logged.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.Context(), c.Cookies(cookie.RefreshTokenName)); err != nil {
		h.logger.Error("failed to clear session on logout", zap.Error(err))
	}

	h.jar.Clear(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// CheckAuth reports whether the caller's cookies authenticate. It always
// answers 200; failure is carried by isAuthenticated.
// GET /api/auth/check-auth
func (h *AuthHandler) CheckAuth(c *fiber.Ctx) error {
	result, err := h.sessionService.Authenticate(
		c.Context(),
		c.Cookies(cookie.AccessTokenName),
		c.Cookies(cookie.RefreshTokenName),
	)
	if err != nil {
		message := "Not authenticated"
		if !service.IsUnauthenticated(err) {
			h.logger.Error("auth check failed", zap.Error(err))
			message = "Unable to verify session"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"isAuthenticated": false,
			"message":         message,
		})
	}

	if result.Refreshed() {
		h.jar.SetAccessToken(c, result.AccessToken, result.AccessTTL)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"isAuthenticated": true,
		"user":            result.User.DTO(),
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
	})
}

func validationFailed(c *fiber.Ctx, err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": fieldErrs,
		})
	}
	return err
}
