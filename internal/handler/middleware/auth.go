package middleware

import (
	"github.com/Deepak-900/j-pani-paicha-backend/internal/domain"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/handler/cookie"
	"github.com/Deepak-900/j-pani-paicha-backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

const localsUser = "user"

// Protect admits requests whose access-token cookie authenticates. An
// expired access token is renewed from the refresh-token cookie and the new
// token is written back before the request continues.
func Protect(sessionService *service.SessionService, jar *cookie.Jar) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := sessionService.Authenticate(
			c.Context(),
			c.Cookies(cookie.AccessTokenName),
			c.Cookies(cookie.RefreshTokenName),
		)
		if err != nil {
			if service.IsUnauthenticated(err) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"message": "Not authenticated",
				})
			}
			return err
		}

		if result.Refreshed() {
			jar.SetAccessToken(c, result.AccessToken, result.AccessTTL)
		}

		c.Locals(localsUser, result.User)
		return c.Next()
	}
}

// CurrentUser returns the user attached by Protect.
func CurrentUser(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(localsUser).(*domain.User)
	return user, ok && user != nil
}
