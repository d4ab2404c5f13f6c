// Package cookie writes the session cookies. Their names are fixed because
// existing clients read them.
package cookie

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	AccessTokenName  = "accessToken"
	RefreshTokenName = "refreshToken"
)

// Jar sets and clears the session cookies. In production cookies are
// Secure with SameSite=None so a separately hosted client can send them;
// in development they are SameSite=Lax over plain HTTP.
type Jar struct {
	production bool
}

func NewJar(production bool) *Jar {
	return &Jar{production: production}
}

func (j *Jar) SetAccessToken(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(j.cookie(AccessTokenName, token, ttl))
}

func (j *Jar) SetRefreshToken(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(j.cookie(RefreshTokenName, token, ttl))
}

// Clear expires both session cookies.
func (j *Jar) Clear(c *fiber.Ctx) {
	for _, name := range []string{AccessTokenName, RefreshTokenName} {
		ck := j.cookie(name, "", 0)
		ck.Expires = time.Unix(0, 0).UTC()
		c.Cookie(ck)
	}
}

func (j *Jar) cookie(name, value string, ttl time.Duration) *fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if j.production {
		sameSite = fiber.CookieSameSiteNoneMode
	}

	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HTTPOnly: true,
		Secure:   j.production,
		SameSite: sameSite,
	}
}
