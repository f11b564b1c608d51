package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fitness-tracker/internal/utils"
)

const bearerPrefix = "Bearer "

// JWTAuth returns an Echo middleware that validates a Bearer token and
// stores the caller's identity on the context. It runs before body
// binding and before any store access. Every authentication failure gets
// the same 401 body. Without a signing secret it answers 500 rather than
// letting requests through unverified.
func JWTAuth(tokens *utils.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !tokens.Configured() {
				c.Logger().Errorf("auth: JWT_SECRET not set, rejecting %s %s", c.Request().Method, c.Path())
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
			}
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw := strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
			if !strings.HasPrefix(auth, bearerPrefix) || raw == "" {
				return unauthorized(c)
			}
			id, err := tokens.Verify(raw)
			if err != nil {
				if errors.Is(err, utils.ErrSigningKeyMissing) {
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
				}
				return unauthorized(c)
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
}
