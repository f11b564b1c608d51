package middleware

// identity.go holds the accessors for the caller resolved by JWTAuth. The
// rate limiter and the response cache key on it; handlers read the id.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fitness-tracker/internal/model"
)

const identityKey = "identity"

// SetIdentity stores the verified caller on the request context.
func SetIdentity(c echo.Context, id model.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the caller stored by JWTAuth.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

// CallerID returns the numeric id of the authenticated caller. Id 0 is a
// valid caller; ok is false only when no identity was resolved.
func CallerID(c echo.Context) (uint64, bool) {
	id, ok := IdentityFrom(c)
	return id.UserID, ok
}

// userKey is the caller's id as a key segment, or "guest" before
// authentication.
func userKey(c echo.Context) string {
	if id, ok := CallerID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
