// Package handler defines the HTTP handlers of the API.
// This file implements the liveness and readiness checks.
package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness check. It answers "ok" while the process runs.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready reports whether the store answers a ping.
func Ready(db *sql.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := db.PingContext(c.Request().Context()); err != nil {
			c.Logger().Warnf("readiness: %v", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Database unavailable"})
		}
		return c.String(http.StatusOK, "ok")
	}
}
