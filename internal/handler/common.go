// Package handler defines the HTTP handlers of the API.
// This file holds the helpers every handler shares: reading the caller
// and path ids, turning an error into the {error, details?} response,
// handing activity events to the publisher and the echo error handler
// that gives framework errors the same body.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/fitness-tracker/internal/apperr"
	"github.com/iliyamo/fitness-tracker/internal/middleware"
	"github.com/iliyamo/fitness-tracker/internal/queue"
	"github.com/iliyamo/fitness-tracker/internal/service"
)

var errNoCaller = errors.New("no authenticated caller in context")

// getUserID returns the caller resolved by the auth middleware.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.CallerID(c)
	if !ok {
		return 0, errNoCaller
	}
	return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.Validation, "Invalid ID")
	}
	return id, nil
}

// fail writes err as {error, details?}. Unexpected errors are logged with
// the operation and the caller, and the client only sees "Failed to <op>".
func fail(c echo.Context, op string, err error) error {
	ae := apperr.From(err)
	msg := ae.Message
	if ae.Kind == apperr.Internal {
		uid, _ := middleware.CallerID(c)
		c.Logger().Errorj(log.JSON{
			"op":         op,
			"caller":     uid,
			"params":     c.ParamValues(),
			"query":      c.QueryString(),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			"error":      err.Error(),
		})
		msg = "Failed to " + op
	}
	body := echo.Map{"error": msg}
	if len(ae.Details) > 0 {
		body["details"] = ae.Details
	}
	return c.JSON(ae.Kind.Status(), body)
}

// publish hands an activity event to the outbox after a committed write.
// It does not wait for the broker; a dropped event is logged and never
// changes the response.
func publish(c echo.Context, events service.EventPublisher, ev queue.ActivityEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(c.Request().Context(), ev); err != nil {
		c.Logger().Warnf("publish %s: %v", ev.Type, err)
	}
}

// ErrorHandler replaces echo's default so framework errors (unknown route,
// wrong method, recovered panics, timeouts) use the same {error} body.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		status, msg = ae.Kind.Status(), ae.Message
	case errors.As(err, &he):
		status = he.Code
		msg = http.StatusText(status)
		if m, ok := he.Message.(string); ok && status < http.StatusInternalServerError {
			msg = m
		}
	}
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, echo.Map{"error": msg})
}
