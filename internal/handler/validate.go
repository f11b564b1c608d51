// Package handler defines the HTTP handlers of the API.
// This file wires go-playground/validator into echo and flattens its
// field errors into the details map returned to clients.
package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fitness-tracker/internal/apperr"
)

// CustomValidator plugs go-playground/validator into echo's c.Validate.
type CustomValidator struct {
	v *validator.Validate
}

// NewValidator reports field errors under their JSON names and knows the
// iso8601 tag used for workout dates.
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		_, err := parseISOTime(fl.Field().String())
		return err == nil
	})
	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// Years outside this range do not fit a MySQL DATETIME column.
const (
	minStoredYear = 1000
	maxStoredYear = 9999
)

// parseISOTime accepts RFC 3339 timestamps with or without fractional
// seconds whose UTC year the store can hold.
func parseISOTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	if y := t.UTC().Year(); y < minStoredYear || y > maxStoredYear {
		return time.Time{}, fmt.Errorf("year %d out of range %d-%d", y, minStoredYear, maxStoredYear)
	}
	return t, nil
}

// bindAndValidate decodes the body into req and validates it. A decode
// failure and a validation failure both come back as Validation errors;
// the latter carries per-field messages.
func bindAndValidate(c echo.Context, req interface{ normalize() }, invalidMsg string) error {
	if err := c.Bind(req); err != nil {
		return apperr.Wrap(apperr.Validation, "Invalid request body", err)
	}
	req.normalize()
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperr.Invalid(invalidMsg, fieldErrors(verrs))
		}
		return apperr.Wrap(apperr.Validation, invalidMsg, err)
	}
	return nil
}

func fieldErrors(verrs validator.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if idx := strings.IndexByte(field, '['); idx != -1 {
			field = field[:idx]
		}
		out[field] = append(out[field], fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	kind := fe.Kind()
	if kind == reflect.Ptr {
		kind = fe.Type().Elem().Kind()
	}
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "iso8601":
		return "Invalid date format (ISO 8601 string expected)"
	case "unique":
		return "Must not contain duplicates"
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		switch kind {
		case reflect.String:
			return fmt.Sprintf("Must contain %s %s character(s)", bound, fe.Param())
		case reflect.Slice, reflect.Array:
			return fmt.Sprintf("Must contain %s %s item(s)", bound, fe.Param())
		}
		return fmt.Sprintf("Must be %s %s", bound, fe.Param())
	}
	return "Invalid value"
}
