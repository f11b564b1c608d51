// Package handler defines the HTTP handlers of the API.
// This file implements the user endpoints: registration, login and the
// caller's own profile. Registration stores a bcrypt hash and answers with
// the sanitized user. Login issues a bearer token and never reveals
// whether the username or the password was wrong: both cases cost one
// bcrypt comparison and produce the same 401 body.
package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fitness-tracker/internal/apperr"
	"github.com/iliyamo/fitness-tracker/internal/config"
	"github.com/iliyamo/fitness-tracker/internal/queue"
	"github.com/iliyamo/fitness-tracker/internal/repository"
	"github.com/iliyamo/fitness-tracker/internal/service"
	"github.com/iliyamo/fitness-tracker/internal/utils"
)

// AuthHandler bundles dependencies for the user endpoints.
type AuthHandler struct {
	Cfg    config.Config          // Cfg provides the bcrypt cost and token lifetime
	Users  *repository.UserRepo   // Users stores accounts
	Tokens *utils.TokenService    // Tokens issues bearer tokens
	Events service.EventPublisher // Events receives user.registered
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *utils.TokenService, ev service.EventPublisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Events: ev}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"required,max=191"`
	Email    string `json:"email" validate:"required,email,max=191"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func (r *registerReq) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a user and returns it without the password hash.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindAndValidate(c, &req, "Invalid input"); err != nil {
		return fail(c, "register", err)
	}
	u, err := h.Users.Create(c.Request().Context(), req.Username, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, "register", err)
	}
	publish(c, h.Events, queue.NewActivityEvent(queue.UserRegistered, u.ID, u.ID, u.Username))
	return c.JSON(http.StatusCreated, u)
}

// Login checks the credentials and issues a bearer token. An unknown user
// and a wrong password cost the same bcrypt work and get the same 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, "log in", apperr.Wrap(apperr.Validation, "Invalid request", err))
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return fail(c, "log in", apperr.New(apperr.Validation, "Missing credentials"))
	}
	if !h.Tokens.Configured() {
		c.Logger().Error("login: JWT_SECRET not set")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server configuration error"})
	}

	invalid := apperr.New(apperr.Unauthenticated, "Invalid credentials")
	u, err := h.Users.GetByUsername(c.Request().Context(), req.Username)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			utils.VerifyAgainstDummy(req.Password, h.Cfg.BcryptCost)
			return fail(c, "log in", invalid)
		}
		return fail(c, "log in", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, "log in", invalid)
	}

	token, _, err := h.Tokens.Issue(u.Identity())
	if err != nil {
		return fail(c, "log in", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":      u,
		"token":     token,
		"expiresIn": h.Cfg.TokenLifetime,
	})
}

// Me returns the caller's own record. A token for a user that no longer
// exists gets 404.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "get profile", err)
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		return fail(c, "get profile", err)
	}
	return c.JSON(http.StatusOK, u)
}
