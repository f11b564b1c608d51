// Package handler defines the HTTP handlers of the API.
// This file implements the exercise catalog endpoints. Listing returns the
// default exercises plus the caller's own. Creation always produces a row
// owned by the caller. Deleting an exercise removes its workout logs and
// routine links in the repository layer; a missing exercise and one owned
// by another user both answer 404 so ownership is not disclosed.
package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fitness-tracker/internal/queue"
	"github.com/iliyamo/fitness-tracker/internal/repository"
	"github.com/iliyamo/fitness-tracker/internal/service"
)

// ExerciseHandler serves the exercise catalog.
type ExerciseHandler struct {
	Exercises *repository.ExerciseRepo // Exercises is the catalog store
	Events    service.EventPublisher   // Events receives exercise.created and exercise.deleted
}

func NewExerciseHandler(r *repository.ExerciseRepo, ev service.EventPublisher) *ExerciseHandler {
	return &ExerciseHandler{Exercises: r, Events: ev}
}

type createExerciseReq struct {
	Name        string  `json:"name" validate:"required,max=191"`
	Description *string `json:"description"`
}

func (r *createExerciseReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		r.Description = &d
	}
}

// List returns the default exercises and the caller's own.
func (h *ExerciseHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "get exercises", err)
	}
	list, err := h.Exercises.ListVisible(c.Request().Context(), uid)
	if err != nil {
		return fail(c, "get exercises", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Create adds an exercise owned by the caller.
func (h *ExerciseHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "create exercise", err)
	}
	var req createExerciseReq
	if err := bindAndValidate(c, &req, "Invalid data"); err != nil {
		return fail(c, "create exercise", err)
	}
	ex, err := h.Exercises.Create(c.Request().Context(), uid, req.Name, req.Description)
	if err != nil {
		return fail(c, "create exercise", err)
	}
	publish(c, h.Events, queue.NewActivityEvent(queue.ExerciseCreated, uid, ex.ID, ex.Name))
	return c.JSON(http.StatusCreated, ex)
}

// Delete removes one of the caller's exercises with its logs and links.
func (h *ExerciseHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, "delete", err)
	}
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "delete", err)
	}
	if err := h.Exercises.DeleteByIDAndOwner(c.Request().Context(), id, uid); err != nil {
		return fail(c, "delete", err)
	}
	publish(c, h.Events, queue.NewActivityEvent(queue.ExerciseDeleted, uid, id, ""))
	return c.NoContent(http.StatusNoContent)
}
