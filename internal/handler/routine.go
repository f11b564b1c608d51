// Package handler defines the HTTP handlers of the API.
// This file implements the routine endpoints. A routine is created with an
// ordered list of exercise ids; every id must be visible to the caller or
// nothing is written and the invalid ids are named in a 400. Deletion
// follows the same 404-for-missing-or-foreign rule as exercises.
package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fitness-tracker/internal/queue"
	"github.com/iliyamo/fitness-tracker/internal/repository"
	"github.com/iliyamo/fitness-tracker/internal/service"
)

// RoutineHandler serves routines and their ordered exercises.
type RoutineHandler struct {
	Routines *repository.RoutineRepo
	Events   service.EventPublisher
}

func NewRoutineHandler(r *repository.RoutineRepo, ev service.EventPublisher) *RoutineHandler {
	return &RoutineHandler{Routines: r, Events: ev}
}

type createRoutineReq struct {
	Name        string  `json:"name" validate:"required,max=191"`
	ExerciseIDs []int64 `json:"exerciseIds" validate:"required,min=1,unique,dive,gt=0"`
}

func (r *createRoutineReq) normalize() { r.Name = strings.TrimSpace(r.Name) }

// List returns default routines first, then the caller's.
func (h *RoutineHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "get routines", err)
	}
	list, err := h.Routines.ListVisible(c.Request().Context(), uid)
	if err != nil {
		return fail(c, "get routines", err)
	}
	return c.JSON(http.StatusOK, list)
}

// Create stores a routine whose exercises keep the order given.
func (h *RoutineHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "create routine", err)
	}
	var req createRoutineReq
	if err := bindAndValidate(c, &req, "Invalid data"); err != nil {
		return fail(c, "create routine", err)
	}
	ids := make([]uint64, len(req.ExerciseIDs))
	for i, id := range req.ExerciseIDs {
		ids[i] = uint64(id)
	}
	rt, err := h.Routines.Create(c.Request().Context(), uid, req.Name, ids)
	if err != nil {
		return fail(c, "create routine", err)
	}
	publish(c, h.Events, queue.NewActivityEvent(queue.RoutineCreated, uid, rt.ID, rt.Name))
	return c.JSON(http.StatusCreated, rt)
}

// Delete removes one of the caller's routines and its links.
func (h *RoutineHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, "delete", err)
	}
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "delete", err)
	}
	if err := h.Routines.DeleteByIDAndOwner(c.Request().Context(), id, uid); err != nil {
		return fail(c, "delete", err)
	}
	publish(c, h.Events, queue.NewActivityEvent(queue.RoutineDeleted, uid, id, ""))
	return c.NoContent(http.StatusNoContent)
}
