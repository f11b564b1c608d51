// Package handler defines the HTTP handlers of the API.
// This file implements workout logging and the progress series. Numeric
// fields are pointers so a missing value is told apart from zero, and the
// bounds match what the store columns can hold, so bad input is a 400
// rather than a failed insert.
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fitness-tracker/internal/apperr"
	"github.com/iliyamo/fitness-tracker/internal/queue"
	"github.com/iliyamo/fitness-tracker/internal/repository"
	"github.com/iliyamo/fitness-tracker/internal/service"
)

// WorkoutHandler serves workout logs and the progress series built on them.
type WorkoutHandler struct {
	Workouts *repository.WorkoutRepo
	Events   service.EventPublisher
}

func NewWorkoutHandler(r *repository.WorkoutRepo, ev service.EventPublisher) *WorkoutHandler {
	return &WorkoutHandler{Workouts: r, Events: ev}
}

type createWorkoutReq struct {
	ExerciseID *int64   `json:"exerciseId" validate:"required,gt=0"`
	Date       string   `json:"date" validate:"required,iso8601"`
	Sets       *int     `json:"sets" validate:"required,gte=1,lte=2147483647"` // INT column
	Reps       *int     `json:"reps" validate:"required,gte=1,lte=2147483647"` // INT column
	Weight     *float64 `json:"weight" validate:"required,gte=0"`
}

func (r *createWorkoutReq) normalize() { r.Date = strings.TrimSpace(r.Date) }

// Create logs a workout against an exercise the caller can see.
func (h *WorkoutHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "save log", err)
	}
	var req createWorkoutReq
	if err := bindAndValidate(c, &req, "Invalid data"); err != nil {
		return fail(c, "save log", err)
	}
	date, err := parseISOTime(req.Date)
	if err != nil {
		return fail(c, "save log", apperr.Invalid("Invalid data", map[string][]string{
			"date": {"Invalid date format (ISO 8601 string expected)"},
		}))
	}
	w, err := h.Workouts.Create(c.Request().Context(), uid, repository.NewWorkout{
		ExerciseID: uint64(*req.ExerciseID),
		Date:       date,
		Sets:       *req.Sets,
		Reps:       *req.Reps,
		Weight:     *req.Weight,
	})
	if err != nil {
		return fail(c, "save log", err)
	}
	publish(c, h.Events, queue.NewActivityEvent(queue.WorkoutLogged, uid, w.ID, ""))
	return c.JSON(http.StatusCreated, w)
}

// List returns the caller's logs, newest first.
func (h *WorkoutHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "get logs", err)
	}
	logs, err := h.Workouts.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, "get logs", err)
	}
	return c.JSON(http.StatusOK, logs)
}

// Progress returns [{date, value}] for one exercise in ascending date order.
func (h *WorkoutHandler) Progress(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, "get progress data", err)
	}
	raw := strings.TrimSpace(c.QueryParam("exerciseId"))
	if raw == "" {
		return fail(c, "get progress data", apperr.New(apperr.Validation, "Missing parameter"))
	}
	exerciseID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || exerciseID == 0 {
		return fail(c, "get progress data", apperr.New(apperr.Validation, "Invalid parameter"))
	}
	points, err := h.Workouts.Progress(c.Request().Context(), uid, exerciseID)
	if err != nil {
		return fail(c, "get progress data", err)
	}
	return c.JSON(http.StatusOK, points)
}
