// Package repository holds the data access layer.
// This file implements workout logs and the per-exercise progress series.
// Logs are only ever read for their owner. The progress query tolerates
// rows whose date or weight cannot be read and leaves them out.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/fitness-tracker/internal/apperr"
	"github.com/iliyamo/fitness-tracker/internal/model"
)

// ErrExerciseNotVisible rejects a log against an exercise the caller
// cannot see.
var ErrExerciseNotVisible = apperr.New(apperr.Validation, "Selected exercise is not valid")

// WorkoutRepo provides access to workout logs. Logs are only ever read
// for their owner.
type WorkoutRepo struct {
	db *sql.DB // db is the shared connection pool
}

func NewWorkoutRepo(db *sql.DB) *WorkoutRepo { return &WorkoutRepo{db: db} }

// NewWorkout is the validated input of Create.
type NewWorkout struct {
	ExerciseID uint64
	Date       time.Time
	Sets       int
	Reps       int
	Weight     float64
}

// Create stores a log for the caller. The insert selects from the exercise
// row under the visibility filter, so the check and the write are one
// statement and an invisible exercise inserts nothing.
func (r *WorkoutRepo) Create(ctx context.Context, callerID uint64, in NewWorkout) (model.WorkoutLog, error) {
	performedAt := in.Date.UTC().Truncate(time.Millisecond)
	createdAt := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO workout_logs (user_id, exercise_id, performed_at, sets, reps, weight, created_at)
		 SELECT ?, e.id, ?, ?, ?, ?, ? FROM exercises e
		 WHERE e.id = ? AND (e.is_default = 1 OR e.user_id = ?)`,
		callerID, performedAt, in.Sets, in.Reps, in.Weight, createdAt, in.ExerciseID, callerID)
	if err != nil {
		return model.WorkoutLog{}, fmt.Errorf("insert workout log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.WorkoutLog{}, fmt.Errorf("insert workout log: %w", err)
	}
	if n == 0 {
		return model.WorkoutLog{}, ErrExerciseNotVisible
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.WorkoutLog{}, fmt.Errorf("insert workout log: %w", err)
	}
	return model.WorkoutLog{
		ID:         uint64(id),
		UserID:     callerID,
		ExerciseID: in.ExerciseID,
		Date:       performedAt,
		Sets:       in.Sets,
		Reps:       in.Reps,
		Weight:     in.Weight,
		CreatedAt:  createdAt,
	}, nil
}

// ListByUser returns the caller's logs, newest first, with the exercise name.
func (r *WorkoutRepo) ListByUser(ctx context.Context, callerID uint64) ([]model.WorkoutLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.id, w.user_id, w.exercise_id, w.performed_at, w.sets, w.reps, w.weight, w.created_at, e.name
		 FROM workout_logs w
		 JOIN exercises e ON e.id = w.exercise_id
		 WHERE w.user_id = ?
		 ORDER BY w.performed_at DESC, w.id DESC`, callerID)
	if err != nil {
		return nil, fmt.Errorf("list workout logs: %w", err)
	}
	defer rows.Close()

	out := make([]model.WorkoutLog, 0)
	for rows.Next() {
		var (
			w    model.WorkoutLog
			name string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.ExerciseID, &w.Date, &w.Sets, &w.Reps, &w.Weight, &w.CreatedAt, &name); err != nil {
			return nil, fmt.Errorf("scan workout log: %w", err)
		}
		w.Exercise = &model.ExerciseName{Name: name}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workout logs: %w", err)
	}
	return out, nil
}

// Progress returns the caller's (day, weight) series for one exercise in
// ascending date order. Rows whose date or weight cannot be read are
// skipped instead of failing the whole series.
func (r *WorkoutRepo) Progress(ctx context.Context, callerID, exerciseID uint64) ([]model.ProgressPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT performed_at, weight FROM workout_logs
		 WHERE user_id = ? AND exercise_id = ?
		 ORDER BY performed_at ASC, id ASC`, callerID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := make([]model.ProgressPoint, 0)
	for rows.Next() {
		var rawDate, rawWeight any
		if err := rows.Scan(&rawDate, &rawWeight); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		day, ok := asTime(rawDate)
		if !ok {
			continue
		}
		weight, ok := asWeight(rawWeight)
		if !ok {
			continue
		}
		out = append(out, model.ProgressPoint{Date: day.UTC().Format(time.DateOnly), Value: weight})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return out, nil
}

var storedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateTime,
	time.DateOnly,
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	}
	return time.Time{}, false
}

func parseStoredTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func asWeight(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = p
	case []byte:
		p, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
