// Package repository holds the data access layer.
// This file implements the exercise catalog. Reads return default rows
// plus the caller's own. Deleting an exercise also deletes the workout logs
// and routine links that reference it, in that order and in a single
// transaction, after re-checking ownership under a locking read. Any
// failure rolls the whole cascade back.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/fitness-tracker/internal/apperr"
	"github.com/iliyamo/fitness-tracker/internal/database"
	"github.com/iliyamo/fitness-tracker/internal/model"
)

// visibleTo is the row filter applied to exercises and routines. It takes
// the caller id as its only argument.
const visibleTo = "(is_default = 1 OR user_id = ?)"

// ErrNotFoundOrForbidden is returned for a missing row and for a row owned
// by somebody else alike.
var ErrNotFoundOrForbidden = apperr.New(apperr.NotFound, "Not found or forbidden")

// ExerciseRepo provides access to the exercise catalog.
type ExerciseRepo struct {
	db      *sql.DB          // db is the shared connection pool
	dialect database.Dialect // dialect supplies the locking-read suffixes
}

func NewExerciseRepo(db *sql.DB, dialect database.Dialect) *ExerciseRepo {
	return &ExerciseRepo{db: db, dialect: dialect}
}

// ListVisible returns the default exercises and the caller's own, by name.
func (r *ExerciseRepo) ListVisible(ctx context.Context, callerID uint64) ([]model.Exercise, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, user_id, is_default FROM exercises WHERE "+visibleTo+" ORDER BY name ASC, id ASC",
		callerID)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	out := make([]model.Exercise, 0)
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return out, nil
}

// Create inserts an exercise owned by the caller. The row is never a
// default row whatever the client asked for.
func (r *ExerciseRepo) Create(ctx context.Context, callerID uint64, name string, description *string) (model.Exercise, error) {
	var desc sql.NullString
	if description != nil {
		desc = sql.NullString{String: *description, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO exercises (name, description, is_default, user_id) VALUES (?, ?, ?, ?)",
		name, desc, false, callerID)
	if err != nil {
		if col, ok := uniqueViolation(err); ok && col == "name" {
			return model.Exercise{}, apperr.Wrap(apperr.Conflict, "Exercise name already exists", err)
		}
		return model.Exercise{}, fmt.Errorf("insert exercise: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Exercise{}, fmt.Errorf("insert exercise: %w", err)
	}
	owner := callerID
	return model.Exercise{
		ID:          uint64(id),
		Name:        name,
		Description: description,
		UserID:      &owner,
		IsDefault:   false,
	}, nil
}

// DeleteByIDAndOwner removes an exercise owned by the caller together with
// its workout logs and routine links, in that order, in one transaction.
// The ownership check runs inside the transaction under a locking read, so
// of two racing deletes the second one observes the row gone and gets
// ErrNotFoundOrForbidden.
func (r *ExerciseRepo) DeleteByIDAndOwner(ctx context.Context, id, callerID uint64) error {
	return withTx(ctx, r.db, "delete exercise", func(tx *sql.Tx) error {
		var found uint64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM exercises WHERE id = ? AND user_id = ?"+r.dialect.ForUpdate(),
			id, callerID).Scan(&found)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFoundOrForbidden
			}
			return fmt.Errorf("lookup exercise %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM workout_logs WHERE exercise_id = ?", id); err != nil {
			return fmt.Errorf("delete workout logs of exercise %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM routine_exercises WHERE exercise_id = ?", id); err != nil {
			return fmt.Errorf("delete routine links of exercise %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM exercises WHERE id = ? AND user_id = ?", id, callerID)
		if err != nil {
			return fmt.Errorf("delete exercise %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFoundOrForbidden
		}
		return nil
	})
}

// visibleIDs returns which of ids the caller may reference. The share lock
// keeps a concurrent delete from removing them before the transaction ends.
func (r *ExerciseRepo) visibleIDs(ctx context.Context, tx *sql.Tx, callerID uint64, ids []uint64) (map[uint64]bool, error) {
	if len(ids) == 0 {
		return map[uint64]bool{}, nil
	}
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, callerID)
	q := "SELECT id FROM exercises WHERE id IN (" + placeholders(len(ids)) + ") AND " + visibleTo + r.dialect.ForShare()
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve exercise ids: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64]bool, len(ids))
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("resolve exercise ids: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(s rowScanner) (model.Exercise, error) {
	var (
		ex    model.Exercise
		desc  sql.NullString
		owner sql.NullInt64
	)
	if err := s.Scan(&ex.ID, &ex.Name, &desc, &owner, &ex.IsDefault); err != nil {
		return model.Exercise{}, fmt.Errorf("scan exercise: %w", err)
	}
	if desc.Valid {
		d := desc.String
		ex.Description = &d
	}
	ex.UserID = nullableID(owner)
	return ex, nil
}

func nullableID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
