// Package repository holds the data access layer.
// This file implements routines and their ordered exercise links.
// Creating a routine checks every exercise id against the caller's
// visibility inside the same transaction that writes the routine and its
// links, so either everything is written or nothing is.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/fitness-tracker/internal/apperr"
	"github.com/iliyamo/fitness-tracker/internal/database"
	"github.com/iliyamo/fitness-tracker/internal/model"
)

// RoutineRepo provides access to routines and their ordered exercise links.
type RoutineRepo struct {
	db        *sql.DB          // db is the shared connection pool
	dialect   database.Dialect // dialect supplies the locking-read suffixes
	exercises *ExerciseRepo    // exercises resolves visible ids inside a transaction
}

func NewRoutineRepo(db *sql.DB, dialect database.Dialect) *RoutineRepo {
	return &RoutineRepo{db: db, dialect: dialect, exercises: NewExerciseRepo(db, dialect)}
}

const linkSelect = `SELECT re.id, re.routine_id, re.exercise_id, re.position, e.id, e.name
FROM routine_exercises re
JOIN exercises e ON e.id = re.exercise_id
JOIN routines r ON r.id = re.routine_id`

// ListVisible returns default routines first, then the caller's own by name,
// each with its links ordered by position.
func (r *RoutineRepo) ListVisible(ctx context.Context, callerID uint64) ([]model.Routine, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, is_default, user_id FROM routines WHERE "+visibleTo+" ORDER BY is_default DESC, name ASC, id ASC",
		callerID)
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	out := make([]model.Routine, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		rt, err := scanRoutine(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[rt.ID] = len(out)
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list routines: %w", err)
	}
	rows.Close()

	links, err := queryLinks(ctx, r.db,
		linkSelect+" WHERE (r.is_default = 1 OR r.user_id = ?) ORDER BY re.routine_id, re.position, re.id", callerID)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if i, ok := index[l.RoutineID]; ok {
			out[i].Exercises = append(out[i].Exercises, l)
		}
	}
	return out, nil
}

// Create validates that every exercise id is visible to the caller, then
// creates the routine and one link per id with a 1-based position, and
// returns the routine as stored. Either all rows are written or none.
func (r *RoutineRepo) Create(ctx context.Context, callerID uint64, name string, exerciseIDs []uint64) (model.Routine, error) {
	var created model.Routine
	err := withTx(ctx, r.db, "create routine", func(tx *sql.Tx) error {
		visible, err := r.exercises.visibleIDs(ctx, tx, callerID, exerciseIDs)
		if err != nil {
			return err
		}
		var invalid []string
		for _, id := range exerciseIDs {
			if !visible[id] {
				invalid = append(invalid, strconv.FormatUint(id, 10))
			}
		}
		if len(invalid) > 0 {
			return apperr.Invalid(
				"Invalid or inaccessible exercise IDs: "+strings.Join(invalid, ", "),
				map[string][]string{"exerciseIds": invalid},
			)
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO routines (name, is_default, user_id) VALUES (?, ?, ?)", name, false, callerID)
		if err != nil {
			if col, ok := uniqueViolation(err); ok && col == "name" {
				return apperr.Wrap(apperr.Conflict, "Routine name already exists", err)
			}
			return fmt.Errorf("insert routine: %w", err)
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert routine: %w", err)
		}
		routineID := uint64(lastID)

		for i, exID := range exerciseIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO routine_exercises (routine_id, exercise_id, position) VALUES (?, ?, ?)",
				routineID, exID, i+1); err != nil {
				return fmt.Errorf("link exercise %d to routine %d: %w", exID, routineID, err)
			}
		}

		created, err = r.getWithLinks(ctx, tx, routineID)
		return err
	})
	if err != nil {
		return model.Routine{}, err
	}
	return created, nil
}

// DeleteByIDAndOwner removes a routine owned by the caller and its links in
// one transaction, re-checking ownership under a locking read first.
func (r *RoutineRepo) DeleteByIDAndOwner(ctx context.Context, id, callerID uint64) error {
	return withTx(ctx, r.db, "delete routine", func(tx *sql.Tx) error {
		var found uint64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM routines WHERE id = ? AND user_id = ?"+r.dialect.ForUpdate(),
			id, callerID).Scan(&found)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFoundOrForbidden
			}
			return fmt.Errorf("lookup routine %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM routine_exercises WHERE routine_id = ?", id); err != nil {
			return fmt.Errorf("delete links of routine %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM routines WHERE id = ? AND user_id = ?", id, callerID)
		if err != nil {
			return fmt.Errorf("delete routine %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFoundOrForbidden
		}
		return nil
	})
}

func (r *RoutineRepo) getWithLinks(ctx context.Context, tx *sql.Tx, id uint64) (model.Routine, error) {
	rt, err := scanRoutine(tx.QueryRowContext(ctx,
		"SELECT id, name, is_default, user_id FROM routines WHERE id = ?", id))
	if err != nil {
		return model.Routine{}, err
	}
	links, err := queryLinks(ctx, tx, linkSelect+" WHERE re.routine_id = ?", id)
	if err != nil {
		return model.Routine{}, err
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Order < links[j].Order })
	rt.Exercises = links
	return rt, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryLinks(ctx context.Context, q querier, query string, args ...any) ([]model.RoutineExercise, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query routine links: %w", err)
	}
	defer rows.Close()

	out := make([]model.RoutineExercise, 0)
	for rows.Next() {
		var l model.RoutineExercise
		if err := rows.Scan(&l.ID, &l.RoutineID, &l.ExerciseID, &l.Order, &l.Exercise.ID, &l.Exercise.Name); err != nil {
			return nil, fmt.Errorf("scan routine link: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query routine links: %w", err)
	}
	return out, nil
}

func scanRoutine(s rowScanner) (model.Routine, error) {
	var (
		rt    model.Routine
		owner sql.NullInt64
	)
	if err := s.Scan(&rt.ID, &rt.Name, &rt.IsDefault, &owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Routine{}, ErrNotFoundOrForbidden
		}
		return model.Routine{}, fmt.Errorf("scan routine: %w", err)
	}
	rt.UserID = nullableID(owner)
	rt.Exercises = make([]model.RoutineExercise, 0)
	return rt, nil
}
