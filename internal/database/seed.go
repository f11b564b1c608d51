package database

// seed.go installs the shared catalog: default exercises and default
// routines that every user can see but nobody owns. Seeding only ever
// adopts rows that are already default rows. A user-owned row holding a
// catalog name stops the seed, because linking it into a default routine
// would show a private exercise to every user.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrSeedNameTaken means a catalog name is already used by a user-owned
// row. Names are unique per table, so the default cannot be inserted.
var ErrSeedNameTaken = errors.New("name is taken by a user-owned row")

type seedExercise struct {
	name        string
	description string
}

// defaultExercises is the shared catalog every user sees.
var defaultExercises = []seedExercise{
	{"Bicep Curl", "Dumbbell or barbell bicep curl"},
	{"Hammer Curl", "Neutral grip dumbbell curl"},
	{"One Arm Row", "Dumbbell row for back"},
	{"Pulldown Machine", "Lat pulldown machine"},
	{"Deadlift", "Conventional barbell deadlift"},
	{"Squat", "Barbell back squat"},
	{"Leg Extension", "Machine leg extension for quads"},
	{"Leg Curl", "Machine leg curl for hamstrings"},
	{"Bench Press", "Barbell chest press"},
	{"Shoulder Press", "Dumbbell or barbell overhead press"},
	{"Fly Machine", "Pec deck or cable fly machine"},
	{"Lateral Raises", "Dumbbell lateral raises for shoulders"},
}

// defaultRoutines maps each shared routine to its exercises in order.
var defaultRoutines = []struct {
	name      string
	exercises []string
}{
	{"Push Day", []string{"Bench Press", "Shoulder Press", "Fly Machine", "Lateral Raises"}},
	{"Pull Day", []string{"Deadlift", "Pulldown Machine", "One Arm Row", "Bicep Curl", "Hammer Curl"}},
	{"Leg Day", []string{"Squat", "Leg Extension", "Leg Curl"}},
}

// SeedDefaults inserts the default exercises, routines and their links in
// one transaction. Default rows are matched by name, so running it again
// changes nothing. If any catalog name belongs to a user's own row the
// whole seed is rolled back with ErrSeedNameTaken.
func SeedDefaults(ctx context.Context, db *sql.DB) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	exerciseIDs := make(map[string]uint64, len(defaultExercises))
	for _, ex := range defaultExercises {
		id, err := ensureDefault(ctx, tx,
			"SELECT id, is_default FROM exercises WHERE name = ?",
			"INSERT INTO exercises (name, description, is_default, user_id) VALUES (?, ?, ?, NULL)",
			ex.name, ex.name, ex.description, true)
		if err != nil {
			return fmt.Errorf("seed exercise %q: %w", ex.name, err)
		}
		exerciseIDs[ex.name] = id
	}

	for _, r := range defaultRoutines {
		routineID, err := ensureDefault(ctx, tx,
			"SELECT id, is_default FROM routines WHERE name = ?",
			"INSERT INTO routines (name, is_default, user_id) VALUES (?, ?, NULL)",
			r.name, r.name, true)
		if err != nil {
			return fmt.Errorf("seed routine %q: %w", r.name, err)
		}
		for i, exName := range r.exercises {
			var n int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM routine_exercises WHERE routine_id = ? AND exercise_id = ?",
				routineID, exerciseIDs[exName]).Scan(&n); err != nil {
				return fmt.Errorf("seed link %s/%s: %w", r.name, exName, err)
			}
			if n > 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO routine_exercises (routine_id, exercise_id, position) VALUES (?, ?, ?)",
				routineID, exerciseIDs[exName], i+1); err != nil {
				return fmt.Errorf("seed link %s/%s: %w", r.name, exName, err)
			}
		}
	}
	return nil
}

// ensureDefault returns the id of the default row called name, inserting
// it when missing. selectQ must return (id, is_default) for the name.
func ensureDefault(ctx context.Context, tx *sql.Tx, selectQ, insertQ, name string, insertArgs ...any) (uint64, error) {
	var (
		id        uint64
		isDefault bool
	)
	err := tx.QueryRowContext(ctx, selectQ, name).Scan(&id, &isDefault)
	if err == nil {
		if !isDefault {
			return 0, fmt.Errorf("%w: %q (id %d)", ErrSeedNameTaken, name, id)
		}
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, insertQ, insertArgs...)
	if err != nil {
		return 0, err
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(lastID), nil
}
