package model

// Routine is a named, ordered list of exercises. Visibility follows the
// same default-or-owned rule as Exercise.
type Routine struct {
	ID        uint64            `json:"id"`
	Name      string            `json:"name"`
	IsDefault bool              `json:"isDefault"`
	UserID    *uint64           `json:"userId"`
	Exercises []RoutineExercise `json:"exercises"`
}

// RoutineExercise models a row in `routine_exercises`. Order is 1-based and
// need not be contiguous.
type RoutineExercise struct {
	ID         uint64      `json:"id"`
	RoutineID  uint64      `json:"routineId"`
	ExerciseID uint64      `json:"exerciseId"`
	Order      int         `json:"order"`
	Exercise   ExerciseRef `json:"exercise"`
}
