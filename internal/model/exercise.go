package model

// Exercise represents a row in the `exercises` table. Default rows are
// seeded, shared and have no owner; every other row has UserID set.
type Exercise struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	UserID      *uint64 `json:"userId"`
	IsDefault   bool    `json:"isDefault"`
}

// ExerciseRef is the short form of an exercise embedded in other payloads.
type ExerciseRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
