package model

import "time"

// WorkoutLog is one logged set group. Logs are immutable and are removed
// only together with their exercise.
type WorkoutLog struct {
	ID         uint64        `json:"id"`
	UserID     uint64        `json:"userId"`
	ExerciseID uint64        `json:"exerciseId"`
	Date       time.Time     `json:"date"`
	Sets       int           `json:"sets"`
	Reps       int           `json:"reps"`
	Weight     float64       `json:"weight"`
	CreatedAt  time.Time     `json:"createdAt"`
	Exercise   *ExerciseName `json:"exercise,omitempty"`
}

// ExerciseName is the exercise projection embedded in workout listings.
type ExerciseName struct {
	Name string `json:"name"`
}

// ProgressPoint is one point of a progress chart: the day and the weight.
type ProgressPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}
