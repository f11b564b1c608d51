// Package queue defines the activity events exchanged over the message
// broker and the consumer used to inspect them.
package queue

import (
	"fmt"
	"time"
)

// ActivityQueue is the durable queue every activity event is routed to.
const ActivityQueue = "fitness.activity"

// EventType names what happened.
type EventType string

const (
	UserRegistered  EventType = "user.registered"
	ExerciseCreated EventType = "exercise.created"
	ExerciseDeleted EventType = "exercise.deleted"
	RoutineCreated  EventType = "routine.created"
	RoutineDeleted  EventType = "routine.deleted"
	WorkoutLogged   EventType = "workout.logged"
)

// ActivityEvent is published after a write has committed. It carries
// enough for a consumer to log or count activity without reading the
// primary database.
type ActivityEvent struct {
	Type       EventType `json:"type"`
	UserID     uint64    `json:"user_id"`
	ResourceID uint64    `json:"resource_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	OccurredAt string    `json:"occurred_at"`
}

// NewActivityEvent stamps an event with the current UTC time.
func NewActivityEvent(t EventType, userID, resourceID uint64, name string) ActivityEvent {
	return ActivityEvent{
		Type:       t,
		UserID:     userID,
		ResourceID: resourceID,
		Name:       name,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Line renders the event as one human-friendly log line.
func (e ActivityEvent) Line() string {
	line := fmt.Sprintf("[%s] %s | user_id=%d", e.OccurredAt, e.Type, e.UserID)
	if e.ResourceID != 0 {
		line += fmt.Sprintf(" | id=%d", e.ResourceID)
	}
	if e.Name != "" {
		line += fmt.Sprintf(" | name=%q", e.Name)
	}
	return line
}
