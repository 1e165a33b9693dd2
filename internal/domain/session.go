// internal/domain/session.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus type for the workout session lifecycle
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed" // terminal
	SessionAbandoned  SessionStatus = "abandoned" // terminal
)

// Terminal reports whether no further transition may leave the status.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// SetRecord captures what the athlete actually did for one set.
type SetRecord struct {
	Completed       bool     `bson:"completed" json:"completed"`
	Skipped         bool     `bson:"skipped" json:"skipped"`
	RepsCompleted   *int     `bson:"repsCompleted,omitempty" json:"repsCompleted,omitempty"`
	Weight          *float64 `bson:"weight,omitempty" json:"weight,omitempty"`
	DurationSeconds *int     `bson:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`
	RPE             *float64 `bson:"rpe,omitempty" json:"rpe,omitempty"` // rate of perceived exertion, 1-10
}

// Done reports whether the set no longer counts against exercise completion.
func (r SetRecord) Done() bool {
	return r.Completed || r.Skipped
}

// ExerciseCompletion tracks one main-section exercise within a session.
// The Target* fields are the scaled prescription recorded at session start;
// they are advisory and never re-derived after the fact.
type ExerciseCompletion struct {
	ExerciseID   primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Name         string             `bson:"name" json:"name"`
	TargetSets   int                `bson:"targetSets" json:"targetSets"`
	TargetReps   string             `bson:"targetReps" json:"targetReps"`
	TargetWeight *float64           `bson:"targetWeight,omitempty" json:"targetWeight,omitempty"`
	Completed    bool               `bson:"completed" json:"completed"`
	Skipped      bool               `bson:"skipped" json:"skipped"`
	Sets         []SetRecord        `bson:"sets" json:"sets"`
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// RecomputeCompleted derives the exercise's completed flag: every set is
// completed or skipped. This is the only path that flips completion, in
// either direction, short of an explicit skip.
func (e *ExerciseCompletion) RecomputeCompleted() {
	if len(e.Sets) == 0 {
		e.Completed = false
		return
	}
	for _, set := range e.Sets {
		if !set.Done() {
			e.Completed = false
			return
		}
	}
	e.Completed = true
}

// WorkoutSession represents one attempt at executing a template.
// Exercises[i] corresponds to the template's main-section exercise at
// original index ExerciseOrder[i]; the two arrays move in lock-step when
// upcoming exercises are reordered.
type WorkoutSession struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID   `bson:"userId" json:"userId"`
	TemplateID    primitive.ObjectID   `bson:"templateId" json:"templateId"`
	UserProgramID primitive.ObjectID   `bson:"userProgramId" json:"userProgramId"`
	Status        SessionStatus        `bson:"status" json:"status"`
	StartedAt     time.Time            `bson:"startedAt" json:"startedAt"`
	CompletedAt   *time.Time           `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Exercises     []ExerciseCompletion `bson:"exercises" json:"exercises"`
	ExerciseOrder []int                `bson:"exerciseOrder" json:"exerciseOrder"`

	// TargetIntensity is the effective one-rep-max ceiling applied when the
	// session was started, kept for display alongside the set records.
	TargetIntensity *float64 `bson:"targetIntensity,omitempty" json:"targetIntensity,omitempty"`

	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ActiveIndex returns the first exercise position that is neither completed
// nor skipped, or len(Exercises) when everything is done. Resume recomputes
// this instead of storing it.
func (s *WorkoutSession) ActiveIndex() int {
	for i := range s.Exercises {
		if !s.Exercises[i].Completed && !s.Exercises[i].Skipped {
			return i
		}
	}
	return len(s.Exercises)
}

// Finalized reports whether the session reached a terminal state.
func (s *WorkoutSession) Finalized() bool {
	return s.Status.Terminal()
}
