package repository

import (
	"context"
	"time"

	"peakform/training-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrConflict     = RepositoryError("conflict") // unique index violation, e.g. a second in-progress session
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TemplateRepository reads the canonical workout template grid. The grid is
// immutable from the core's perspective; only the seeder writes through Upsert.
type TemplateRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error)
	GetBySlot(ctx context.Context, categoryID primitive.ObjectID, phase domain.Phase, skill domain.SkillLevel, week, day int) (*domain.WorkoutTemplate, error)
	// ListPhase returns every template of one phase column of the grid,
	// ordered by (week, day).
	ListPhase(ctx context.Context, categoryID primitive.ObjectID, phase domain.Phase, skill domain.SkillLevel) ([]domain.WorkoutTemplate, error)
	// Upsert writes a template keyed by its grid coordinate.
	Upsert(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error)
}

// ProgramRepository persists per-athlete program state.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.ProgramState) (primitive.ObjectID, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.ProgramState, error)
	// UpdatePosition moves the athlete's day counters; when ticket is non-nil
	// it is stored as the pending reassessment in the same write.
	UpdatePosition(ctx context.Context, userID primitive.ObjectID, week, day int, ticket *domain.ReassessmentTicket) error
	// ApplyReassessment atomically consumes the pending ticket matching token:
	// stamps the next phase's unlock time, moves position to (next, 1, 1) and
	// clears the ticket. Returns ErrNotFound when no such ticket is pending.
	ApplyReassessment(ctx context.Context, userID primitive.ObjectID, token string, next domain.Phase, unlockedAt time.Time) error
}

// OverrideRepository persists schedule overrides. Every method is a single
// document write so multi-field mutations (focus plus swap) stay atomic.
type OverrideRepository interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.ScheduleOverride, error)
	// ApplySwap sets and removes permutation entries for one phase and
	// optionally clears the today focus, all in one write. The document is
	// created lazily on first use.
	ApplySwap(ctx context.Context, userID primitive.ObjectID, phase domain.Phase, set map[string]primitive.ObjectID, remove []string, clearFocus bool) error
	// SetFocus pins the today focus and, when set/remove are non-empty,
	// applies the accompanying same-phase swap in the same write.
	SetFocus(ctx context.Context, userID primitive.ObjectID, templateID primitive.ObjectID, phase domain.Phase, set map[string]primitive.ObjectID, remove []string) error
	ClearFocus(ctx context.Context, userID primitive.ObjectID) error
	// ResetPhase drops the whole permutation for one phase; the focus is
	// left untouched.
	ResetPhase(ctx context.Context, userID primitive.ObjectID, phase domain.Phase) error
}

// SessionRepository persists workout sessions. Mutating methods filter on
// status "in_progress" so a late write can never touch a finalized session.
type SessionRepository interface {
	// Create inserts the session; ErrConflict when an in-progress session
	// already exists for the same (user, template).
	Create(ctx context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error)
	GetInProgressByUser(ctx context.Context, userID primitive.ObjectID) (*domain.WorkoutSession, error)
	GetInProgressByTemplate(ctx context.Context, userID, templateID primitive.ObjectID) (*domain.WorkoutSession, error)
	// UpdateProgress overwrites the completion arrays of an in-progress
	// session. ErrNotFound when the session is missing or already finalized.
	UpdateProgress(ctx context.Context, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, exerciseOrder []int) error
	// Finalize moves an in-progress session to a terminal status with its
	// frozen arrays. completedAt is only stamped when non-nil (abandonment
	// stamps nothing). ErrNotFound when the session is missing or already
	// finalized.
	Finalize(ctx context.Context, sessionID primitive.ObjectID, status domain.SessionStatus, completedAt *time.Time, exercises []domain.ExerciseCompletion, exerciseOrder []int) error
	// ListCompletedTemplateIDs returns the distinct template ids the user
	// has at least one completed session for.
	ListCompletedTemplateIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}
