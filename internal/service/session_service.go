package service

import (
	"context"
	"errors"
	"time"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/prescription"
	"peakform/training-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrSessionNotFound          = errors.New("workout session not found")
	ErrSessionAlreadyInProgress = errors.New("a session is already in progress for this template")
	ErrSessionAlreadyFinalized  = errors.New("session is already finalized")
	ErrRestDaySession           = errors.New("rest days have no workout to start")
	ErrExerciseCountMismatch    = errors.New("exercise payload does not match the session")
	ErrSetIndexOutOfRange       = errors.New("exercise or set index out of range")
	ErrReorderLocked            = errors.New("only exercises after the active one can be reordered")
	ErrInvalidExerciseOrder     = errors.New("exercise order is not a permutation of the session's exercises")
)

// --- Service Interface ---

// SessionService owns the workout session lifecycle: in_progress is the only
// live state, completed and abandoned are terminal, and nothing ever leaves
// a terminal state.
type SessionService interface {
	Start(ctx context.Context, userID, templateID primitive.ObjectID) (*domain.WorkoutSession, error)
	GetCurrent(ctx context.Context, userID primitive.ObjectID) (*domain.WorkoutSession, error)
	GetForTemplate(ctx context.Context, userID, templateID primitive.ObjectID) (*domain.WorkoutSession, error)
	// UpdateSet overwrites one set record and recomputes the exercise's
	// completed flag. The write is debounced.
	UpdateSet(ctx context.Context, userID, sessionID primitive.ObjectID, exerciseIndex, setIndex int, record domain.SetRecord) (*domain.WorkoutSession, error)
	// UpdateProgress overwrites the whole completion state, optionally with
	// an upcoming-only reorder. The write is debounced; persistence failures
	// are retried on the next tick and never surface here.
	UpdateProgress(ctx context.Context, userID, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, exerciseOrder []int) (*domain.WorkoutSession, error)
	// Complete finalizes the session and advances the program position. The
	// returned AdvanceResult tells the caller whether to route into the
	// reassessment flow.
	Complete(ctx context.Context, userID, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, exerciseOrder []int) (*domain.WorkoutSession, *AdvanceResult, error)
	// Abandon finalizes the session without advancing; partial progress is
	// preserved as-is.
	Abandon(ctx context.Context, userID, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, exerciseOrder []int) (*domain.WorkoutSession, error)
	GetCompletedTemplateIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// --- Service Implementation ---

type sessionService struct {
	sessionRepo  repository.SessionRepository
	templateRepo repository.TemplateRepository
	programRepo  repository.ProgramRepository
	scheduler    SchedulerService
	autosaver    *ProgressAutosaver
}

// NewSessionService creates a new instance of sessionService.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	templateRepo repository.TemplateRepository,
	programRepo repository.ProgramRepository,
	scheduler SchedulerService,
	autosaver *ProgressAutosaver,
) SessionService {
	return &sessionService{
		sessionRepo:  sessionRepo,
		templateRepo: templateRepo,
		programRepo:  programRepo,
		scheduler:    scheduler,
		autosaver:    autosaver,
	}
}

// Start creates a session from the template's main-section exercises, with
// the scaled prescription recorded as advisory targets and one empty set
// record per scaled set.
func (s *sessionService) Start(ctx context.Context, userID, templateID primitive.ObjectID) (*domain.WorkoutSession, error) {
	if userID == primitive.NilObjectID || templateID == primitive.NilObjectID {
		return nil, ErrValidationFailed
	}
	program, err := s.programRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if template.RestDay {
		return nil, ErrRestDaySession
	}

	// Callers are expected to resume an existing session, not restart it.
	if _, err := s.sessionRepo.GetInProgressByTemplate(ctx, userID, templateID); err == nil {
		return nil, ErrSessionAlreadyInProgress
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	mains := template.MainExercises()
	exercises := make([]domain.ExerciseCompletion, 0, len(mains))
	order := make([]int, 0, len(mains))
	for i, ex := range mains {
		scaled := prescription.Scale(ex, program.AgeGroup, template.Phase, program.SkillLevel)
		exercises = append(exercises, domain.ExerciseCompletion{
			ExerciseID:   ex.ExerciseID,
			Name:         ex.Name,
			TargetSets:   scaled.Sets,
			TargetReps:   scaled.Reps,
			TargetWeight: scaled.TargetWeight,
			Sets:         make([]domain.SetRecord, scaled.Sets),
		})
		order = append(order, i)
	}

	ceiling := prescription.EffectiveCeiling(program.AgeGroup, template.Phase)
	session := &domain.WorkoutSession{
		UserID:          userID,
		TemplateID:      templateID,
		UserProgramID:   program.ID,
		Exercises:       exercises,
		ExerciseOrder:   order,
		TargetIntensity: &ceiling,
	}
	if _, err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSessionAlreadyInProgress
		}
		return nil, err
	}
	return session, nil
}

// GetCurrent retrieves the user's in-progress session, most recent first.
func (s *sessionService) GetCurrent(ctx context.Context, userID primitive.ObjectID) (*domain.WorkoutSession, error) {
	session, err := s.sessionRepo.GetInProgressByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// GetForTemplate retrieves the in-progress session for one template; this is
// the resume path, so the caller recomputes the active index from it.
func (s *sessionService) GetForTemplate(ctx context.Context, userID, templateID primitive.ObjectID) (*domain.WorkoutSession, error) {
	session, err := s.sessionRepo.GetInProgressByTemplate(ctx, userID, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// UpdateSet overwrites one set record, recomputes the exercise's completed
// flag, and queues the debounced write. Applying the same record twice is a
// no-op the second time.
func (s *sessionService) UpdateSet(ctx context.Context, userID, sessionID primitive.ObjectID, exerciseIndex, setIndex int, record domain.SetRecord) (*domain.WorkoutSession, error) {
	session, err := s.loadWorking(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finalized() {
		return nil, ErrSessionAlreadyFinalized
	}
	if exerciseIndex < 0 || exerciseIndex >= len(session.Exercises) {
		return nil, ErrSetIndexOutOfRange
	}
	exercise := &session.Exercises[exerciseIndex]
	if setIndex < 0 || setIndex >= len(exercise.Sets) {
		return nil, ErrSetIndexOutOfRange
	}

	exercise.Sets[setIndex] = record
	exercise.RecomputeCompleted()

	s.autosaver.Queue(sessionID, session.Exercises, session.ExerciseOrder)
	return session, nil
}

// UpdateProgress overwrites the completion arrays after validating identity
// alignment and the upcoming-only reorder rule, then queues the debounced
// write. Fire-and-forget from the caller's perspective.
func (s *sessionService) UpdateProgress(ctx context.Context, userID, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, exerciseOrder []int) (*domain.WorkoutSession, error) {
	session, err := s.loadWorking(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finalized() {
		return nil, ErrSessionAlreadyFinalized
	}
	if err := applyProgress(session, exercises, exerciseOrder); err != nil {
		return nil, err
	}

	s.autosaver.Queue(sessionID, session.Exercises, session.ExerciseOrder)
	return session, nil
}

// Complete finalizes the session as completed, freezes its arrays, then
// advances the program position. A reassessment trigger in the result is the
// caller's cue to route into the reassessment flow.
func (s *sessionService) Complete(ctx context.Context, userID, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, exerciseOrder []int) (*domain.WorkoutSession, *AdvanceResult, error) {
	now := time.Now().UTC()
	session, err := s.finalize(ctx, userID, sessionID, domain.SessionCompleted, &now, exercises, exerciseOrder)
	if err != nil {
		return nil, nil, err
	}

	advance, err := s.scheduler.AdvancePosition(ctx, userID)
	if err != nil {
		// The session is completed; the position write is what failed.
		return nil, nil, err
	}
	return session, advance, nil
}

// Abandon finalizes the session as abandoned. Partial progress is preserved,
// nothing advances, and the template is free to start again later.
func (s *sessionService) Abandon(ctx context.Context, userID, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, exerciseOrder []int) (*domain.WorkoutSession, error) {
	return s.finalize(ctx, userID, sessionID, domain.SessionAbandoned, nil, exercises, exerciseOrder)
}

// GetCompletedTemplateIDs returns the distinct templates the user has a
// completed session for.
func (s *sessionService) GetCompletedTemplateIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	return s.sessionRepo.ListCompletedTemplateIDs(ctx, userID)
}

// --- internals ---

// fetchOwned loads a session and hides other users' sessions behind not-found.
func (s *sessionService) fetchOwned(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.WorkoutSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// loadWorking returns the owned session with any queued-but-unflushed
// progress overlaid, so a burst of edits inside one debounce window composes
// instead of each edit starting from the stale stored document.
func (s *sessionService) loadWorking(ctx context.Context, userID, sessionID primitive.ObjectID) (*domain.WorkoutSession, error) {
	session, err := s.fetchOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finalized() {
		return session, nil
	}
	if exercises, order, ok := s.autosaver.Pending(sessionID); ok {
		session.Exercises = exercises
		session.ExerciseOrder = order
	}
	return session, nil
}

// finalize runs the shared terminal transition: flush pending progress,
// disable further auto-save, then move to the terminal status with one
// status-guarded write.
func (s *sessionService) finalize(ctx context.Context, userID, sessionID primitive.ObjectID, status domain.SessionStatus, completedAt *time.Time, exercises []domain.ExerciseCompletion, exerciseOrder []int) (*domain.WorkoutSession, error) {
	session, err := s.loadWorking(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finalized() {
		return nil, ErrSessionAlreadyFinalized
	}

	if exercises != nil {
		if err := applyProgress(session, exercises, exerciseOrder); err != nil {
			return nil, err
		}
	}

	// The frozen arrays fold in whatever was still queued (loadWorking
	// overlaid it), so the terminal write is itself the flush. Tombstone the
	// session so a late queue cannot chase it.
	s.autosaver.Disable(sessionID)

	err = s.sessionRepo.Finalize(ctx, sessionID, status, completedAt, session.Exercises, session.ExerciseOrder)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost the race with another finalization.
			return nil, ErrSessionAlreadyFinalized
		}
		return nil, err
	}

	session.Status = status
	session.CompletedAt = completedAt
	return session, nil
}

// applyProgress validates and applies a bulk progress payload onto the
// session: identity must align index-by-index, a reorder may only permute
// exercises strictly after the active one, and completion flags are
// recomputed server-side. The payload carries completion state only; the
// targets recorded at start stay as they were.
func applyProgress(session *domain.WorkoutSession, exercises []domain.ExerciseCompletion, exerciseOrder []int) error {
	if len(exercises) != len(session.Exercises) {
		return ErrExerciseCountMismatch
	}
	newOrder := session.ExerciseOrder
	if exerciseOrder != nil {
		if err := validateReorder(session, exerciseOrder); err != nil {
			return err
		}
		newOrder = exerciseOrder
	}

	// Exercises[i] must describe the original exercise that newOrder[i]
	// names; the arrays move in lock-step or not at all.
	byOriginal := make(map[int]domain.ExerciseCompletion, len(session.Exercises))
	for i, original := range session.ExerciseOrder {
		byOriginal[original] = session.Exercises[i]
	}

	merged := make([]domain.ExerciseCompletion, len(exercises))
	for i := range exercises {
		existing := byOriginal[newOrder[i]]
		if existing.ExerciseID != exercises[i].ExerciseID {
			return ErrInvalidExerciseOrder
		}
		existing.Skipped = exercises[i].Skipped
		existing.Notes = exercises[i].Notes
		existing.Sets = exercises[i].Sets
		existing.RecomputeCompleted()
		merged[i] = existing
	}
	session.Exercises = merged
	session.ExerciseOrder = newOrder
	return nil
}

// validateReorder enforces the upcoming-only rule: positions up to and
// including the active exercise are locked, the rest must be a permutation
// of what was there.
func validateReorder(session *domain.WorkoutSession, order []int) error {
	current := session.ExerciseOrder
	if len(order) != len(current) {
		return ErrInvalidExerciseOrder
	}
	active := session.ActiveIndex()
	for i := 0; i <= active && i < len(current); i++ {
		if order[i] != current[i] {
			return ErrReorderLocked
		}
	}
	seen := make(map[int]bool, len(order))
	for _, v := range order {
		if v < 0 || v >= len(current) || seen[v] {
			return ErrInvalidExerciseOrder
		}
		seen[v] = true
	}
	return nil
}
