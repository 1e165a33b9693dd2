package service

import (
	"context"
	"errors"
	"time"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrValidationFailed          = errors.New("validation failed")
	ErrProgramNotFound           = errors.New("program not found for user")
	ErrProgramAlreadyExists      = errors.New("a program already exists for this user")
	ErrTemplateNotFound          = errors.New("workout template not found")
	ErrSlotOutOfRange            = errors.New("slot coordinates outside the phase grid")
	ErrPhaseLocked               = errors.New("phase is not unlocked yet")
	ErrSwapRejected              = errors.New("swap rejected: completed slot or mismatched phases")
	ErrFocusTargetCompleted      = errors.New("focus target is already completed")
	ErrNoReassessmentPending     = errors.New("no reassessment is pending")
	ErrReassessmentTokenMismatch = errors.New("reassessment token does not match the pending ticket")
)

// ResolvedWorkout is the answer to "what workout is assigned here".
type ResolvedWorkout struct {
	Slot       domain.Slot
	TemplateID primitive.ObjectID
	Template   *domain.WorkoutTemplate
	RestDay    bool
	Swapped    bool // assignment differs from the canonical grid
	Focused    bool // chosen via the today-focus override
	Completed  bool
}

// PhaseSlotOverview is one row of a phase overview.
type PhaseSlotOverview struct {
	Slot       domain.Slot
	TemplateID primitive.ObjectID
	Name       string
	RestDay    bool
	Swapped    bool
	Completed  bool
	Current    bool // the athlete's day counters point here
}

// AdvanceResult reports what completion-driven advancement did.
type AdvanceResult struct {
	Phase               domain.Phase
	Week                int
	Day                 int
	TriggerReassessment bool
	CompletedPhase      domain.Phase
	NextPhase           domain.Phase
	ReassessmentToken   string
	CompletionRate      float64
	ProgramComplete     bool // final phase exhausted, nothing left to unlock
}

// --- Service Interface ---

// SchedulerService owns the phase/week/day grid resolution, the override
// layer, phase unlocking, and the athlete's position in the program.
type SchedulerService interface {
	InitializeProgram(ctx context.Context, userID, sportCategoryID primitive.ObjectID, skill domain.SkillLevel, age domain.AgeGroup) (*domain.ProgramState, error)
	GetProgram(ctx context.Context, userID primitive.ObjectID) (*domain.ProgramState, error)
	Resolve(ctx context.Context, userID primitive.ObjectID, slot domain.Slot) (*ResolvedWorkout, error)
	ResolveToday(ctx context.Context, userID primitive.ObjectID) (*ResolvedWorkout, error)
	GetPhaseOverview(ctx context.Context, userID primitive.ObjectID, phase domain.Phase) ([]PhaseSlotOverview, error)
	GetUnlockedPhases(ctx context.Context, userID primitive.ObjectID) ([]domain.Phase, error)
	Swap(ctx context.Context, userID primitive.ObjectID, slotA, slotB domain.Slot) error
	SetFocusWithSwap(ctx context.Context, userID, templateID primitive.ObjectID, autoSwap bool) error
	ClearFocus(ctx context.Context, userID primitive.ObjectID) error
	ResetPhaseToDefault(ctx context.Context, userID primitive.ObjectID, phase domain.Phase) error
	// AdvancePosition is invoked by the session state machine on successful
	// completion; it never unlocks phases itself.
	AdvancePosition(ctx context.Context, userID primitive.ObjectID) (*AdvanceResult, error)
	// CompleteReassessment is the reassessment flow's unlock authority.
	CompleteReassessment(ctx context.Context, userID primitive.ObjectID, token string) (*domain.ProgramState, error)
}

// --- Service Implementation ---

type schedulerService struct {
	programRepo  repository.ProgramRepository
	templateRepo repository.TemplateRepository
	overrideRepo repository.OverrideRepository
	sessionRepo  repository.SessionRepository

	// completionThreshold is the fraction of a phase's required days that
	// must be completed before exhaustion mints a reassessment ticket.
	completionThreshold float64
}

// NewSchedulerService creates a new instance of schedulerService.
func NewSchedulerService(
	programRepo repository.ProgramRepository,
	templateRepo repository.TemplateRepository,
	overrideRepo repository.OverrideRepository,
	sessionRepo repository.SessionRepository,
	completionThreshold float64,
) SchedulerService {
	if completionThreshold <= 0 || completionThreshold > 1 {
		completionThreshold = 1.0
	}
	return &schedulerService{
		programRepo:         programRepo,
		templateRepo:        templateRepo,
		overrideRepo:        overrideRepo,
		sessionRepo:         sessionRepo,
		completionThreshold: completionThreshold,
	}
}

// InitializeProgram creates the athlete's program state at intake completion,
// positioned at (GPP, week 1, day 1).
func (s *schedulerService) InitializeProgram(ctx context.Context, userID, sportCategoryID primitive.ObjectID, skill domain.SkillLevel, age domain.AgeGroup) (*domain.ProgramState, error) {
	if userID == primitive.NilObjectID || sportCategoryID == primitive.NilObjectID {
		return nil, ErrValidationFailed
	}
	if !skill.Valid() || !age.Valid() {
		return nil, ErrValidationFailed
	}

	// The chosen category/skill must actually have a seeded GPP grid.
	if _, err := s.templateRepo.GetBySlot(ctx, sportCategoryID, domain.PhaseGPP, skill, 1, 1); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	program := &domain.ProgramState{
		UserID:          userID,
		SportCategoryID: sportCategoryID,
		Phase:           domain.PhaseGPP,
		Week:            1,
		Day:             1,
		SkillLevel:      skill,
		AgeGroup:        age,
	}
	if _, err := s.programRepo.Create(ctx, program); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrProgramAlreadyExists
		}
		return nil, err
	}
	return program, nil
}

// GetProgram retrieves the athlete's program state.
func (s *schedulerService) GetProgram(ctx context.Context, userID primitive.ObjectID) (*domain.ProgramState, error) {
	program, err := s.programRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	return program, nil
}

// Resolve answers "what workout is assigned to this slot": the override
// permutation wins, the canonical grid is the fallback.
func (s *schedulerService) Resolve(ctx context.Context, userID primitive.ObjectID, slot domain.Slot) (*ResolvedWorkout, error) {
	if !slot.Phase.Valid() || slot.Week < 1 || slot.Day < 1 {
		return nil, ErrValidationFailed
	}
	program, err := s.GetProgram(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !program.PhaseUnlocked(slot.Phase) {
		return nil, ErrPhaseLocked
	}
	override, err := s.loadOverride(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.completedTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}
	grid, err := s.loadGrid(ctx, program, slot.Phase)
	if err != nil {
		return nil, err
	}
	return s.resolveSlot(ctx, grid, override, completed, slot)
}

// ResolveToday answers "what is the workout for right now": the focus
// override wins unless its target is completed, then the natural
// (phase, week, day) lookup applies.
func (s *schedulerService) ResolveToday(ctx context.Context, userID primitive.ObjectID) (*ResolvedWorkout, error) {
	program, err := s.GetProgram(ctx, userID)
	if err != nil {
		return nil, err
	}
	override, err := s.loadOverride(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.completedTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}

	if override != nil && override.TodayFocusTemplateID != nil && !completed[*override.TodayFocusTemplateID] {
		template, err := s.templateRepo.GetByID(ctx, *override.TodayFocusTemplateID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			// Focus points at a vanished template; fall back to the natural slot.
		} else {
			return &ResolvedWorkout{
				Slot:       template.Slot(),
				TemplateID: template.ID,
				Template:   template,
				RestDay:    template.RestDay,
				Focused:    true,
			}, nil
		}
	}

	grid, err := s.loadGrid(ctx, program, program.Phase)
	if err != nil {
		return nil, err
	}
	return s.resolveSlot(ctx, grid, override, completed, program.CurrentSlot())
}

// GetPhaseOverview returns every slot of the phase with its resolved
// assignment and completion flag. Locked phases may be previewed.
func (s *schedulerService) GetPhaseOverview(ctx context.Context, userID primitive.ObjectID, phase domain.Phase) ([]PhaseSlotOverview, error) {
	if !phase.Valid() {
		return nil, ErrValidationFailed
	}
	program, err := s.GetProgram(ctx, userID)
	if err != nil {
		return nil, err
	}
	override, err := s.loadOverride(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.completedTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}
	grid, err := s.loadGrid(ctx, program, phase)
	if err != nil {
		return nil, err
	}

	current := program.CurrentSlot()
	overview := make([]PhaseSlotOverview, 0, len(grid.ordered))
	for _, canonical := range grid.ordered {
		slot := canonical.Slot()
		resolved, err := s.resolveSlot(ctx, grid, override, completed, slot)
		if err != nil {
			return nil, err
		}
		overview = append(overview, PhaseSlotOverview{
			Slot:       slot,
			TemplateID: resolved.TemplateID,
			Name:       resolved.Template.Name,
			RestDay:    resolved.RestDay,
			Swapped:    resolved.Swapped,
			Completed:  resolved.Completed,
			Current:    slot == current,
		})
	}
	return overview, nil
}

// GetUnlockedPhases returns the unlocked phases in progression order.
func (s *schedulerService) GetUnlockedPhases(ctx context.Context, userID primitive.ObjectID) ([]domain.Phase, error) {
	program, err := s.GetProgram(ctx, userID)
	if err != nil {
		return nil, err
	}
	return program.UnlockedPhases(), nil
}

// Swap exchanges two slots' template assignments within one phase. Both
// permutation entries land in a single override write; if either slot is the
// athlete's current day and a focus is set, the focus is cleared in the same
// write so the swapped schedule takes effect immediately.
func (s *schedulerService) Swap(ctx context.Context, userID primitive.ObjectID, slotA, slotB domain.Slot) error {
	if slotA == slotB {
		return ErrValidationFailed
	}
	if !slotA.Phase.Valid() || !slotB.Phase.Valid() {
		return ErrValidationFailed
	}
	if slotA.Phase != slotB.Phase {
		return ErrSwapRejected
	}
	program, err := s.GetProgram(ctx, userID)
	if err != nil {
		return err
	}
	if !program.PhaseUnlocked(slotA.Phase) {
		return ErrPhaseLocked
	}
	override, err := s.loadOverride(ctx, userID)
	if err != nil {
		return err
	}
	completed, err := s.completedTemplates(ctx, userID)
	if err != nil {
		return err
	}
	grid, err := s.loadGrid(ctx, program, slotA.Phase)
	if err != nil {
		return err
	}

	resolvedA, err := s.resolveSlot(ctx, grid, override, completed, slotA)
	if err != nil {
		return err
	}
	resolvedB, err := s.resolveSlot(ctx, grid, override, completed, slotB)
	if err != nil {
		return err
	}
	if resolvedA.Completed || resolvedB.Completed {
		return ErrSwapRejected
	}

	set, remove := swapEntries(grid, slotA, resolvedB.TemplateID, slotB, resolvedA.TemplateID)

	current := program.CurrentSlot()
	clearFocus := override != nil && override.TodayFocusTemplateID != nil &&
		(slotA == current || slotB == current)

	return s.overrideRepo.ApplySwap(ctx, userID, slotA.Phase, set, remove, clearFocus)
}

// SetFocusWithSwap pins templateID as the workout for right now. With
// autoSwap it also exchanges the template's current slot with the first
// incomplete slot of the athlete's current week, folded into the same
// override write so a concurrent read never sees one half applied.
func (s *schedulerService) SetFocusWithSwap(ctx context.Context, userID, templateID primitive.ObjectID, autoSwap bool) error {
	if templateID == primitive.NilObjectID {
		return ErrValidationFailed
	}
	program, err := s.GetProgram(ctx, userID)
	if err != nil {
		return err
	}
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	if template.SportCategoryID != program.SportCategoryID || template.SkillLevel != program.SkillLevel {
		return ErrValidationFailed
	}
	if !program.PhaseUnlocked(template.Phase) {
		return ErrPhaseLocked
	}
	completed, err := s.completedTemplates(ctx, userID)
	if err != nil {
		return err
	}
	if completed[templateID] {
		return ErrFocusTargetCompleted
	}

	if !autoSwap {
		return s.overrideRepo.SetFocus(ctx, userID, templateID, template.Phase, nil, nil)
	}
	if template.Phase != program.Phase {
		return ErrSwapRejected
	}

	override, err := s.loadOverride(ctx, userID)
	if err != nil {
		return err
	}
	grid, err := s.loadGrid(ctx, program, program.Phase)
	if err != nil {
		return err
	}

	templateSlot, ok := s.slotResolvingTo(grid, override, templateID)
	target, found := s.firstIncompleteSlotOfWeek(grid, override, completed, program.Week)

	// Nothing to exchange: the template has no live slot, the week has no
	// incomplete slot left, or the template already sits there.
	if !ok || !found || target == templateSlot {
		return s.overrideRepo.SetFocus(ctx, userID, templateID, template.Phase, nil, nil)
	}

	targetResolved, err := s.resolveSlot(ctx, grid, override, completed, target)
	if err != nil {
		return err
	}
	set, remove := swapEntries(grid, target, templateID, templateSlot, targetResolved.TemplateID)
	return s.overrideRepo.SetFocus(ctx, userID, templateID, program.Phase, set, remove)
}

// ClearFocus removes the today focus; natural slot resolution resumes.
func (s *schedulerService) ClearFocus(ctx context.Context, userID primitive.ObjectID) error {
	return s.overrideRepo.ClearFocus(ctx, userID)
}

// ResetPhaseToDefault drops the phase's whole permutation, reverting to the
// canonical grid. The today focus is left untouched.
func (s *schedulerService) ResetPhaseToDefault(ctx context.Context, userID primitive.ObjectID, phase domain.Phase) error {
	if !phase.Valid() {
		return ErrValidationFailed
	}
	return s.overrideRepo.ResetPhase(ctx, userID, phase)
}

// AdvancePosition moves the day counters to the next slot of the current
// phase, skipping designated rest days. When the grid is exhausted it clamps
// in place and, once the completion policy is met, mints a reassessment
// ticket; the next phase stays locked until the reassessment flow confirms.
func (s *schedulerService) AdvancePosition(ctx context.Context, userID primitive.ObjectID) (*AdvanceResult, error) {
	program, err := s.GetProgram(ctx, userID)
	if err != nil {
		return nil, err
	}
	override, err := s.loadOverride(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.completedTemplates(ctx, userID)
	if err != nil {
		return nil, err
	}
	grid, err := s.loadGrid(ctx, program, program.Phase)
	if err != nil {
		return nil, err
	}
	if len(grid.ordered) == 0 {
		return nil, ErrSlotOutOfRange
	}

	if next, ok := grid.nextWorkableSlot(program.CurrentSlot()); ok {
		if err := s.programRepo.UpdatePosition(ctx, userID, next.Week, next.Day, nil); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrProgramNotFound
			}
			return nil, err
		}
		return &AdvanceResult{Phase: program.Phase, Week: next.Week, Day: next.Day}, nil
	}

	// Grid exhausted: position clamps at the last slot.
	rate := s.completionRate(ctx, grid, override, completed)
	result := &AdvanceResult{
		Phase:          program.Phase,
		Week:           program.Week,
		Day:            program.Day,
		CompletionRate: rate,
	}
	if rate < s.completionThreshold {
		return result, nil
	}

	next, ok := program.Phase.Next()
	if !ok {
		result.ProgramComplete = true
		return result, nil
	}

	ticket := program.PendingReassessment
	if ticket == nil {
		ticket = &domain.ReassessmentTicket{
			Token:          uuid.NewString(),
			CompletedPhase: program.Phase,
			NextPhase:      next,
			CompletionRate: rate,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.programRepo.UpdatePosition(ctx, userID, program.Week, program.Day, ticket); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrProgramNotFound
			}
			return nil, err
		}
	}

	result.TriggerReassessment = true
	result.CompletedPhase = ticket.CompletedPhase
	result.NextPhase = ticket.NextPhase
	result.ReassessmentToken = ticket.Token
	return result, nil
}

// CompleteReassessment consumes the pending ticket: it stamps the next
// phase's unlock time (write-once) and moves the athlete to (next, 1, 1).
// Unlocks are monotonic; nothing here can re-lock a phase.
func (s *schedulerService) CompleteReassessment(ctx context.Context, userID primitive.ObjectID, token string) (*domain.ProgramState, error) {
	if token == "" {
		return nil, ErrValidationFailed
	}
	program, err := s.GetProgram(ctx, userID)
	if err != nil {
		return nil, err
	}
	ticket := program.PendingReassessment
	if ticket == nil {
		return nil, ErrNoReassessmentPending
	}
	if ticket.Token != token {
		return nil, ErrReassessmentTokenMismatch
	}

	err = s.programRepo.ApplyReassessment(ctx, userID, token, ticket.NextPhase, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The ticket was spent between our read and this write.
			return nil, ErrReassessmentTokenMismatch
		}
		return nil, err
	}
	return s.GetProgram(ctx, userID)
}

// --- internals ---

// phaseGrid is one loaded phase column of the canonical template grid.
type phaseGrid struct {
	ordered []domain.WorkoutTemplate // (week, day) ascending
	bySlot  map[string]*domain.WorkoutTemplate
	byID    map[primitive.ObjectID]*domain.WorkoutTemplate
}

func (g *phaseGrid) canonical(slot domain.Slot) (*domain.WorkoutTemplate, bool) {
	t, ok := g.bySlot[slot.Key()]
	return t, ok
}

// nextWorkableSlot returns the first non-rest slot after current, or false
// when the phase is exhausted.
func (g *phaseGrid) nextWorkableSlot(current domain.Slot) (domain.Slot, bool) {
	passed := false
	for i := range g.ordered {
		t := &g.ordered[i]
		if !passed {
			if t.Week == current.Week && t.Day == current.Day {
				passed = true
			}
			continue
		}
		if t.RestDay {
			continue
		}
		return t.Slot(), true
	}
	return domain.Slot{}, false
}

func (s *schedulerService) loadGrid(ctx context.Context, program *domain.ProgramState, phase domain.Phase) (*phaseGrid, error) {
	templates, err := s.templateRepo.ListPhase(ctx, program.SportCategoryID, phase, program.SkillLevel)
	if err != nil {
		return nil, err
	}
	grid := &phaseGrid{
		ordered: templates,
		bySlot:  make(map[string]*domain.WorkoutTemplate, len(templates)),
		byID:    make(map[primitive.ObjectID]*domain.WorkoutTemplate, len(templates)),
	}
	for i := range templates {
		t := &templates[i]
		grid.bySlot[t.Slot().Key()] = t
		grid.byID[t.ID] = t
	}
	return grid, nil
}

// loadOverride returns the athlete's override document, or nil when none
// exists yet (no swap or focus action has ever run).
func (s *schedulerService) loadOverride(ctx context.Context, userID primitive.ObjectID) (*domain.ScheduleOverride, error) {
	override, err := s.overrideRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return override, nil
}

func (s *schedulerService) completedTemplates(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	ids, err := s.sessionRepo.ListCompletedTemplateIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		completed[id] = true
	}
	return completed, nil
}

// resolveSlot resolves one slot against a loaded grid and override.
func (s *schedulerService) resolveSlot(ctx context.Context, grid *phaseGrid, override *domain.ScheduleOverride, completed map[primitive.ObjectID]bool, slot domain.Slot) (*ResolvedWorkout, error) {
	canonical, ok := grid.canonical(slot)
	if !ok {
		return nil, ErrSlotOutOfRange
	}

	template := canonical
	swapped := false
	if id, isSwapped := override.SwappedTemplate(slot); isSwapped && id != canonical.ID {
		swapped = true
		if t, inGrid := grid.byID[id]; inGrid {
			template = t
		} else {
			t, err := s.templateRepo.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, ErrTemplateNotFound
				}
				return nil, err
			}
			template = t
		}
	}

	return &ResolvedWorkout{
		Slot:       slot,
		TemplateID: template.ID,
		Template:   template,
		RestDay:    template.RestDay,
		Swapped:    swapped,
		Completed:  completed[template.ID],
	}, nil
}

// slotResolvingTo finds the slot whose current assignment is templateID.
func (s *schedulerService) slotResolvingTo(grid *phaseGrid, override *domain.ScheduleOverride, templateID primitive.ObjectID) (domain.Slot, bool) {
	for i := range grid.ordered {
		slot := grid.ordered[i].Slot()
		id := grid.ordered[i].ID
		if swappedID, ok := override.SwappedTemplate(slot); ok {
			id = swappedID
		}
		if id == templateID {
			return slot, true
		}
	}
	return domain.Slot{}, false
}

// firstIncompleteSlotOfWeek walks the week's slots day-ascending and returns
// the first non-rest slot whose resolved template has no completed session.
func (s *schedulerService) firstIncompleteSlotOfWeek(grid *phaseGrid, override *domain.ScheduleOverride, completed map[primitive.ObjectID]bool, week int) (domain.Slot, bool) {
	for i := range grid.ordered {
		t := &grid.ordered[i]
		if t.Week != week || t.RestDay {
			continue
		}
		slot := t.Slot()
		id := t.ID
		if swappedID, ok := override.SwappedTemplate(slot); ok {
			id = swappedID
		}
		if !completed[id] {
			return slot, true
		}
	}
	return domain.Slot{}, false
}

// completionRate is completed required days over total required days;
// rest days are not required.
func (s *schedulerService) completionRate(ctx context.Context, grid *phaseGrid, override *domain.ScheduleOverride, completed map[primitive.ObjectID]bool) float64 {
	total := 0
	done := 0
	for i := range grid.ordered {
		t := &grid.ordered[i]
		if t.RestDay {
			continue
		}
		total++
		id := t.ID
		if swappedID, ok := override.SwappedTemplate(t.Slot()); ok {
			id = swappedID
		}
		if completed[id] {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// swapEntries computes the override-map writes that exchange two slots'
// assignments. Entries matching the canonical grid are removed instead of
// written, so swapping a pair twice leaves the document as it started.
func swapEntries(grid *phaseGrid, slotA domain.Slot, newA primitive.ObjectID, slotB domain.Slot, newB primitive.ObjectID) (set map[string]primitive.ObjectID, remove []string) {
	set = make(map[string]primitive.ObjectID, 2)
	assign := func(slot domain.Slot, id primitive.ObjectID) {
		if canonical, ok := grid.canonical(slot); ok && canonical.ID == id {
			remove = append(remove, slot.Key())
			return
		}
		set[slot.Key()] = id
	}
	assign(slotA, newA)
	assign(slotB, newB)
	return set, remove
}
