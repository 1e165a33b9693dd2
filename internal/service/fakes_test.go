package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. They mirror the Mongo implementations' contract:
// reads return fresh copies, session mutations only touch in-progress
// documents, and uniqueness rules surface as ErrConflict.

// --- templates ---

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[primitive.ObjectID]*domain.WorkoutTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[primitive.ObjectID]*domain.WorkoutTemplate)}
}

func cloneTemplate(t *domain.WorkoutTemplate) *domain.WorkoutTemplate {
	out := *t
	out.Exercises = append([]domain.PrescribedExercise(nil), t.Exercises...)
	out.NormalizeSections()
	return &out
}

func (f *fakeTemplateRepo) add(t *domain.WorkoutTemplate) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == primitive.NilObjectID {
		t.ID = primitive.NewObjectID()
	}
	f.templates[t.ID] = t
	return t.ID
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTemplate(t), nil
}

func (f *fakeTemplateRepo) GetBySlot(ctx context.Context, categoryID primitive.ObjectID, phase domain.Phase, skill domain.SkillLevel, week, day int) (*domain.WorkoutTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.templates {
		if t.SportCategoryID == categoryID && t.Phase == phase && t.SkillLevel == skill && t.Week == week && t.Day == day {
			return cloneTemplate(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTemplateRepo) ListPhase(ctx context.Context, categoryID primitive.ObjectID, phase domain.Phase, skill domain.SkillLevel) ([]domain.WorkoutTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WorkoutTemplate
	for _, t := range f.templates {
		if t.SportCategoryID == categoryID && t.Phase == phase && t.SkillLevel == skill {
			out = append(out, *cloneTemplate(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Week != out[j].Week {
			return out[i].Week < out[j].Week
		}
		return out[i].Day < out[j].Day
	})
	return out, nil
}

func (f *fakeTemplateRepo) Upsert(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.templates {
		if t.SportCategoryID == template.SportCategoryID && t.Phase == template.Phase &&
			t.SkillLevel == template.SkillLevel && t.Week == template.Week && t.Day == template.Day {
			template.ID = id
			f.templates[id] = cloneTemplate(template)
			return id, nil
		}
	}
	if template.ID == primitive.NilObjectID {
		template.ID = primitive.NewObjectID()
	}
	f.templates[template.ID] = cloneTemplate(template)
	return template.ID, nil
}

// --- programs ---

type fakeProgramRepo struct {
	mu       sync.Mutex
	programs map[primitive.ObjectID]*domain.ProgramState // keyed by user id
}

func newFakeProgramRepo() *fakeProgramRepo {
	return &fakeProgramRepo{programs: make(map[primitive.ObjectID]*domain.ProgramState)}
}

func cloneProgram(p *domain.ProgramState) *domain.ProgramState {
	out := *p
	if p.PendingReassessment != nil {
		ticket := *p.PendingReassessment
		out.PendingReassessment = &ticket
	}
	return &out
}

func (f *fakeProgramRepo) Create(ctx context.Context, program *domain.ProgramState) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.programs[program.UserID]; exists {
		return primitive.NilObjectID, repository.ErrConflict
	}
	if program.ID == primitive.NilObjectID {
		program.ID = primitive.NewObjectID()
	}
	program.CreatedAt = time.Now().UTC()
	program.UpdatedAt = program.CreatedAt
	f.programs[program.UserID] = cloneProgram(program)
	return program.ID, nil
}

func (f *fakeProgramRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.ProgramState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.programs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProgram(p), nil
}

func (f *fakeProgramRepo) UpdatePosition(ctx context.Context, userID primitive.ObjectID, week, day int, ticket *domain.ReassessmentTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.programs[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Week = week
	p.Day = day
	if ticket != nil {
		t := *ticket
		p.PendingReassessment = &t
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeProgramRepo) ApplyReassessment(ctx context.Context, userID primitive.ObjectID, token string, next domain.Phase, unlockedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.programs[userID]
	if !ok || p.PendingReassessment == nil || p.PendingReassessment.Token != token {
		return repository.ErrNotFound
	}
	at := unlockedAt
	switch next {
	case domain.PhaseSPP:
		p.SPPUnlockedAt = &at
	case domain.PhaseSSP:
		p.SSPUnlockedAt = &at
	}
	p.Phase = next
	p.Week = 1
	p.Day = 1
	p.PendingReassessment = nil
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// --- overrides ---

type fakeOverrideRepo struct {
	mu        sync.Mutex
	overrides map[primitive.ObjectID]*domain.ScheduleOverride // keyed by user id
}

func newFakeOverrideRepo() *fakeOverrideRepo {
	return &fakeOverrideRepo{overrides: make(map[primitive.ObjectID]*domain.ScheduleOverride)}
}

func cloneOverride(o *domain.ScheduleOverride) *domain.ScheduleOverride {
	out := *o
	out.SlotSwaps = make(map[domain.Phase]map[string]primitive.ObjectID, len(o.SlotSwaps))
	for phase, entries := range o.SlotSwaps {
		m := make(map[string]primitive.ObjectID, len(entries))
		for k, v := range entries {
			m[k] = v
		}
		out.SlotSwaps[phase] = m
	}
	if o.TodayFocusTemplateID != nil {
		id := *o.TodayFocusTemplateID
		out.TodayFocusTemplateID = &id
	}
	return &out
}

// upsert returns the stored document, creating it lazily like the Mongo
// implementation does on first write.
func (f *fakeOverrideRepo) upsert(userID primitive.ObjectID) *domain.ScheduleOverride {
	o, ok := f.overrides[userID]
	if !ok {
		o = &domain.ScheduleOverride{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			SlotSwaps: make(map[domain.Phase]map[string]primitive.ObjectID),
			CreatedAt: time.Now().UTC(),
		}
		f.overrides[userID] = o
	}
	return o
}

func (f *fakeOverrideRepo) applyEntries(o *domain.ScheduleOverride, phase domain.Phase, set map[string]primitive.ObjectID, remove []string) {
	if len(set) == 0 && len(remove) == 0 {
		return
	}
	entries := o.SlotSwaps[phase]
	if entries == nil {
		entries = make(map[string]primitive.ObjectID)
		o.SlotSwaps[phase] = entries
	}
	for k, v := range set {
		entries[k] = v
	}
	for _, k := range remove {
		delete(entries, k)
	}
}

func (f *fakeOverrideRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.ScheduleOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.overrides[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOverride(o), nil
}

func (f *fakeOverrideRepo) ApplySwap(ctx context.Context, userID primitive.ObjectID, phase domain.Phase, set map[string]primitive.ObjectID, remove []string, clearFocus bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.upsert(userID)
	f.applyEntries(o, phase, set, remove)
	if clearFocus {
		o.TodayFocusTemplateID = nil
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeOverrideRepo) SetFocus(ctx context.Context, userID, templateID primitive.ObjectID, phase domain.Phase, set map[string]primitive.ObjectID, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.upsert(userID)
	id := templateID
	o.TodayFocusTemplateID = &id
	f.applyEntries(o, phase, set, remove)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeOverrideRepo) ClearFocus(ctx context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.overrides[userID]
	if !ok {
		return nil
	}
	o.TodayFocusTemplateID = nil
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeOverrideRepo) ResetPhase(ctx context.Context, userID primitive.ObjectID, phase domain.Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.overrides[userID]
	if !ok {
		return nil
	}
	delete(o.SlotSwaps, phase)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// --- sessions ---

type fakeSessionRepo struct {
	mu          sync.Mutex
	sessions    map[primitive.ObjectID]*domain.WorkoutSession
	updateCalls int
	failUpdates int   // fail this many upcoming UpdateProgress calls
	updateErr   error // error injected for those failures
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[primitive.ObjectID]*domain.WorkoutSession)}
}

func cloneExercises(exercises []domain.ExerciseCompletion) []domain.ExerciseCompletion {
	out := make([]domain.ExerciseCompletion, len(exercises))
	for i, e := range exercises {
		e.Sets = append([]domain.SetRecord(nil), e.Sets...)
		out[i] = e
	}
	return out
}

func cloneSession(s *domain.WorkoutSession) *domain.WorkoutSession {
	out := *s
	out.Exercises = cloneExercises(s.Exercises)
	out.ExerciseOrder = append([]int(nil), s.ExerciseOrder...)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		out.CompletedAt = &at
	}
	if s.TargetIntensity != nil {
		v := *s.TargetIntensity
		out.TargetIntensity = &v
	}
	return &out
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *domain.WorkoutSession) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == session.UserID && s.TemplateID == session.TemplateID && s.Status == domain.SessionInProgress {
			return primitive.NilObjectID, repository.ErrConflict
		}
	}
	if session.ID == primitive.NilObjectID {
		session.ID = primitive.NewObjectID()
	}
	session.Status = domain.SessionInProgress
	session.StartedAt = time.Now().UTC()
	session.UpdatedAt = session.StartedAt
	f.sessions[session.ID] = cloneSession(session)
	return session.ID, nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(s), nil
}

func (f *fakeSessionRepo) GetInProgressByUser(ctx context.Context, userID primitive.ObjectID) (*domain.WorkoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.WorkoutSession
	for _, s := range f.sessions {
		if s.UserID != userID || s.Status != domain.SessionInProgress {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return cloneSession(latest), nil
}

func (f *fakeSessionRepo) GetInProgressByTemplate(ctx context.Context, userID, templateID primitive.ObjectID) (*domain.WorkoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.TemplateID == templateID && s.Status == domain.SessionInProgress {
			return cloneSession(s), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessionRepo) UpdateProgress(ctx context.Context, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, exerciseOrder []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdates > 0 {
		f.failUpdates--
		return f.updateErr
	}
	s, ok := f.sessions[sessionID]
	if !ok || s.Status != domain.SessionInProgress {
		return repository.ErrNotFound
	}
	s.Exercises = cloneExercises(exercises)
	s.ExerciseOrder = append([]int(nil), exerciseOrder...)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeSessionRepo) Finalize(ctx context.Context, sessionID primitive.ObjectID, status domain.SessionStatus, completedAt *time.Time, exercises []domain.ExerciseCompletion, exerciseOrder []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.Status != domain.SessionInProgress {
		return repository.ErrNotFound
	}
	s.Status = status
	if completedAt != nil {
		at := *completedAt
		s.CompletedAt = &at
	}
	s.Exercises = cloneExercises(exercises)
	s.ExerciseOrder = append([]int(nil), exerciseOrder...)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeSessionRepo) ListCompletedTemplateIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[primitive.ObjectID]bool)
	var out []primitive.ObjectID
	for _, s := range f.sessions {
		if s.UserID == userID && s.Status == domain.SessionCompleted && !seen[s.TemplateID] {
			seen[s.TemplateID] = true
			out = append(out, s.TemplateID)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateCalls
}

func (f *fakeSessionRepo) failNext(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failUpdates = n
	f.updateErr = err
}

// --- test environment ---

const testDebounce = 25 * time.Millisecond

type testEnv struct {
	templates *fakeTemplateRepo
	programs  *fakeProgramRepo
	overrides *fakeOverrideRepo
	sessions  *fakeSessionRepo

	autosaver  *ProgressAutosaver
	scheduler  SchedulerService
	sessionSvc SessionService

	userID     primitive.ObjectID
	categoryID primitive.ObjectID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	templates := newFakeTemplateRepo()
	programs := newFakeProgramRepo()
	overrides := newFakeOverrideRepo()
	sessions := newFakeSessionRepo()
	autosaver := NewProgressAutosaver(sessions, testDebounce)
	scheduler := NewSchedulerService(programs, templates, overrides, sessions, 0.85)
	return &testEnv{
		templates:  templates,
		programs:   programs,
		overrides:  overrides,
		sessions:   sessions,
		autosaver:  autosaver,
		scheduler:  scheduler,
		sessionSvc: NewSessionService(sessions, templates, programs, scheduler, autosaver),
		userID:     primitive.NewObjectID(),
		categoryID: primitive.NewObjectID(),
	}
}

// seedGrid creates one phase column of weeks x daysPerWeek templates with a
// single main exercise each. restDays marks slot keys ("week-day") to seed as
// rest days. Returns slot key -> template id.
func (e *testEnv) seedGrid(phase domain.Phase, weeks, daysPerWeek int, restDays map[string]bool) map[string]primitive.ObjectID {
	ids := make(map[string]primitive.ObjectID)
	weight := 100.0
	for w := 1; w <= weeks; w++ {
		for d := 1; d <= daysPerWeek; d++ {
			slot := domain.Slot{Phase: phase, Week: w, Day: d}
			tmpl := &domain.WorkoutTemplate{
				SportCategoryID: e.categoryID,
				Phase:           phase,
				SkillLevel:      domain.SkillBeginner,
				Week:            w,
				Day:             d,
				Name:            fmt.Sprintf("%s week %d day %d", phase, w, d),
				RestDay:         restDays[slot.Key()],
			}
			if !tmpl.RestDay {
				tmpl.Exercises = []domain.PrescribedExercise{{
					ExerciseID:   primitive.NewObjectID(),
					Name:         "Back Squat",
					Sets:         3,
					Reps:         "8-10",
					RestSeconds:  90,
					Section:      domain.SectionMain,
					TargetWeight: &weight,
				}}
			}
			ids[slot.Key()] = e.templates.add(tmpl)
		}
	}
	return ids
}

func (e *testEnv) startProgram(t *testing.T) *domain.ProgramState {
	t.Helper()
	program, err := e.scheduler.InitializeProgram(context.Background(), e.userID, e.categoryID, domain.SkillBeginner, domain.AgeGroupAdult)
	if err != nil {
		t.Fatalf("InitializeProgram: %v", err)
	}
	return program
}

// completeTemplate records a completed session for the template, the way a
// finished workout would.
func (e *testEnv) completeTemplate(templateID primitive.ObjectID) {
	e.sessions.mu.Lock()
	defer e.sessions.mu.Unlock()
	id := primitive.NewObjectID()
	now := time.Now().UTC()
	e.sessions.sessions[id] = &domain.WorkoutSession{
		ID:          id,
		UserID:      e.userID,
		TemplateID:  templateID,
		Status:      domain.SessionCompleted,
		StartedAt:   now,
		CompletedAt: &now,
	}
}

// unlockPhase stamps the unlock timestamp directly, standing in for a
// finished reassessment.
func (e *testEnv) unlockPhase(t *testing.T, phase domain.Phase) {
	t.Helper()
	e.programs.mu.Lock()
	defer e.programs.mu.Unlock()
	p, ok := e.programs.programs[e.userID]
	if !ok {
		t.Fatal("no program to unlock a phase on")
	}
	now := time.Now().UTC()
	switch phase {
	case domain.PhaseSPP:
		p.SPPUnlockedAt = &now
	case domain.PhaseSSP:
		p.SSPUnlockedAt = &now
	}
}

// movePosition jumps the athlete's counters, standing in for prior
// advancement.
func (e *testEnv) movePosition(t *testing.T, phase domain.Phase, week, day int) {
	t.Helper()
	e.programs.mu.Lock()
	defer e.programs.mu.Unlock()
	p, ok := e.programs.programs[e.userID]
	if !ok {
		t.Fatal("no program to move")
	}
	p.Phase = phase
	p.Week = week
	p.Day = day
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
