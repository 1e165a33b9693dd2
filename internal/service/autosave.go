package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultAutosaveDebounce = 2 * time.Second
	autosaveWriteTimeout    = 5 * time.Second
)

// ProgressAutosaver batches a burst of progress edits into one write per
// debounce window, latest payload wins. A failed write keeps its payload for
// one retry on the next tick and is dropped after that; the session stays
// recoverable from its last persisted state. Finalization folds pending
// state into the terminal write and then disables the session for good.
type ProgressAutosaver struct {
	repo     repository.SessionRepository
	debounce time.Duration

	mu       sync.Mutex
	pending  map[primitive.ObjectID]*pendingSave
	disabled map[primitive.ObjectID]struct{}
}

type pendingSave struct {
	exercises []domain.ExerciseCompletion
	order     []int
	gen       uint64 // bumped on every Queue so an in-flight write can tell its payload went stale
	retried   bool
	timer     *time.Timer
}

// NewProgressAutosaver creates an autosaver writing through the given
// repository. debounce <= 0 falls back to the default window.
func NewProgressAutosaver(repo repository.SessionRepository, debounce time.Duration) *ProgressAutosaver {
	if debounce <= 0 {
		debounce = defaultAutosaveDebounce
	}
	return &ProgressAutosaver{
		repo:     repo,
		debounce: debounce,
		pending:  make(map[primitive.ObjectID]*pendingSave),
		disabled: make(map[primitive.ObjectID]struct{}),
	}
}

// cloneCompletions deep-copies a completion array. Queued payloads must not
// share backing arrays with the caller's working state, or a later edit
// would race the write already in flight.
func cloneCompletions(exercises []domain.ExerciseCompletion) []domain.ExerciseCompletion {
	out := make([]domain.ExerciseCompletion, len(exercises))
	for i, e := range exercises {
		e.Sets = append([]domain.SetRecord(nil), e.Sets...)
		out[i] = e
	}
	return out
}

// Queue schedules the payload for the session's next debounce tick,
// replacing any payload already waiting. Queues for disabled sessions are
// dropped silently.
func (a *ProgressAutosaver) Queue(sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, order []int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, off := a.disabled[sessionID]; off {
		return
	}
	exercises = cloneCompletions(exercises)
	order = append([]int(nil), order...)
	if p, ok := a.pending[sessionID]; ok {
		p.exercises = exercises
		p.order = order
		p.gen++
		p.retried = false
		return
	}
	p := &pendingSave{exercises: exercises, order: order, gen: 1}
	p.timer = time.AfterFunc(a.debounce, func() { a.fire(sessionID) })
	a.pending[sessionID] = p
}

// Pending returns a copy of the payload queued for the session, if any.
// Readers overlay it on the stored document so edits made inside one
// debounce window compose instead of losing each other.
func (a *ProgressAutosaver) Pending(sessionID primitive.ObjectID) ([]domain.ExerciseCompletion, []int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pending[sessionID]
	if !ok {
		return nil, nil, false
	}
	return cloneCompletions(p.exercises), append([]int(nil), p.order...), true
}

// Flush writes any pending payload out synchronously. A session that was
// finalized elsewhere is treated as flushed.
func (a *ProgressAutosaver) Flush(ctx context.Context, sessionID primitive.ObjectID) error {
	a.mu.Lock()
	p, ok := a.pending[sessionID]
	if !ok {
		a.mu.Unlock()
		return nil
	}
	p.timer.Stop()
	exercises, order := p.exercises, p.order
	delete(a.pending, sessionID)
	a.mu.Unlock()

	err := a.repo.UpdateProgress(ctx, sessionID, exercises, order)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// FlushAll synchronously drains every pending payload. Called on server
// shutdown; write failures are logged and do not stop the drain.
func (a *ProgressAutosaver) FlushAll(ctx context.Context) {
	a.mu.Lock()
	ids := make([]primitive.ObjectID, 0, len(a.pending))
	for id := range a.pending {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		if err := a.Flush(ctx, id); err != nil {
			log.Printf("WARN: flush on shutdown failed for session %s: %v", id.Hex(), err)
		}
	}
}

// Disable drops anything pending and tombstones the session so later queues
// are ignored. Called on terminal transitions; the repository's status
// filter blocks whatever might still slip past the tombstone.
func (a *ProgressAutosaver) Disable(sessionID primitive.ObjectID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.pending[sessionID]; ok {
		p.timer.Stop()
		delete(a.pending, sessionID)
	}
	if _, ok := a.disabled[sessionID]; ok {
		return
	}
	a.disabled[sessionID] = struct{}{}

	// The tombstone only needs to outlive in-flight bursts.
	time.AfterFunc(4*a.debounce, func() {
		a.mu.Lock()
		delete(a.disabled, sessionID)
		a.mu.Unlock()
	})
}

// fire runs on the debounce timer: write the captured payload, then decide
// between done, retry-once, and re-arm for a payload that changed mid-write.
func (a *ProgressAutosaver) fire(sessionID primitive.ObjectID) {
	a.mu.Lock()
	p, ok := a.pending[sessionID]
	if !ok {
		a.mu.Unlock()
		return
	}
	gen, exercises, order, retried := p.gen, p.exercises, p.order, p.retried
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), autosaveWriteTimeout)
	err := a.repo.UpdateProgress(ctx, sessionID, exercises, order)
	cancel()

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok = a.pending[sessionID]
	if !ok {
		return // flushed or disabled while writing
	}
	if p.gen != gen {
		// A newer payload arrived mid-write; give it its own tick.
		p.retried = false
		p.timer = time.AfterFunc(a.debounce, func() { a.fire(sessionID) })
		return
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Finalized under us; nothing left to save.
			delete(a.pending, sessionID)
			return
		}
		if !retried {
			p.retried = true
			p.timer = time.AfterFunc(a.debounce, func() { a.fire(sessionID) })
			return
		}
		log.Printf("WARN: dropping auto-save for session %s after retry: %v", sessionID.Hex(), err)
	}
	delete(a.pending, sessionID)
}
