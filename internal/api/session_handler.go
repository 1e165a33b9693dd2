// internal/api/session_handler.go
package api

import (
	"errors"
	"net/http"
	"time"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SessionHandler struct {
	sessionService service.SessionService
}

func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// --- DTOs ---

type StartSessionRequest struct {
	TemplateID string `json:"templateId" binding:"required"`
}

type SetRecordPayload struct {
	Completed       bool     `json:"completed"`
	Skipped         bool     `json:"skipped"`
	RepsCompleted   *int     `json:"repsCompleted,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	RPE             *float64 `json:"rpe,omitempty"`
}

// ExerciseCompletionPayload carries the client-owned completion state for one
// exercise. Targets are server-owned and never read from the payload.
type ExerciseCompletionPayload struct {
	ExerciseID string             `json:"exerciseId" binding:"required"`
	Skipped    bool               `json:"skipped"`
	Notes      string             `json:"notes,omitempty"`
	Sets       []SetRecordPayload `json:"sets"`
}

type SetUpdatePayload struct {
	ExerciseIndex int              `json:"exerciseIndex" binding:"min=0"`
	SetIndex      int              `json:"setIndex" binding:"min=0"`
	Record        SetRecordPayload `json:"record"`
}

// UpdateSessionProgressRequest accepts either a single-set update or the full
// exercise state, matching the two save granularities of the workout screen.
type UpdateSessionProgressRequest struct {
	Set           *SetUpdatePayload           `json:"set,omitempty"`
	Exercises     []ExerciseCompletionPayload `json:"exercises,omitempty"`
	ExerciseOrder []int                       `json:"exerciseOrder,omitempty"`
}

// FinalizeSessionRequest optionally carries a last progress payload to fold
// into the terminal write; with no exercises the session freezes as stored.
type FinalizeSessionRequest struct {
	Exercises     []ExerciseCompletionPayload `json:"exercises,omitempty"`
	ExerciseOrder []int                       `json:"exerciseOrder,omitempty"`
}

type SetRecordResponse struct {
	Completed       bool     `json:"completed"`
	Skipped         bool     `json:"skipped"`
	RepsCompleted   *int     `json:"repsCompleted,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	RPE             *float64 `json:"rpe,omitempty"`
}

type ExerciseCompletionResponse struct {
	ExerciseID   string              `json:"exerciseId"`
	Name         string              `json:"name"`
	TargetSets   int                 `json:"targetSets"`
	TargetReps   string              `json:"targetReps"`
	TargetWeight *float64            `json:"targetWeight,omitempty"`
	Completed    bool                `json:"completed"`
	Skipped      bool                `json:"skipped"`
	Sets         []SetRecordResponse `json:"sets"`
	Notes        string              `json:"notes,omitempty"`
}

type SessionResponse struct {
	ID            string                       `json:"id"`
	UserID        string                       `json:"userId"`
	TemplateID    string                       `json:"templateId"`
	UserProgramID string                       `json:"userProgramId"`
	Status        string                       `json:"status"`
	StartedAt     time.Time                    `json:"startedAt"`
	CompletedAt   *time.Time                   `json:"completedAt,omitempty"`
	Exercises     []ExerciseCompletionResponse `json:"exercises"`
	ExerciseOrder []int                        `json:"exerciseOrder"`
	// ActiveIndex is recomputed from the completion state on every read; the
	// resume screen scrolls straight to it.
	ActiveIndex     int       `json:"activeIndex"`
	TargetIntensity *float64  `json:"targetIntensity,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type AdvanceResponse struct {
	Phase               string  `json:"phase"`
	Week                int     `json:"week"`
	Day                 int     `json:"day"`
	TriggerReassessment bool    `json:"triggerReassessment"`
	CompletedPhase      string  `json:"completedPhase,omitempty"`
	NextPhase           string  `json:"nextPhase,omitempty"`
	ReassessmentToken   string  `json:"reassessmentToken,omitempty"`
	CompletionRate      float64 `json:"completionRate"`
	ProgramComplete     bool    `json:"programComplete"`
}

// CompleteSessionResponse pairs the frozen session with what the completion
// did to the program position.
type CompleteSessionResponse struct {
	Session SessionResponse `json:"session"`
	Advance AdvanceResponse `json:"advance"`
}

func MapSessionToResponse(s *domain.WorkoutSession) SessionResponse {
	exercises := make([]ExerciseCompletionResponse, 0, len(s.Exercises))
	for _, e := range s.Exercises {
		sets := make([]SetRecordResponse, 0, len(e.Sets))
		for _, set := range e.Sets {
			sets = append(sets, SetRecordResponse{
				Completed:       set.Completed,
				Skipped:         set.Skipped,
				RepsCompleted:   set.RepsCompleted,
				Weight:          set.Weight,
				DurationSeconds: set.DurationSeconds,
				RPE:             set.RPE,
			})
		}
		exercises = append(exercises, ExerciseCompletionResponse{
			ExerciseID:   e.ExerciseID.Hex(),
			Name:         e.Name,
			TargetSets:   e.TargetSets,
			TargetReps:   e.TargetReps,
			TargetWeight: e.TargetWeight,
			Completed:    e.Completed,
			Skipped:      e.Skipped,
			Sets:         sets,
			Notes:        e.Notes,
		})
	}
	return SessionResponse{
		ID:              s.ID.Hex(),
		UserID:          s.UserID.Hex(),
		TemplateID:      s.TemplateID.Hex(),
		UserProgramID:   s.UserProgramID.Hex(),
		Status:          string(s.Status),
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
		Exercises:       exercises,
		ExerciseOrder:   s.ExerciseOrder,
		ActiveIndex:     s.ActiveIndex(),
		TargetIntensity: s.TargetIntensity,
		UpdatedAt:       s.UpdatedAt,
	}
}

func MapAdvanceToResponse(a *service.AdvanceResult) AdvanceResponse {
	return AdvanceResponse{
		Phase:               string(a.Phase),
		Week:                a.Week,
		Day:                 a.Day,
		TriggerReassessment: a.TriggerReassessment,
		CompletedPhase:      string(a.CompletedPhase),
		NextPhase:           string(a.NextPhase),
		ReassessmentToken:   a.ReassessmentToken,
		CompletionRate:      a.CompletionRate,
		ProgramComplete:     a.ProgramComplete,
	}
}

func toDomainSetRecord(p SetRecordPayload) domain.SetRecord {
	return domain.SetRecord{
		Completed:       p.Completed,
		Skipped:         p.Skipped,
		RepsCompleted:   p.RepsCompleted,
		Weight:          p.Weight,
		DurationSeconds: p.DurationSeconds,
		RPE:             p.RPE,
	}
}

func toDomainCompletions(payloads []ExerciseCompletionPayload) ([]domain.ExerciseCompletion, error) {
	out := make([]domain.ExerciseCompletion, 0, len(payloads))
	for _, p := range payloads {
		id, err := primitive.ObjectIDFromHex(p.ExerciseID)
		if err != nil {
			return nil, err
		}
		sets := make([]domain.SetRecord, 0, len(p.Sets))
		for _, s := range p.Sets {
			sets = append(sets, toDomainSetRecord(s))
		}
		out = append(out, domain.ExerciseCompletion{
			ExerciseID: id,
			Skipped:    p.Skipped,
			Notes:      p.Notes,
			Sets:       sets,
		})
	}
	return out, nil
}

// --- Handler Methods ---

// StartSession godoc
// @Summary Start a workout session
// @Description Creates an in-progress session for the template, with the athlete's scaled prescription recorded as targets. Only one in-progress session may exist per template.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param startRequest body StartSessionRequest true "Template to execute"
// @Success 201 {object} SessionResponse "Session created"
// @Failure 400 {object} gin.H "Invalid input, or the template is a rest day"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Program or template not found"
// @Failure 409 {object} gin.H "A session is already in progress for this template"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), userID, templateID)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) || errors.Is(err, service.ErrRestDaySession) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else if errors.Is(err, service.ErrProgramNotFound) || errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrSessionAlreadyInProgress) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to start session.")
		}
		return
	}
	c.JSON(http.StatusCreated, MapSessionToResponse(session))
}

// GetCurrentSession godoc
// @Summary Get my in-progress session
// @Description Retrieves the athlete's in-progress session, most recently started first.
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse "In-progress session"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "No session in progress"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /sessions/current [get]
func (h *SessionHandler) GetCurrentSession(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	session, err := h.sessionService.GetCurrent(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			abortWithError(c, http.StatusNotFound, "No session is in progress.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve session.")
		}
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// GetSessionForTemplate godoc
// @Summary Get my in-progress session for a template
// @Description Retrieves the in-progress session for one template. This is the resume path: the response's activeIndex points at the first unfinished exercise.
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param templateId path string true "Template's ObjectID Hex"
// @Success 200 {object} SessionResponse "In-progress session"
// @Failure 400 {object} gin.H "Invalid template ID format"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "No session in progress for this template"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /sessions/template/{templateId} [get]
func (h *SessionHandler) GetSessionForTemplate(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("templateId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	session, err := h.sessionService.GetForTemplate(c.Request.Context(), userID, templateID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			abortWithError(c, http.StatusNotFound, "No session is in progress for this template.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve session.")
		}
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// UpdateSessionProgress godoc
// @Summary Save session progress
// @Description Records progress on an in-progress session: either a single set update or the full exercise state, optionally reordering upcoming exercises. Writes are debounced server-side; the response reflects the working state.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session's ObjectID Hex"
// @Param progressRequest body UpdateSessionProgressRequest true "Set update or full exercise state"
// @Success 200 {object} SessionResponse "Updated working state"
// @Failure 400 {object} gin.H "Invalid payload"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Session not found"
// @Failure 409 {object} gin.H "Session already finalized, or reorder touches locked positions"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /sessions/{id}/progress [put]
func (h *SessionHandler) UpdateSessionProgress(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	var req UpdateSessionProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	var session *domain.WorkoutSession
	switch {
	case req.Set != nil:
		session, err = h.sessionService.UpdateSet(
			c.Request.Context(), userID, sessionID,
			req.Set.ExerciseIndex, req.Set.SetIndex, toDomainSetRecord(req.Set.Record),
		)
	case len(req.Exercises) > 0:
		exercises, convErr := toDomainCompletions(req.Exercises)
		if convErr != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid exercise ID in payload.")
			return
		}
		session, err = h.sessionService.UpdateProgress(c.Request.Context(), userID, sessionID, exercises, req.ExerciseOrder)
	default:
		abortWithError(c, http.StatusBadRequest, "Progress payload must carry a set update or the exercise state.")
		return
	}

	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrExerciseCountMismatch) ||
			errors.Is(err, service.ErrSetIndexOutOfRange) ||
			errors.Is(err, service.ErrInvalidExerciseOrder) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else if errors.Is(err, service.ErrSessionAlreadyFinalized) || errors.Is(err, service.ErrReorderLocked) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to save progress.")
		}
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// CompleteSession godoc
// @Summary Complete a session
// @Description Finalizes the session as completed, freezing its state, and advances the program position. When the phase grid is exhausted and the completion policy is met, the advance carries a reassessment ticket.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session's ObjectID Hex"
// @Param finalizeRequest body FinalizeSessionRequest false "Optional final progress payload"
// @Success 200 {object} CompleteSessionResponse "Frozen session and advance result"
// @Failure 400 {object} gin.H "Invalid payload"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Session not found"
// @Failure 409 {object} gin.H "Session already finalized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	userID, sessionID, exercises, order, ok := h.bindFinalize(c)
	if !ok {
		return
	}

	session, advance, err := h.sessionService.Complete(c.Request.Context(), userID, sessionID, exercises, order)
	if err != nil {
		h.abortFinalizeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CompleteSessionResponse{
		Session: MapSessionToResponse(session),
		Advance: MapAdvanceToResponse(advance),
	})
}

// AbandonSession godoc
// @Summary Abandon a session
// @Description Finalizes the session as abandoned. Partial progress is preserved, nothing advances, and the template may be started again later.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session's ObjectID Hex"
// @Param finalizeRequest body FinalizeSessionRequest false "Optional final progress payload"
// @Success 200 {object} SessionResponse "Frozen session"
// @Failure 400 {object} gin.H "Invalid payload"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Session not found"
// @Failure 409 {object} gin.H "Session already finalized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /sessions/{id}/abandon [post]
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	userID, sessionID, exercises, order, ok := h.bindFinalize(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Abandon(c.Request.Context(), userID, sessionID, exercises, order)
	if err != nil {
		h.abortFinalizeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// GetCompletedTemplates godoc
// @Summary List templates I have completed
// @Description Returns the distinct template IDs the athlete has a completed session for; the schedule screens mark these slots done.
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} string "Completed template IDs"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /sessions/completed-templates [get]
func (h *SessionHandler) GetCompletedTemplates(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	ids, err := h.sessionService.GetCompletedTemplateIDs(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve completed templates.")
		return
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	c.JSON(http.StatusOK, out)
}

// bindFinalize parses the shared complete/abandon inputs. A missing or empty
// body is fine: the session freezes as stored.
func (h *SessionHandler) bindFinalize(c *gin.Context) (userID, sessionID primitive.ObjectID, exercises []domain.ExerciseCompletion, order []int, ok bool) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return userID, sessionID, nil, nil, false
	}
	sessionID, err = primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format.")
		return userID, sessionID, nil, nil, false
	}

	var req FinalizeSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return userID, sessionID, nil, nil, false
		}
	}
	if len(req.Exercises) > 0 {
		exercises, err = toDomainCompletions(req.Exercises)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid exercise ID in payload.")
			return userID, sessionID, nil, nil, false
		}
		order = req.ExerciseOrder
	}
	return userID, sessionID, exercises, order, true
}

// abortFinalizeError maps complete/abandon failures. Conflicts and transient
// failures all surface the one schedule-changed line; the client's move is to
// refresh, not to branch.
func (h *SessionHandler) abortFinalizeError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrProgramNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
	} else if errors.Is(err, service.ErrExerciseCountMismatch) || errors.Is(err, service.ErrInvalidExerciseOrder) {
		abortWithError(c, http.StatusBadRequest, err.Error())
	} else if errors.Is(err, service.ErrSessionAlreadyFinalized) || errors.Is(err, service.ErrReorderLocked) {
		abortWithError(c, http.StatusConflict, scheduleChangedMessage)
	} else {
		abortWithError(c, http.StatusInternalServerError, scheduleChangedMessage)
	}
}
