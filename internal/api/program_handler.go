// internal/api/program_handler.go
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

type ProgramHandler struct {
	schedulerService service.SchedulerService
}

func NewProgramHandler(schedulerService service.SchedulerService) *ProgramHandler {
	return &ProgramHandler{schedulerService: schedulerService}
}

// --- DTOs ---

type CreateProgramRequest struct {
	SportCategoryID string `json:"sportCategoryId" binding:"required"`
	SkillLevel      string `json:"skillLevel" binding:"required"`
	AgeGroup        string `json:"ageGroup" binding:"required"`
}

// CompleteReassessmentRequest is submitted by an assessor on behalf of the
// athlete whose phase is being unlocked; the athlete's app hands the token
// over when it routes into the reassessment flow.
type CompleteReassessmentRequest struct {
	UserID string `json:"userId" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

type ReassessmentTicketResponse struct {
	Token          string    `json:"token"`
	CompletedPhase string    `json:"completedPhase"`
	NextPhase      string    `json:"nextPhase"`
	CompletionRate float64   `json:"completionRate"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ProgramResponse struct {
	ID                  string                      `json:"id"`
	UserID              string                      `json:"userId"`
	SportCategoryID     string                      `json:"sportCategoryId"`
	Phase               string                      `json:"phase"`
	Week                int                         `json:"week"`
	Day                 int                         `json:"day"`
	SkillLevel          string                      `json:"skillLevel"`
	AgeGroup            string                      `json:"ageGroup"`
	UnlockedPhases      []string                    `json:"unlockedPhases"`
	SPPUnlockedAt       *time.Time                  `json:"sppUnlockedAt,omitempty"`
	SSPUnlockedAt       *time.Time                  `json:"sspUnlockedAt,omitempty"`
	PendingReassessment *ReassessmentTicketResponse `json:"pendingReassessment,omitempty"`
	CreatedAt           time.Time                   `json:"createdAt"`
	UpdatedAt           time.Time                   `json:"updatedAt"`
}

func MapProgramToResponse(p *domain.ProgramState) ProgramResponse {
	resp := ProgramResponse{
		ID:              p.ID.Hex(),
		UserID:          p.UserID.Hex(),
		SportCategoryID: p.SportCategoryID.Hex(),
		Phase:           string(p.Phase),
		Week:            p.Week,
		Day:             p.Day,
		SkillLevel:      string(p.SkillLevel),
		AgeGroup:        string(p.AgeGroup),
		SPPUnlockedAt:   p.SPPUnlockedAt,
		SSPUnlockedAt:   p.SSPUnlockedAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	for _, phase := range p.UnlockedPhases() {
		resp.UnlockedPhases = append(resp.UnlockedPhases, string(phase))
	}
	if t := p.PendingReassessment; t != nil {
		resp.PendingReassessment = &ReassessmentTicketResponse{
			Token:          t.Token,
			CompletedPhase: string(t.CompletedPhase),
			NextPhase:      string(t.NextPhase),
			CompletionRate: t.CompletionRate,
			CreatedAt:      t.CreatedAt,
		}
	}
	return resp
}

// --- Handler Methods ---

// CreateMyProgram godoc
// @Summary Create my training program
// @Description Creates the authenticated athlete's program state at intake completion, positioned at GPP week 1 day 1.
// @Tags Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param programRequest body CreateProgramRequest true "Sport category, skill level and age group chosen at intake"
// @Success 201 {object} ProgramResponse "Program created"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "No template grid seeded for this category/skill"
// @Failure 409 {object} gin.H "A program already exists for this user"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /programs [post]
func (h *ProgramHandler) CreateMyProgram(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	var req CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sportCategoryID, err := primitive.ObjectIDFromHex(req.SportCategoryID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid sport category ID format.")
		return
	}

	program, err := h.schedulerService.InitializeProgram(
		c.Request.Context(),
		userID,
		sportCategoryID,
		domain.SkillLevel(req.SkillLevel),
		domain.AgeGroup(req.AgeGroup),
	)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, "Invalid skill level or age group.")
		} else if errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, "No workout grid exists for this category and skill level.")
		} else if errors.Is(err, service.ErrProgramAlreadyExists) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to create program.")
		}
		return
	}
	c.JSON(http.StatusCreated, MapProgramToResponse(program))
}

// GetMyProgram godoc
// @Summary Get my training program
// @Description Retrieves the authenticated athlete's program state, including position, unlocked phases and any pending reassessment.
// @Tags Programs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProgramResponse "Program state"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Program not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /programs/me [get]
func (h *ProgramHandler) GetMyProgram(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	program, err := h.schedulerService.GetProgram(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProgramNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve program.")
		}
		return
	}
	c.JSON(http.StatusOK, MapProgramToResponse(program))
}

// CompleteReassessment godoc
// @Summary Confirm a pending reassessment
// @Description Consumes the athlete's pending reassessment ticket, unlocking the next phase and moving them to its week 1 day 1. Assessor role only.
// @Tags Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param reassessmentRequest body CompleteReassessmentRequest true "Athlete's user ID and the ticket token"
// @Success 200 {object} ProgramResponse "Updated program state"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (assessor role required)"
// @Failure 404 {object} gin.H "Program not found"
// @Failure 409 {object} gin.H "No reassessment pending, or token mismatch"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /programs/reassessment [post]
func (h *ProgramHandler) CompleteReassessment(c *gin.Context) {
	var req CompleteReassessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	athleteID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format.")
		return
	}

	program, err := h.schedulerService.CompleteReassessment(c.Request.Context(), athleteID, req.Token)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, "Invalid reassessment request.")
		} else if errors.Is(err, service.ErrProgramNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrNoReassessmentPending) || errors.Is(err, service.ErrReassessmentTokenMismatch) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to complete reassessment.")
		}
		return
	}
	c.JSON(http.StatusOK, MapProgramToResponse(program))
}
