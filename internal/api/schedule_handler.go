// internal/api/schedule_handler.go
package api

import (
	"errors"
	"net/http"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// scheduleChangedMessage is the one user-facing line for swap/complete/abandon
// rejections. Scheduling conflicts are transient, so the client shows this and
// refreshes instead of branching on error detail.
const scheduleChangedMessage = "couldn't complete that action, your schedule may have changed"

type ScheduleHandler struct {
	schedulerService service.SchedulerService
}

func NewScheduleHandler(schedulerService service.SchedulerService) *ScheduleHandler {
	return &ScheduleHandler{schedulerService: schedulerService}
}

// --- DTOs ---

type SlotRef struct {
	Week int `json:"week" binding:"required,min=1"`
	Day  int `json:"day" binding:"required,min=1"`
}

type SwapSlotsRequest struct {
	Phase string  `json:"phase" binding:"required"`
	A     SlotRef `json:"a" binding:"required"`
	B     SlotRef `json:"b" binding:"required"`
}

type SetFocusRequest struct {
	TemplateID string `json:"templateId" binding:"required"`
	// AutoSwap also exchanges the template's slot with the first incomplete
	// slot of the current week, so the week's plan reflects the redirect.
	AutoSwap bool `json:"autoSwap"`
}

type ResolvedWorkoutResponse struct {
	Phase      string `json:"phase"`
	Week       int    `json:"week"`
	Day        int    `json:"day"`
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	RestDay    bool   `json:"restDay"`
	Swapped    bool   `json:"swapped"`
	Focused    bool   `json:"focused"`
	Completed  bool   `json:"completed"`
}

func MapResolvedWorkoutToResponse(r *service.ResolvedWorkout) ResolvedWorkoutResponse {
	return ResolvedWorkoutResponse{
		Phase:      string(r.Slot.Phase),
		Week:       r.Slot.Week,
		Day:        r.Slot.Day,
		TemplateID: r.TemplateID.Hex(),
		Name:       r.Template.Name,
		RestDay:    r.RestDay,
		Swapped:    r.Swapped,
		Focused:    r.Focused,
		Completed:  r.Completed,
	}
}

type PhaseSlotResponse struct {
	Week       int    `json:"week"`
	Day        int    `json:"day"`
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	RestDay    bool   `json:"restDay"`
	Swapped    bool   `json:"swapped"`
	Completed  bool   `json:"completed"`
	Current    bool   `json:"current"`
}

func MapPhaseOverviewToResponse(overview []service.PhaseSlotOverview) []PhaseSlotResponse {
	out := make([]PhaseSlotResponse, 0, len(overview))
	for _, slot := range overview {
		out = append(out, PhaseSlotResponse{
			Week:       slot.Slot.Week,
			Day:        slot.Slot.Day,
			TemplateID: slot.TemplateID.Hex(),
			Name:       slot.Name,
			RestDay:    slot.RestDay,
			Swapped:    slot.Swapped,
			Completed:  slot.Completed,
			Current:    slot.Current,
		})
	}
	return out
}

// --- Handler Methods ---

// GetToday godoc
// @Summary Get today's workout
// @Description Resolves the workout for right now: the today-focus override wins unless its target is completed, otherwise the athlete's current (phase, week, day) slot.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ResolvedWorkoutResponse "Resolved workout"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Program not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /schedule/today [get]
func (h *ScheduleHandler) GetToday(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	resolved, err := h.schedulerService.ResolveToday(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProgramNotFound) || errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrSlotOutOfRange) {
			abortWithError(c, http.StatusNotFound, "No workout is scheduled at the current position.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to resolve today's workout.")
		}
		return
	}
	c.JSON(http.StatusOK, MapResolvedWorkoutToResponse(resolved))
}

// GetUnlockedPhases godoc
// @Summary Get my unlocked phases
// @Description Lists the phases the athlete may schedule in, in progression order. GPP is always present.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {array} string "Unlocked phases"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Program not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /schedule/phases [get]
func (h *ScheduleHandler) GetUnlockedPhases(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	phases, err := h.schedulerService.GetUnlockedPhases(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProgramNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve phases.")
		}
		return
	}
	out := make([]string, 0, len(phases))
	for _, phase := range phases {
		out = append(out, string(phase))
	}
	c.JSON(http.StatusOK, out)
}

// GetPhaseOverview godoc
// @Summary Get a phase's schedule overview
// @Description Returns every slot of the phase with its resolved assignment, swap and completion flags. Locked phases may be previewed.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param phase path string true "Phase (gpp, spp or ssp)"
// @Success 200 {array} PhaseSlotResponse "Slots in (week, day) order"
// @Failure 400 {object} gin.H "Unknown phase"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Program not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /schedule/phases/{phase} [get]
func (h *ScheduleHandler) GetPhaseOverview(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	overview, err := h.schedulerService.GetPhaseOverview(c.Request.Context(), userID, domain.Phase(c.Param("phase")))
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, "Unknown phase.")
		} else if errors.Is(err, service.ErrProgramNotFound) || errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve phase overview.")
		}
		return
	}
	c.JSON(http.StatusOK, MapPhaseOverviewToResponse(overview))
}

// SwapSlots godoc
// @Summary Swap two slots' workouts
// @Description Exchanges the workouts assigned to two slots of one unlocked phase. Slots with a completed workout cannot move.
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param swapRequest body SwapSlotsRequest true "Phase and the two slots to exchange"
// @Success 200 {object} gin.H "Swap applied"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Program not found"
// @Failure 409 {object} gin.H "Swap rejected"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /schedule/swap [post]
func (h *ScheduleHandler) SwapSlots(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	var req SwapSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	phase := domain.Phase(req.Phase)
	slotA := domain.Slot{Phase: phase, Week: req.A.Week, Day: req.A.Day}
	slotB := domain.Slot{Phase: phase, Week: req.B.Week, Day: req.B.Day}

	err = h.schedulerService.Swap(c.Request.Context(), userID, slotA, slotB)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, "Invalid swap request.")
		} else if errors.Is(err, service.ErrSlotOutOfRange) {
			abortWithError(c, http.StatusBadRequest, "Slot coordinates are outside the phase grid.")
		} else if errors.Is(err, service.ErrProgramNotFound) || errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrSwapRejected) || errors.Is(err, service.ErrPhaseLocked) {
			abortWithError(c, http.StatusConflict, scheduleChangedMessage)
		} else {
			abortWithError(c, http.StatusInternalServerError, scheduleChangedMessage)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Swap applied successfully"})
}

// SetFocus godoc
// @Summary Set today's focus workout
// @Description Pins a workout as "today's workout" regardless of the athlete's position. With autoSwap the workout also trades slots with the first incomplete slot of the current week.
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param focusRequest body SetFocusRequest true "Template to focus"
// @Success 200 {object} gin.H "Focus set"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Program or template not found"
// @Failure 409 {object} gin.H "Focus target completed, phase locked, or swap rejected"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /schedule/focus [post]
func (h *ScheduleHandler) SetFocus(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	var req SetFocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	err = h.schedulerService.SetFocusWithSwap(c.Request.Context(), userID, templateID, req.AutoSwap)
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, "Template does not belong to your program.")
		} else if errors.Is(err, service.ErrProgramNotFound) || errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrFocusTargetCompleted) || errors.Is(err, service.ErrPhaseLocked) || errors.Is(err, service.ErrSwapRejected) {
			abortWithError(c, http.StatusConflict, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to set focus.")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Focus set successfully"})
}

// ClearFocus godoc
// @Summary Clear today's focus
// @Description Removes the today-focus override; natural slot resolution resumes.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "Focus cleared"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /schedule/focus [delete]
func (h *ScheduleHandler) ClearFocus(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	if err := h.schedulerService.ClearFocus(c.Request.Context(), userID); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to clear focus.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Focus cleared successfully"})
}

// ResetPhase godoc
// @Summary Reset a phase's schedule to default
// @Description Drops every swap in the phase, reverting its schedule to the canonical grid. The today focus is left untouched.
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param phase path string true "Phase (gpp, spp or ssp)"
// @Success 200 {object} gin.H "Phase reset"
// @Failure 400 {object} gin.H "Unknown phase"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /schedule/phases/{phase}/reset [post]
func (h *ScheduleHandler) ResetPhase(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}

	err = h.schedulerService.ResetPhaseToDefault(c.Request.Context(), userID, domain.Phase(c.Param("phase")))
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, "Unknown phase.")
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to reset phase.")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Phase schedule reset to default"})
}
