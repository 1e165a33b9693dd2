// internal/api/prescription_handler.go
package api

import (
	"net/http"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/prescription"

	"github.com/gin-gonic/gin"
)

// PrescriptionHandler exposes the scaling rules as a pure endpoint, so intake
// and preview screens can show "what would I actually do" without a template.
type PrescriptionHandler struct{}

func NewPrescriptionHandler() *PrescriptionHandler {
	return &PrescriptionHandler{}
}

// --- DTOs ---

type ScalePrescriptionRequest struct {
	Sets           int      `json:"sets" binding:"required,min=1"`
	Reps           string   `json:"reps" binding:"required"`
	TargetWeight   *float64 `json:"targetWeight,omitempty"`
	IntensityLevel string   `json:"intensityLevel,omitempty"`
	AgeGroup       string   `json:"ageGroup" binding:"required"`
	Phase          string   `json:"phase" binding:"required"`
	SkillLevel     string   `json:"skillLevel" binding:"required"`
}

// --- Handler Methods ---

// ScalePrescription godoc
// @Summary Scale a base prescription
// @Description Applies the age-bracket caps and phase intensity band to a base prescription. Pure computation: identical inputs always produce identical output.
// @Tags Prescriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param scaleRequest body ScalePrescriptionRequest true "Base prescription plus athlete context"
// @Success 200 {object} prescription.Scaled "Scaled prescription"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /prescriptions/scale [post]
func (h *PrescriptionHandler) ScalePrescription(c *gin.Context) {
	var req ScalePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	age := domain.AgeGroup(req.AgeGroup)
	phase := domain.Phase(req.Phase)
	skill := domain.SkillLevel(req.SkillLevel)
	if !age.Valid() || !phase.Valid() || !skill.Valid() {
		abortWithError(c, http.StatusBadRequest, "Unknown age group, phase or skill level.")
		return
	}

	base := domain.PrescribedExercise{
		Sets:           req.Sets,
		Reps:           req.Reps,
		TargetWeight:   req.TargetWeight,
		IntensityLevel: domain.IntensityLevel(req.IntensityLevel),
	}
	// Scaled carries its own JSON shape; no mapper needed.
	c.JSON(http.StatusOK, prescription.Scale(base, age, phase, skill))
}
