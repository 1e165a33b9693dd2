// internal/api/template_handler.go
package api

import (
	"errors"
	"net/http"

	"peakform/training-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TemplateHandler struct {
	templateService service.TemplateService
}

func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// --- DTOs ---

type ScaledPrescriptionResponse struct {
	Sets           int      `json:"sets"`
	Reps           string   `json:"reps"`
	TargetWeight   *float64 `json:"targetWeight,omitempty"`
	IntensityLevel string   `json:"intensityLevel"`
	AppliedCeiling float64  `json:"appliedCeiling"`
}

type TemplateExerciseResponse struct {
	ExerciseID  string `json:"exerciseId"`
	Name        string `json:"name"`
	Section     string `json:"section"`
	OrderIndex  int    `json:"orderIndex"`
	Tempo       string `json:"tempo,omitempty"`
	RestSeconds int    `json:"restSeconds"`
	// Prescribed is the prescription scaled to the caller's age bracket and
	// the template's phase, not the raw grid values.
	Prescribed ScaledPrescriptionResponse `json:"prescribed"`
	MediaURL   string                     `json:"mediaUrl,omitempty"`
}

type TemplateDetailResponse struct {
	ID              string                     `json:"id"`
	SportCategoryID string                     `json:"sportCategoryId"`
	Phase           string                     `json:"phase"`
	SkillLevel      string                     `json:"skillLevel"`
	Week            int                        `json:"week"`
	Day             int                        `json:"day"`
	Name            string                     `json:"name"`
	RestDay         bool                       `json:"restDay"`
	Exercises       []TemplateExerciseResponse `json:"exercises"`
}

func MapTemplateDetailToResponse(detail *service.TemplateDetail) TemplateDetailResponse {
	t := detail.Template
	resp := TemplateDetailResponse{
		ID:              t.ID.Hex(),
		SportCategoryID: t.SportCategoryID.Hex(),
		Phase:           string(t.Phase),
		SkillLevel:      string(t.SkillLevel),
		Week:            t.Week,
		Day:             t.Day,
		Name:            t.Name,
		RestDay:         t.RestDay,
		Exercises:       make([]TemplateExerciseResponse, 0, len(detail.Exercises)),
	}
	for _, e := range detail.Exercises {
		resp.Exercises = append(resp.Exercises, TemplateExerciseResponse{
			ExerciseID:  e.Exercise.ExerciseID.Hex(),
			Name:        e.Exercise.Name,
			Section:     string(e.Exercise.Section),
			OrderIndex:  e.Exercise.OrderIndex,
			Tempo:       e.Exercise.Tempo,
			RestSeconds: e.Exercise.RestSeconds,
			Prescribed: ScaledPrescriptionResponse{
				Sets:           e.Scaled.Sets,
				Reps:           e.Scaled.Reps,
				TargetWeight:   e.Scaled.TargetWeight,
				IntensityLevel: string(e.Scaled.IntensityLevel),
				AppliedCeiling: e.Scaled.AppliedCeiling,
			},
			MediaURL: e.MediaURL,
		})
	}
	return resp
}

// --- Handler Methods ---

// GetTemplateDetail godoc
// @Summary Get a workout template
// @Description Retrieves a template with every exercise scaled for the calling athlete's program and demonstration media resolved to presigned URLs.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template's ObjectID Hex"
// @Success 200 {object} TemplateDetailResponse "Template detail"
// @Failure 400 {object} gin.H "Invalid template ID format"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Program or template not found"
// @Failure 500 {object} gin.H "Internal Server Error (e.g., presigning failed)"
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplateDetail(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return
	}
	templateID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid template ID format.")
		return
	}

	detail, err := h.templateService.GetTemplateDetail(c.Request.Context(), userID, templateID)
	if err != nil {
		if errors.Is(err, service.ErrProgramNotFound) || errors.Is(err, service.ErrTemplateNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrDownloadURLError) {
			abortWithError(c, http.StatusInternalServerError, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve template.")
		}
		return
	}
	c.JSON(http.StatusOK, MapTemplateDetailToResponse(detail))
}
