package api

import (
	"net/http"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	schedulerService service.SchedulerService,
	sessionService service.SessionService,
	templateService service.TemplateService,
) {

	programHandler := NewProgramHandler(schedulerService)
	scheduleHandler := NewScheduleHandler(schedulerService)
	sessionHandler := NewSessionHandler(sessionService)
	templateHandler := NewTemplateHandler(templateService)
	prescriptionHandler := NewPrescriptionHandler()

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		// --- Program Routes ---
		programGroup := protected.Group("/programs")
		{
			// POST /api/v1/programs - intake creates the program state
			programGroup.POST("", programHandler.CreateMyProgram)
			// GET /api/v1/programs/me
			programGroup.GET("/me", programHandler.GetMyProgram)
			// POST /api/v1/programs/reassessment - only assessors confirm
			programGroup.POST("/reassessment", RoleMiddleware(domain.RoleAssessor), programHandler.CompleteReassessment)
		}

		// --- Schedule Routes ---
		scheduleGroup := protected.Group("/schedule")
		{
			scheduleGroup.GET("/today", scheduleHandler.GetToday)
			scheduleGroup.GET("/phases", scheduleHandler.GetUnlockedPhases)
			scheduleGroup.GET("/phases/:phase", scheduleHandler.GetPhaseOverview)
			scheduleGroup.POST("/phases/:phase/reset", scheduleHandler.ResetPhase)
			scheduleGroup.POST("/swap", scheduleHandler.SwapSlots)
			scheduleGroup.POST("/focus", scheduleHandler.SetFocus)
			scheduleGroup.DELETE("/focus", scheduleHandler.ClearFocus)
		}

		// --- Template Routes ---
		templateGroup := protected.Group("/templates")
		{
			// GET /api/v1/templates/{id} - detail scaled for the caller
			templateGroup.GET("/:id", templateHandler.GetTemplateDetail)
		}

		// --- Session Routes ---
		sessionGroup := protected.Group("/sessions")
		{
			sessionGroup.POST("", sessionHandler.StartSession)
			sessionGroup.GET("/current", sessionHandler.GetCurrentSession)
			sessionGroup.GET("/template/:templateId", sessionHandler.GetSessionForTemplate)
			sessionGroup.GET("/completed-templates", sessionHandler.GetCompletedTemplates)
			sessionGroup.PUT("/:id/progress", sessionHandler.UpdateSessionProgress)
			sessionGroup.POST("/:id/complete", sessionHandler.CompleteSession)
			sessionGroup.POST("/:id/abandon", sessionHandler.AbandonSession)
		}

		// --- Prescription Routes ---
		prescriptionGroup := protected.Group("/prescriptions")
		{
			prescriptionGroup.POST("/scale", prescriptionHandler.ScalePrescription)
		}
	}
}
