package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peakform/training-app/internal/api"
	"peakform/training-app/internal/config"
	"peakform/training-app/internal/repository/mongo"
	"peakform/training-app/internal/service"
	"peakform/training-app/internal/storage"

	"github.com/gin-gonic/gin"
)

// @title PeakForm Training API
// @version 1.0
// @description API for athletic training programs: phase scheduling, workout session execution, and prescription scaling.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Training App Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureTemplateIndexes(ctx, appDB.Collection("workout_templates"))
		mongo.EnsureProgramIndexes(ctx, appDB.Collection("user_programs"))
		mongo.EnsureOverrideIndexes(ctx, appDB.Collection("schedule_overrides"))
		mongo.EnsureSessionIndexes(ctx, appDB.Collection("workout_sessions"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	templateRepo := mongo.NewMongoTemplateRepository(appDB)
	programRepo := mongo.NewMongoProgramRepository(appDB)
	overrideRepo := mongo.NewMongoOverrideRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	autosaver := service.NewProgressAutosaver(sessionRepo, cfg.Program.AutosaveDebounce)
	schedulerService := service.NewSchedulerService(programRepo, templateRepo, overrideRepo, sessionRepo, cfg.Program.CompletionThreshold)
	sessionService := service.NewSessionService(sessionRepo, templateRepo, programRepo, schedulerService, autosaver)
	templateService := service.NewTemplateService(templateRepo, programRepo, fileStorage)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, schedulerService, sessionService, templateService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	// Drain debounced progress writes before the DB connection goes away.
	autosaver.FlushAll(ctxShutdown)

	log.Println("Server exiting.")
}
