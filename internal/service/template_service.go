package service

import (
	"context"
	"errors"

	"peakform/training-app/internal/domain"
	"peakform/training-app/internal/prescription"
	"peakform/training-app/internal/repository"
	"peakform/training-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var ErrDownloadURLError = errors.New("failed to generate download URL")

// TemplateExerciseDetail pairs a template entry with the athlete's scaled
// prescription and a presigned link to its demonstration media.
type TemplateExerciseDetail struct {
	Exercise domain.PrescribedExercise
	Scaled   prescription.Scaled
	MediaURL string // empty when the exercise carries no media
}

// TemplateDetail is a template hydrated for display to one athlete.
type TemplateDetail struct {
	Template  *domain.WorkoutTemplate
	Exercises []TemplateExerciseDetail // warmup, main, cooldown in section order
}

// --- Service Interface ---

// TemplateService serves read-only template views scaled to the caller.
type TemplateService interface {
	GetTemplateDetail(ctx context.Context, userID, templateID primitive.ObjectID) (*TemplateDetail, error)
}

// --- Service Implementation ---

type templateService struct {
	templateRepo repository.TemplateRepository
	programRepo  repository.ProgramRepository
	fileStorage  storage.FileStorage
}

// NewTemplateService creates a new instance of templateService.
func NewTemplateService(templateRepo repository.TemplateRepository, programRepo repository.ProgramRepository, fileStorage storage.FileStorage) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		programRepo:  programRepo,
		fileStorage:  fileStorage,
	}
}

// GetTemplateDetail returns the template with every exercise scaled for the
// calling athlete and demonstration media resolved to presigned URLs. The
// scaling here and at session start run the same pure function, so the two
// always agree.
func (s *templateService) GetTemplateDetail(ctx context.Context, userID, templateID primitive.ObjectID) (*TemplateDetail, error) {
	program, err := s.programRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	template, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	detail := &TemplateDetail{
		Template:  template,
		Exercises: make([]TemplateExerciseDetail, 0, len(template.Exercises)),
	}
	for _, section := range []domain.Section{domain.SectionWarmup, domain.SectionMain, domain.SectionCooldown} {
		for _, ex := range template.SectionExercises(section) {
			entry := TemplateExerciseDetail{
				Exercise: ex,
				Scaled:   prescription.Scale(ex, program.AgeGroup, template.Phase, program.SkillLevel),
			}
			if ex.MediaKey != "" {
				url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, ex.MediaKey, storage.DefaultPresignedURLExpiry)
				if err != nil {
					return nil, ErrDownloadURLError
				}
				entry.MediaURL = url
			}
			detail.Exercises = append(detail.Exercises, entry)
		}
	}
	return detail, nil
}
