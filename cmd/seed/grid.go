package main

import (
	"fmt"

	"peakform/training-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"
)

// gridDocument is the YAML shape of a seed file: sport categories broken
// down into phases, skill levels, weeks and days.
type gridDocument struct {
	Categories []categoryDoc `yaml:"categories"`
}

type categoryDoc struct {
	// ID is the category's ObjectID hex. It is fixed in the file so
	// re-seeding targets the same grid instead of minting a parallel one.
	ID     string     `yaml:"id"`
	Name   string     `yaml:"name"`
	Phases []phaseDoc `yaml:"phases"`
}

type phaseDoc struct {
	Phase       string     `yaml:"phase"`
	SkillLevels []skillDoc `yaml:"skillLevels"`
}

type skillDoc struct {
	SkillLevel string    `yaml:"skillLevel"`
	Weeks      []weekDoc `yaml:"weeks"`
}

type weekDoc struct {
	Week int      `yaml:"week"`
	Days []dayDoc `yaml:"days"`
}

type dayDoc struct {
	Day       int           `yaml:"day"`
	Name      string        `yaml:"name"`
	RestDay   bool          `yaml:"restDay"`
	Exercises []exerciseDoc `yaml:"exercises"`
}

type exerciseDoc struct {
	// ExerciseID is optional; a new id is minted when absent. Fixing it in
	// the file keeps exercise identity stable across re-seeds.
	ExerciseID     string   `yaml:"exerciseId"`
	Name           string   `yaml:"name"`
	Section        string   `yaml:"section"`
	Sets           int      `yaml:"sets"`
	Reps           string   `yaml:"reps"`
	Tempo          string   `yaml:"tempo"`
	RestSeconds    int      `yaml:"restSeconds"`
	TargetWeight   *float64 `yaml:"targetWeight"`
	IntensityLevel string   `yaml:"intensityLevel"`
	MediaKey       string   `yaml:"mediaKey"`
}

// parseGrid unmarshals a seed file.
func parseGrid(data []byte) (*gridDocument, error) {
	var doc gridDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("parse grid: no categories")
	}
	return &doc, nil
}

// buildTemplates validates the document and flattens it into templates ready
// for upserting. All validation happens here, before anything is written, so
// a bad file never leaves a half-seeded grid.
func buildTemplates(doc *gridDocument) ([]domain.WorkoutTemplate, error) {
	var templates []domain.WorkoutTemplate
	for _, cat := range doc.Categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("category with id %q: name is required", cat.ID)
		}
		categoryID, err := primitive.ObjectIDFromHex(cat.ID)
		if err != nil {
			return nil, fmt.Errorf("category %q: invalid id %q", cat.Name, cat.ID)
		}

		for _, ph := range cat.Phases {
			phase := domain.Phase(ph.Phase)
			if !phase.Valid() {
				return nil, fmt.Errorf("category %q: unknown phase %q", cat.Name, ph.Phase)
			}

			for _, sk := range ph.SkillLevels {
				skill := domain.SkillLevel(sk.SkillLevel)
				if !skill.Valid() {
					return nil, fmt.Errorf("category %q phase %q: unknown skill level %q", cat.Name, ph.Phase, sk.SkillLevel)
				}

				// Slot uniqueness within one (category, phase, skill) column.
				seen := make(map[string]bool)
				for _, wk := range sk.Weeks {
					if wk.Week < 1 {
						return nil, fmt.Errorf("category %q phase %q skill %q: week must be >= 1", cat.Name, ph.Phase, sk.SkillLevel)
					}
					for _, day := range wk.Days {
						if day.Day < 1 {
							return nil, fmt.Errorf("category %q phase %q skill %q week %d: day must be >= 1", cat.Name, ph.Phase, sk.SkillLevel, wk.Week)
						}
						key := domain.Slot{Phase: phase, Week: wk.Week, Day: day.Day}.Key()
						if seen[key] {
							return nil, fmt.Errorf("category %q phase %q skill %q: duplicate slot week %d day %d", cat.Name, ph.Phase, sk.SkillLevel, wk.Week, day.Day)
						}
						seen[key] = true

						template, err := buildDay(categoryID, phase, skill, wk.Week, day)
						if err != nil {
							return nil, fmt.Errorf("category %q phase %q skill %q week %d day %d: %w", cat.Name, ph.Phase, sk.SkillLevel, wk.Week, day.Day, err)
						}
						templates = append(templates, *template)
					}
				}
			}
		}
	}
	return templates, nil
}

// buildDay converts one day entry into a template.
func buildDay(categoryID primitive.ObjectID, phase domain.Phase, skill domain.SkillLevel, week int, day dayDoc) (*domain.WorkoutTemplate, error) {
	template := &domain.WorkoutTemplate{
		SportCategoryID: categoryID,
		Phase:           phase,
		SkillLevel:      skill,
		Week:            week,
		Day:             day.Day,
		Name:            day.Name,
		RestDay:         day.RestDay,
	}

	if day.RestDay {
		if len(day.Exercises) > 0 {
			return nil, fmt.Errorf("rest day carries exercises")
		}
		if template.Name == "" {
			template.Name = fmt.Sprintf("Week %d Day %d: Rest", week, day.Day)
		}
		return template, nil
	}

	if template.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if len(day.Exercises) == 0 {
		return nil, fmt.Errorf("a workout day needs at least one exercise")
	}

	template.Exercises = make([]domain.PrescribedExercise, 0, len(day.Exercises))
	for i, ex := range day.Exercises {
		entry, err := buildExercise(i, ex)
		if err != nil {
			return nil, fmt.Errorf("exercise %d (%q): %w", i+1, ex.Name, err)
		}
		template.Exercises = append(template.Exercises, *entry)
	}
	return template, nil
}

// buildExercise converts one exercise entry, defaulting section to main and
// order to file position.
func buildExercise(index int, ex exerciseDoc) (*domain.PrescribedExercise, error) {
	if ex.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if ex.Sets < 1 {
		return nil, fmt.Errorf("sets must be >= 1")
	}
	if ex.Reps == "" {
		return nil, fmt.Errorf("reps is required")
	}

	section := domain.Section(ex.Section)
	if ex.Section == "" {
		section = domain.SectionMain
	} else if !section.Valid() {
		return nil, fmt.Errorf("unknown section %q", ex.Section)
	}

	level := domain.IntensityLevel(ex.IntensityLevel)
	if ex.IntensityLevel != "" && level.Rank() == 0 {
		return nil, fmt.Errorf("unknown intensity level %q", ex.IntensityLevel)
	}

	exerciseID := primitive.NewObjectID()
	if ex.ExerciseID != "" {
		id, err := primitive.ObjectIDFromHex(ex.ExerciseID)
		if err != nil {
			return nil, fmt.Errorf("invalid exerciseId %q", ex.ExerciseID)
		}
		exerciseID = id
	}

	return &domain.PrescribedExercise{
		ExerciseID:     exerciseID,
		Name:           ex.Name,
		Sets:           ex.Sets,
		Reps:           ex.Reps,
		Tempo:          ex.Tempo,
		RestSeconds:    ex.RestSeconds,
		Section:        section,
		OrderIndex:     index,
		TargetWeight:   ex.TargetWeight,
		IntensityLevel: level,
		MediaKey:       ex.MediaKey,
	}, nil
}

// gridCounts summarizes a flattened grid for the final report.
type gridCounts struct {
	Templates int
	RestDays  int
	Exercises int
}

func countTemplates(templates []domain.WorkoutTemplate) gridCounts {
	var c gridCounts
	c.Templates = len(templates)
	for i := range templates {
		if templates[i].RestDay {
			c.RestDays++
		}
		c.Exercises += len(templates[i].Exercises)
	}
	return c
}
