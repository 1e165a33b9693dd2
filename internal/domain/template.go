// internal/domain/template.go
package domain

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Section type for the warmup/main/cooldown split of a template's exercises
type Section string

const (
	SectionWarmup   Section = "warmup"
	SectionMain     Section = "main"
	SectionCooldown Section = "cooldown"
)

func (s Section) Valid() bool {
	return s == SectionWarmup || s == SectionMain || s == SectionCooldown
}

// IntensityLevel type with the total order Low < Moderate < High
type IntensityLevel string

const (
	IntensityLow      IntensityLevel = "low"
	IntensityModerate IntensityLevel = "moderate"
	IntensityHigh     IntensityLevel = "high"
)

// Rank returns the level's position in the Low < Moderate < High order.
// Unknown levels rank below Low so they never survive a cap.
func (l IntensityLevel) Rank() int {
	switch l {
	case IntensityLow:
		return 1
	case IntensityModerate:
		return 2
	case IntensityHigh:
		return 3
	default:
		return 0
	}
}

// PrescribedExercise is one entry in a template's ordered exercise list.
type PrescribedExercise struct {
	ExerciseID     primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Name           string             `bson:"name" json:"name"`
	Sets           int                `bson:"sets" json:"sets"`
	Reps           string             `bson:"reps" json:"reps"` // range string, e.g. "8-12"; already keyed by skill level
	Tempo          string             `bson:"tempo,omitempty" json:"tempo,omitempty"`
	RestSeconds    int                `bson:"restSeconds" json:"restSeconds"`
	Section        Section            `bson:"section,omitempty" json:"section"` // empty on legacy documents, normalized at load
	OrderIndex     int                `bson:"orderIndex" json:"orderIndex"`
	TargetWeight   *float64           `bson:"targetWeight,omitempty" json:"targetWeight,omitempty"` // base load before age/phase scaling
	IntensityLevel IntensityLevel     `bson:"intensityLevel,omitempty" json:"intensityLevel,omitempty"`
	MediaKey       string             `bson:"mediaKey,omitempty" json:"mediaKey,omitempty"` // object key of the demonstration video
}

// WorkoutTemplate represents one canonical workout definition in the grid,
// keyed by (sportCategory, phase, skillLevel, week, day). Immutable from this
// core's perspective; only the seeder writes these.
type WorkoutTemplate struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	SportCategoryID primitive.ObjectID   `bson:"sportCategoryId" json:"sportCategoryId"`
	Phase           Phase                `bson:"phase" json:"phase"`
	SkillLevel      SkillLevel           `bson:"skillLevel" json:"skillLevel"`
	Week            int                  `bson:"week" json:"week"`
	Day             int                  `bson:"day" json:"day"`
	Name            string               `bson:"name" json:"name"` // e.g. "Week 2 Day 3: Lower Body Power"
	RestDay         bool                 `bson:"restDay,omitempty" json:"restDay"`
	Exercises       []PrescribedExercise `bson:"exercises" json:"exercises"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Slot returns the grid coordinate this template canonically occupies.
func (t *WorkoutTemplate) Slot() Slot {
	return Slot{Phase: t.Phase, Week: t.Week, Day: t.Day}
}

// NormalizeSections resolves legacy documents into the canonical shape:
// exercises written before the section split carry no section tag and no
// reliable orderIndex. Empty sections become "main" and orderIndex falls back
// to array position, so no caller ever branches on missing fields.
func (t *WorkoutTemplate) NormalizeSections() {
	seenIndex := false
	for i := range t.Exercises {
		if t.Exercises[i].Section == "" {
			t.Exercises[i].Section = SectionMain
		}
		if t.Exercises[i].OrderIndex != 0 {
			seenIndex = true
		}
	}
	if !seenIndex {
		for i := range t.Exercises {
			t.Exercises[i].OrderIndex = i
		}
	}
}

// MainExercises returns the main-section exercises ordered by OrderIndex.
// Warmup and cooldown entries are excluded from completion accounting.
func (t *WorkoutTemplate) MainExercises() []PrescribedExercise {
	main := make([]PrescribedExercise, 0, len(t.Exercises))
	for _, ex := range t.Exercises {
		if ex.Section == SectionMain {
			main = append(main, ex)
		}
	}
	sort.SliceStable(main, func(i, j int) bool { return main[i].OrderIndex < main[j].OrderIndex })
	return main
}

// SectionExercises returns the exercises of one section ordered by OrderIndex.
func (t *WorkoutTemplate) SectionExercises(section Section) []PrescribedExercise {
	out := make([]PrescribedExercise, 0, len(t.Exercises))
	for _, ex := range t.Exercises {
		if ex.Section == section {
			out = append(out, ex)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}
