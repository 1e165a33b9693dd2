package main

import (
	"strings"
	"testing"

	"peakform/training-app/internal/domain"
)

const validGridYAML = `
categories:
  - id: "507f1f77bcf86cd799439011"
    name: "Ice Hockey"
    phases:
      - phase: gpp
        skillLevels:
          - skillLevel: beginner
            weeks:
              - week: 1
                days:
                  - day: 1
                    name: "Week 1 Day 1: Foundation"
                    exercises:
                      - exerciseId: "507f1f77bcf86cd799439022"
                        name: "Goblet Squat"
                        section: main
                        sets: 3
                        reps: "8-12"
                        restSeconds: 90
                        targetWeight: 40
                        intensityLevel: moderate
                        mediaKey: "videos/goblet_squat.mp4"
                      - name: "Arm Circles"
                        section: warmup
                        sets: 2
                        reps: "10"
                  - day: 2
                    restDay: true
              - week: 2
                days:
                  - day: 1
                    name: "Week 2 Day 1: Push"
                    exercises:
                      - name: "Push-Up"
                        sets: 3
                        reps: "10-15"
`

// baseDoc builds a minimal valid document; validation cases mutate their own
// copy before calling buildTemplates.
func baseDoc() *gridDocument {
	return &gridDocument{
		Categories: []categoryDoc{{
			ID:   "507f1f77bcf86cd799439011",
			Name: "Ice Hockey",
			Phases: []phaseDoc{{
				Phase: "gpp",
				SkillLevels: []skillDoc{{
					SkillLevel: "beginner",
					Weeks: []weekDoc{{
						Week: 1,
						Days: []dayDoc{{
							Day:  1,
							Name: "Week 1 Day 1: Foundation",
							Exercises: []exerciseDoc{{
								Name: "Goblet Squat",
								Sets: 3,
								Reps: "8-12",
							}},
						}},
					}},
				}},
			}},
		}},
	}
}

func TestParseAndBuildValidGrid(t *testing.T) {
	doc, err := parseGrid([]byte(validGridYAML))
	if err != nil {
		t.Fatalf("parseGrid: %v", err)
	}
	templates, err := buildTemplates(doc)
	if err != nil {
		t.Fatalf("buildTemplates: %v", err)
	}
	if len(templates) != 3 {
		t.Fatalf("got %d templates, want 3", len(templates))
	}

	first := templates[0]
	if first.Phase != domain.PhaseGPP || first.SkillLevel != domain.SkillBeginner || first.Week != 1 || first.Day != 1 {
		t.Errorf("first slot = (%s, %s, %d, %d), want (gpp, beginner, 1, 1)",
			first.Phase, first.SkillLevel, first.Week, first.Day)
	}
	if len(first.Exercises) != 2 {
		t.Fatalf("got %d exercises, want 2", len(first.Exercises))
	}
	if got := first.Exercises[0].ExerciseID.Hex(); got != "507f1f77bcf86cd799439022" {
		t.Errorf("fixed exerciseId not preserved, got %s", got)
	}
	if first.Exercises[1].ExerciseID.IsZero() {
		t.Error("exercise without a fixed id should get one minted")
	}
	if first.Exercises[0].OrderIndex != 0 || first.Exercises[1].OrderIndex != 1 {
		t.Errorf("order indexes = %d, %d, want 0, 1", first.Exercises[0].OrderIndex, first.Exercises[1].OrderIndex)
	}
	if first.Exercises[1].Section != domain.SectionWarmup {
		t.Errorf("section = %q, want warmup", first.Exercises[1].Section)
	}

	rest := templates[1]
	if !rest.RestDay {
		t.Error("second template should be a rest day")
	}
	if rest.Name != "Week 1 Day 2: Rest" {
		t.Errorf("rest day name = %q, want default", rest.Name)
	}

	// Section defaults to main when unspecified.
	push := templates[2]
	if push.Exercises[0].Section != domain.SectionMain {
		t.Errorf("section = %q, want main default", push.Exercises[0].Section)
	}
}

func TestBuildTemplatesValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*gridDocument)
		wantErr string
	}{
		{
			name:    "bad category id",
			mutate:  func(d *gridDocument) { d.Categories[0].ID = "not-hex" },
			wantErr: "invalid id",
		},
		{
			name:    "missing category name",
			mutate:  func(d *gridDocument) { d.Categories[0].Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "unknown phase",
			mutate:  func(d *gridDocument) { d.Categories[0].Phases[0].Phase = "taper" },
			wantErr: "unknown phase",
		},
		{
			name:    "unknown skill level",
			mutate:  func(d *gridDocument) { d.Categories[0].Phases[0].SkillLevels[0].SkillLevel = "elite" },
			wantErr: "unknown skill level",
		},
		{
			name: "duplicate slot",
			mutate: func(d *gridDocument) {
				week := &d.Categories[0].Phases[0].SkillLevels[0].Weeks[0]
				week.Days = append(week.Days, week.Days[0])
			},
			wantErr: "duplicate slot",
		},
		{
			name: "zero week",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Week = 0
			},
			wantErr: "week must be >= 1",
		},
		{
			name: "zero day",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Days[0].Day = 0
			},
			wantErr: "day must be >= 1",
		},
		{
			name: "workout day without exercises",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Days[0].Exercises = nil
			},
			wantErr: "at least one exercise",
		},
		{
			name: "workout day without a name",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Days[0].Name = ""
			},
			wantErr: "name is required",
		},
		{
			name: "rest day with exercises",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Days[0].RestDay = true
			},
			wantErr: "rest day carries exercises",
		},
		{
			name: "unknown section",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Days[0].Exercises[0].Section = "finisher"
			},
			wantErr: "unknown section",
		},
		{
			name: "zero sets",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Days[0].Exercises[0].Sets = 0
			},
			wantErr: "sets must be >= 1",
		},
		{
			name: "missing reps",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Days[0].Exercises[0].Reps = ""
			},
			wantErr: "reps is required",
		},
		{
			name: "unknown intensity level",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Days[0].Exercises[0].IntensityLevel = "max"
			},
			wantErr: "unknown intensity level",
		},
		{
			name: "bad exercise id",
			mutate: func(d *gridDocument) {
				d.Categories[0].Phases[0].SkillLevels[0].Weeks[0].Days[0].Exercises[0].ExerciseID = "xyz"
			},
			wantErr: "invalid exerciseId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := baseDoc()
			tt.mutate(doc)
			_, err := buildTemplates(doc)
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseGridEmpty(t *testing.T) {
	if _, err := parseGrid([]byte("categories: []")); err == nil {
		t.Fatal("expected error for empty grid")
	}
	if _, err := parseGrid([]byte("{invalid yaml")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestCountTemplates(t *testing.T) {
	doc, err := parseGrid([]byte(validGridYAML))
	if err != nil {
		t.Fatalf("parseGrid: %v", err)
	}
	templates, err := buildTemplates(doc)
	if err != nil {
		t.Fatalf("buildTemplates: %v", err)
	}
	counts := countTemplates(templates)
	if counts.Templates != 3 || counts.RestDays != 1 || counts.Exercises != 3 {
		t.Errorf("counts = %+v, want {Templates:3 RestDays:1 Exercises:3}", counts)
	}
}
