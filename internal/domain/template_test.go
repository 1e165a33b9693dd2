package domain

import "testing"

func TestNormalizeSectionsLegacyDocument(t *testing.T) {
	// Documents written before the section split carry neither section tags
	// nor order indexes.
	template := WorkoutTemplate{Exercises: []PrescribedExercise{
		{Name: "Back Squat"},
		{Name: "Bench Press"},
		{Name: "Barbell Row"},
	}}
	template.NormalizeSections()

	for i, ex := range template.Exercises {
		if ex.Section != SectionMain {
			t.Errorf("exercise %d: expected section main, got %q", i, ex.Section)
		}
		if ex.OrderIndex != i {
			t.Errorf("exercise %d: expected order index %d, got %d", i, i, ex.OrderIndex)
		}
	}
}

func TestNormalizeSectionsKeepsModernDocument(t *testing.T) {
	template := WorkoutTemplate{Exercises: []PrescribedExercise{
		{Name: "Jump Rope", Section: SectionWarmup, OrderIndex: 0},
		{Name: "Back Squat", Section: SectionMain, OrderIndex: 0},
		{Name: "Split Squat", Section: SectionMain, OrderIndex: 1},
	}}
	template.NormalizeSections()

	if template.Exercises[0].Section != SectionWarmup {
		t.Errorf("expected the warmup tag kept, got %q", template.Exercises[0].Section)
	}
	if template.Exercises[1].OrderIndex != 0 || template.Exercises[2].OrderIndex != 1 {
		t.Errorf("expected explicit order indexes kept, got %d and %d",
			template.Exercises[1].OrderIndex, template.Exercises[2].OrderIndex)
	}
}

func TestMainExercisesOrdered(t *testing.T) {
	template := WorkoutTemplate{Exercises: []PrescribedExercise{
		{Name: "Cooldown Stretch", Section: SectionCooldown, OrderIndex: 0},
		{Name: "Third", Section: SectionMain, OrderIndex: 2},
		{Name: "First", Section: SectionMain, OrderIndex: 0},
		{Name: "Jump Rope", Section: SectionWarmup, OrderIndex: 0},
		{Name: "Second", Section: SectionMain, OrderIndex: 1},
	}}

	mains := template.MainExercises()
	if len(mains) != 3 {
		t.Fatalf("expected 3 main exercises, got %d", len(mains))
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if mains[i].Name != want {
			t.Errorf("position %d: expected %q, got %q", i, want, mains[i].Name)
		}
	}
}

func TestSectionExercises(t *testing.T) {
	template := WorkoutTemplate{Exercises: []PrescribedExercise{
		{Name: "Arm Circles", Section: SectionWarmup, OrderIndex: 1},
		{Name: "Back Squat", Section: SectionMain, OrderIndex: 0},
		{Name: "Jump Rope", Section: SectionWarmup, OrderIndex: 0},
	}}

	warmup := template.SectionExercises(SectionWarmup)
	if len(warmup) != 2 {
		t.Fatalf("expected 2 warmup exercises, got %d", len(warmup))
	}
	if warmup[0].Name != "Jump Rope" || warmup[1].Name != "Arm Circles" {
		t.Errorf("expected warmup ordered by index, got %q then %q", warmup[0].Name, warmup[1].Name)
	}
	if got := template.SectionExercises(SectionCooldown); len(got) != 0 {
		t.Errorf("expected no cooldown exercises, got %d", len(got))
	}
}

func TestSectionValid(t *testing.T) {
	for _, s := range []Section{SectionWarmup, SectionMain, SectionCooldown} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if Section("stretching").Valid() {
		t.Error("expected an unknown section to be invalid")
	}
}

func TestIntensityLevelRank(t *testing.T) {
	if !(IntensityLow.Rank() < IntensityModerate.Rank() && IntensityModerate.Rank() < IntensityHigh.Rank()) {
		t.Error("expected the total order low < moderate < high")
	}
	if IntensityLevel("extreme").Rank() != 0 {
		t.Error("expected an unknown level to rank below low")
	}
}

func TestTemplateSlot(t *testing.T) {
	template := WorkoutTemplate{Phase: PhaseSPP, Week: 3, Day: 2}
	slot := template.Slot()
	if slot.Phase != PhaseSPP || slot.Week != 3 || slot.Day != 2 {
		t.Fatalf("unexpected slot %+v", slot)
	}
}
