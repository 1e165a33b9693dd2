package domain

import (
	"testing"
	"time"
)

func TestPhaseProgression(t *testing.T) {
	cases := []struct {
		phase   Phase
		order   int
		next    Phase
		hasNext bool
	}{
		{PhaseGPP, 0, PhaseSPP, true},
		{PhaseSPP, 1, PhaseSSP, true},
		{PhaseSSP, 2, "", false},
	}
	for _, tc := range cases {
		if got := tc.phase.Order(); got != tc.order {
			t.Errorf("%s: Order() = %d, want %d", tc.phase, got, tc.order)
		}
		next, ok := tc.phase.Next()
		if next != tc.next || ok != tc.hasNext {
			t.Errorf("%s: Next() = (%q, %v), want (%q, %v)", tc.phase, next, ok, tc.next, tc.hasNext)
		}
		if !tc.phase.Valid() {
			t.Errorf("expected %q to be valid", tc.phase)
		}
	}
	if Phase("peak").Valid() {
		t.Error("expected an unknown phase to be invalid")
	}
	if got := Phase("peak").Order(); got != -1 {
		t.Errorf("unknown phase: Order() = %d, want -1", got)
	}
}

func TestSlotKey(t *testing.T) {
	if got := (Slot{Phase: PhaseGPP, Week: 1, Day: 1}).Key(); got != "1-1" {
		t.Errorf("Key() = %q, want 1-1", got)
	}
	// The key must not be ambiguous for multi-digit weeks.
	if got := (Slot{Phase: PhaseSPP, Week: 12, Day: 3}).Key(); got != "12-3" {
		t.Errorf("Key() = %q, want 12-3", got)
	}
}

func TestPhaseUnlocked(t *testing.T) {
	now := time.Now().UTC()
	program := ProgramState{Phase: PhaseGPP}

	if !program.PhaseUnlocked(PhaseGPP) {
		t.Error("gpp must always be unlocked")
	}
	if program.PhaseUnlocked(PhaseSPP) || program.PhaseUnlocked(PhaseSSP) {
		t.Error("later phases must start locked")
	}
	if program.PhaseUnlocked(Phase("peak")) {
		t.Error("an unknown phase can never be unlocked")
	}

	program.SPPUnlockedAt = &now
	if !program.PhaseUnlocked(PhaseSPP) {
		t.Error("expected spp unlocked once its timestamp is stamped")
	}
	if program.PhaseUnlocked(PhaseSSP) {
		t.Error("unlocking spp must not unlock ssp")
	}

	program.SSPUnlockedAt = &now
	got := program.UnlockedPhases()
	if len(got) != 3 || got[0] != PhaseGPP || got[1] != PhaseSPP || got[2] != PhaseSSP {
		t.Errorf("UnlockedPhases() = %v, want the full progression order", got)
	}
}

func TestCurrentSlot(t *testing.T) {
	program := ProgramState{Phase: PhaseSPP, Week: 2, Day: 4}
	slot := program.CurrentSlot()
	if slot.Phase != PhaseSPP || slot.Week != 2 || slot.Day != 4 {
		t.Fatalf("unexpected slot %+v", slot)
	}
}

func TestSkillLevelValid(t *testing.T) {
	for _, s := range []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if SkillLevel("expert").Valid() {
		t.Error("expected an unknown skill level to be invalid")
	}
}

func TestAgeGroupValid(t *testing.T) {
	for _, a := range []AgeGroup{AgeGroup8to9, AgeGroup10to13, AgeGroup14to17, AgeGroupAdult} {
		if !a.Valid() {
			t.Errorf("expected %q to be valid", a)
		}
	}
	if AgeGroup("30-40").Valid() {
		t.Error("expected an unknown age group to be invalid")
	}
}
