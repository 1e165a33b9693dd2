package domain

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSwappedTemplate(t *testing.T) {
	slot := Slot{Phase: PhaseGPP, Week: 1, Day: 2}

	var absent *ScheduleOverride
	if _, ok := absent.SwappedTemplate(slot); ok {
		t.Error("a nil override must resolve to the canonical assignment")
	}
	if _, ok := (&ScheduleOverride{}).SwappedTemplate(slot); ok {
		t.Error("an empty override must resolve to the canonical assignment")
	}

	want := primitive.NewObjectID()
	override := &ScheduleOverride{SlotSwaps: map[Phase]map[string]primitive.ObjectID{
		PhaseGPP: {"1-2": want},
	}}
	got, ok := override.SwappedTemplate(slot)
	if !ok || got != want {
		t.Fatalf("SwappedTemplate = (%s, %v), want (%s, true)", got.Hex(), ok, want.Hex())
	}
	if _, ok := override.SwappedTemplate(Slot{Phase: PhaseSPP, Week: 1, Day: 2}); ok {
		t.Error("swaps are scoped per phase")
	}
	if _, ok := override.SwappedTemplate(Slot{Phase: PhaseGPP, Week: 2, Day: 2}); ok {
		t.Error("an unswapped slot must resolve to the canonical assignment")
	}
}

func TestHasSwaps(t *testing.T) {
	var absent *ScheduleOverride
	if absent.HasSwaps(PhaseGPP) {
		t.Error("a nil override has no swaps")
	}
	override := &ScheduleOverride{SlotSwaps: map[Phase]map[string]primitive.ObjectID{
		PhaseGPP: {"1-1": primitive.NewObjectID()},
		PhaseSPP: {},
	}}
	if !override.HasSwaps(PhaseGPP) {
		t.Error("expected gpp to report swaps")
	}
	if override.HasSwaps(PhaseSPP) {
		t.Error("an emptied phase must not report swaps")
	}
}
