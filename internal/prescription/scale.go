// Package prescription scales base template prescriptions to what an athlete
// actually performs, from their age bracket and current training phase. Pure
// functions only: no I/O, no state, identical inputs produce identical output.
package prescription

import (
	"math"

	"peakform/training-app/internal/domain"
)

// AgeRule caps what an age bracket may be prescribed.
type AgeRule struct {
	MaxIntensityLevel  domain.IntensityLevel
	OneRepMaxCeiling   float64 // max fraction of one-rep max
	MaxSetsPerExercise int
}

// AgeIntensityRules keys the age-based caps by bracket.
var AgeIntensityRules = map[domain.AgeGroup]AgeRule{
	domain.AgeGroup8to9:   {domain.IntensityLow, 0.30, 2}, // bodyweight emphasis
	domain.AgeGroup10to13: {domain.IntensityModerate, 0.65, 3},
	domain.AgeGroup14to17: {domain.IntensityHigh, 0.80, 4},
	domain.AgeGroupAdult:  {domain.IntensityHigh, 1.00, 6},
}

// PhaseRange is a phase's working-intensity band as fractions of one-rep max.
type PhaseRange struct {
	Min float64
	Max float64
}

// PhaseIntensityRanges keys the intensity bands by phase.
var PhaseIntensityRanges = map[domain.Phase]PhaseRange{
	domain.PhaseGPP: {0.50, 0.70},
	domain.PhaseSPP: {0.70, 0.85},
	domain.PhaseSSP: {0.85, 0.90},
}

// Scaled is the prescription the athlete actually performs.
type Scaled struct {
	Sets           int                   `json:"sets"`
	Reps           string                `json:"reps"`
	TargetWeight   *float64              `json:"targetWeight,omitempty"`
	IntensityLevel domain.IntensityLevel `json:"intensityLevel"`
	AppliedCeiling float64               `json:"appliedCeiling"`
	SkillLevel     domain.SkillLevel     `json:"skillLevel"`
}

// ruleFor returns the bracket's caps, falling back to the most restrictive
// rule for unknown brackets so a bad input can never raise intensity.
func ruleFor(age domain.AgeGroup) AgeRule {
	if rule, ok := AgeIntensityRules[age]; ok {
		return rule
	}
	return AgeIntensityRules[domain.AgeGroup8to9]
}

// rangeFor returns the phase band, falling back to GPP for unknown phases.
func rangeFor(phase domain.Phase) PhaseRange {
	if r, ok := PhaseIntensityRanges[phase]; ok {
		return r
	}
	return PhaseIntensityRanges[domain.PhaseGPP]
}

// EffectiveCeiling returns the working fraction of one-rep max for an age
// bracket training in a phase: min(age ceiling, phase max).
func EffectiveCeiling(age domain.AgeGroup, phase domain.Phase) float64 {
	ceiling := ruleFor(age).OneRepMaxCeiling
	if phaseMax := rangeFor(phase).Max; phaseMax < ceiling {
		return phaseMax
	}
	return ceiling
}

// ClampIntensity caps a level using the total order Low < Moderate < High.
func ClampIntensity(level, max domain.IntensityLevel) domain.IntensityLevel {
	if level.Rank() > max.Rank() {
		return max
	}
	return level
}

// WorkingWeight applies a ceiling fraction to a base load.
// Rounds down to the 0.5 kg increment, never above base * ceiling.
func WorkingWeight(base float64, ceiling float64) float64 {
	if base <= 0 || ceiling <= 0 {
		return 0
	}
	return math.Floor(base*ceiling*2) / 2
}

// Scale computes the prescription an athlete performs from a base template
// entry, their age bracket, and the current phase.
//
// Reps pass through untouched: the template grid already encodes rep ranges
// per skill level, and no age-based rep inflation is applied on top.
func Scale(base domain.PrescribedExercise, age domain.AgeGroup, phase domain.Phase, skill domain.SkillLevel) Scaled {
	rule := ruleFor(age)
	ceiling := EffectiveCeiling(age, phase)

	scaled := Scaled{
		Sets:           base.Sets,
		Reps:           base.Reps,
		IntensityLevel: ClampIntensity(base.IntensityLevel, rule.MaxIntensityLevel),
		AppliedCeiling: ceiling,
		SkillLevel:     skill,
	}
	if scaled.Sets > rule.MaxSetsPerExercise {
		scaled.Sets = rule.MaxSetsPerExercise
	}
	if base.TargetWeight != nil {
		weight := WorkingWeight(*base.TargetWeight, ceiling)
		scaled.TargetWeight = &weight
	}
	return scaled
}
