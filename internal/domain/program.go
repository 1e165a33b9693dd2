package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Phase type for the three sequential training macro-cycles
type Phase string

// Define constants for phases (order matters: GPP -> SPP -> SSP)
const (
	PhaseGPP Phase = "gpp" // General Physical Preparedness
	PhaseSPP Phase = "spp" // Sport-Specific Preparedness
	PhaseSSP Phase = "ssp" // Sport-Specific Peaking
)

// AllPhases lists the phases in progression order.
var AllPhases = []Phase{PhaseGPP, PhaseSPP, PhaseSSP}

func (p Phase) Valid() bool {
	return p == PhaseGPP || p == PhaseSPP || p == PhaseSSP
}

// Order returns the phase's position in the progression (0-based), or -1.
func (p Phase) Order() int {
	for i, ph := range AllPhases {
		if p == ph {
			return i
		}
	}
	return -1
}

// Next returns the phase that follows p, or false when p is the last one.
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseGPP:
		return PhaseSPP, true
	case PhaseSPP:
		return PhaseSSP, true
	default:
		return "", false
	}
}

// SkillLevel type for the template grid's per-athlete difficulty axis
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

func (s SkillLevel) Valid() bool {
	return s == SkillBeginner || s == SkillIntermediate || s == SkillAdvanced
}

// AgeGroup type keying the age-based intensity rules
type AgeGroup string

const (
	AgeGroup8to9   AgeGroup = "8-9"
	AgeGroup10to13 AgeGroup = "10-13"
	AgeGroup14to17 AgeGroup = "14-17"
	AgeGroupAdult  AgeGroup = "18+"
)

func (a AgeGroup) Valid() bool {
	return a == AgeGroup8to9 || a == AgeGroup10to13 || a == AgeGroup14to17 || a == AgeGroupAdult
}

// Slot addresses one scheduled workout in the phase/week/day grid.
type Slot struct {
	Phase Phase `bson:"phase" json:"phase"`
	Week  int   `bson:"week" json:"week"` // 1-based
	Day   int   `bson:"day" json:"day"`   // 1-based within the week
}

// Key returns the "week-day" form used as the slot-swap map key.
func (s Slot) Key() string {
	return fmt.Sprintf("%d-%d", s.Week, s.Day)
}

// ReassessmentTicket is minted when an athlete exhausts a phase's day grid.
// The reassessment flow presents the token back to unlock the next phase.
type ReassessmentTicket struct {
	Token          string    `bson:"token" json:"token"`
	CompletedPhase Phase     `bson:"completedPhase" json:"completedPhase"`
	NextPhase      Phase     `bson:"nextPhase" json:"nextPhase"`
	CompletionRate float64   `bson:"completionRate" json:"completionRate"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// ProgramState represents an athlete's position inside their training program.
// One document per athlete; every mutation goes through the scheduler service.
type ProgramState struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	SportCategoryID primitive.ObjectID `bson:"sportCategoryId" json:"sportCategoryId"` // chosen at intake, keys the template grid
	Phase           Phase              `bson:"phase" json:"phase"`
	Week            int                `bson:"week" json:"week"`
	Day             int                `bson:"day" json:"day"`
	SkillLevel      SkillLevel         `bson:"skillLevel" json:"skillLevel"`
	AgeGroup        AgeGroup           `bson:"ageGroup" json:"ageGroup"`

	// Unlock timestamps are write-once: set when the reassessment flow
	// confirms the preceding phase, never cleared afterwards.
	SPPUnlockedAt *time.Time `bson:"sppUnlockedAt,omitempty" json:"sppUnlockedAt,omitempty"`
	SSPUnlockedAt *time.Time `bson:"sspUnlockedAt,omitempty" json:"sspUnlockedAt,omitempty"`

	PendingReassessment *ReassessmentTicket `bson:"pendingReassessment,omitempty" json:"pendingReassessment,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CurrentSlot returns the slot the athlete's day counters point at.
func (p *ProgramState) CurrentSlot() Slot {
	return Slot{Phase: p.Phase, Week: p.Week, Day: p.Day}
}

// PhaseUnlocked reports whether the athlete may resolve slots in the phase.
// GPP is always unlocked; later phases require their sticky unlock timestamp.
func (p *ProgramState) PhaseUnlocked(phase Phase) bool {
	switch phase {
	case PhaseGPP:
		return true
	case PhaseSPP:
		return p.SPPUnlockedAt != nil
	case PhaseSSP:
		return p.SSPUnlockedAt != nil
	default:
		return false
	}
}

// UnlockedPhases returns the unlocked phases in progression order.
func (p *ProgramState) UnlockedPhases() []Phase {
	out := make([]Phase, 0, len(AllPhases))
	for _, ph := range AllPhases {
		if p.PhaseUnlocked(ph) {
			out = append(out, ph)
		}
	}
	return out
}
