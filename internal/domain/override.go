package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleOverride holds an athlete's deviations from the canonical template
// grid: per-phase slot swaps plus an optional "today focus" redirect. One
// logical document per athlete, created lazily on the first swap or focus
// action and never deleted (reset empties it instead).
type ScheduleOverride struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`

	// SlotSwaps maps phase -> slot key ("week-day") -> template assigned to
	// that slot instead of the canonical one. Entries equal to the canonical
	// assignment are normalized away, so a swap applied twice leaves the
	// document as it started.
	SlotSwaps map[Phase]map[string]primitive.ObjectID `bson:"slotSwaps,omitempty" json:"slotSwaps,omitempty"`

	// TodayFocusTemplateID, when set, wins over the natural (week, day)
	// lookup until cleared or until its target is completed.
	TodayFocusTemplateID *primitive.ObjectID `bson:"todayFocusTemplateId,omitempty" json:"todayFocusTemplateId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SwappedTemplate looks up the override assignment for a slot, if any.
func (o *ScheduleOverride) SwappedTemplate(slot Slot) (primitive.ObjectID, bool) {
	if o == nil || o.SlotSwaps == nil {
		return primitive.NilObjectID, false
	}
	perm, ok := o.SlotSwaps[slot.Phase]
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := perm[slot.Key()]
	return id, ok
}

// HasSwaps reports whether the phase has any active permutation entries.
func (o *ScheduleOverride) HasSwaps(phase Phase) bool {
	return o != nil && len(o.SlotSwaps[phase]) > 0
}
