package domain

import "testing"

func TestSessionStatusTerminal(t *testing.T) {
	cases := []struct {
		status SessionStatus
		want   bool
	}{
		{SessionInProgress, false},
		{SessionCompleted, true},
		{SessionAbandoned, true},
		{SessionStatus(""), false},
	}
	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.want {
			t.Errorf("Terminal(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}

	session := WorkoutSession{Status: SessionCompleted}
	if !session.Finalized() {
		t.Error("expected a completed session to report finalized")
	}
}

func TestSetRecordDone(t *testing.T) {
	if (SetRecord{}).Done() {
		t.Error("an untouched set must not count as done")
	}
	if !(SetRecord{Completed: true}).Done() {
		t.Error("a completed set counts as done")
	}
	if !(SetRecord{Skipped: true}).Done() {
		t.Error("a skipped set counts as done")
	}
}

func TestRecomputeCompleted(t *testing.T) {
	cases := []struct {
		name string
		sets []SetRecord
		want bool
	}{
		{"no set records", nil, false},
		{"one pending", []SetRecord{{Completed: true}, {}}, false},
		{"all completed", []SetRecord{{Completed: true}, {Completed: true}}, true},
		{"completed and skipped mix", []SetRecord{{Completed: true}, {Skipped: true}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Seed the stale opposite value so the recompute has to flip it.
			ex := ExerciseCompletion{Completed: !tc.want, Sets: tc.sets}
			ex.RecomputeCompleted()
			if ex.Completed != tc.want {
				t.Fatalf("Completed = %v, want %v", ex.Completed, tc.want)
			}
		})
	}
}

func TestRecomputeCompletedReverts(t *testing.T) {
	ex := ExerciseCompletion{Sets: []SetRecord{{Completed: true}, {Completed: true}}}
	ex.RecomputeCompleted()
	if !ex.Completed {
		t.Fatal("expected the exercise completed with every set done")
	}

	// Un-checking a set pulls the exercise back out of completion.
	ex.Sets[1] = SetRecord{}
	ex.RecomputeCompleted()
	if ex.Completed {
		t.Fatal("expected the completion flag to follow the set records back down")
	}
}

func TestActiveIndex(t *testing.T) {
	cases := []struct {
		name      string
		exercises []ExerciseCompletion
		want      int
	}{
		{"fresh session", []ExerciseCompletion{{}, {}}, 0},
		{"first completed", []ExerciseCompletion{{Completed: true}, {}}, 1},
		{"first skipped", []ExerciseCompletion{{Skipped: true}, {}}, 1},
		{"gap before resolved tail", []ExerciseCompletion{{Completed: true}, {}, {Completed: true}}, 1},
		{"everything resolved", []ExerciseCompletion{{Completed: true}, {Skipped: true}}, 2},
		{"no exercises", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := WorkoutSession{Exercises: tc.exercises}
			if got := s.ActiveIndex(); got != tc.want {
				t.Fatalf("ActiveIndex() = %d, want %d", got, tc.want)
			}
		})
	}
}
