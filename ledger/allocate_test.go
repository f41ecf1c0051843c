package ledger

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func TestAllocateEqualConsolidatesDependents(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	participants := []Participant{
		{ID: a, Name: "Alice"},
		{ID: b, Name: "Bob"},
		{ID: c, Name: "Carl", ParentID: &a},
	}

	splits, err := Allocate(100, participants, SplitEqual, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := splits[c]; ok {
		t.Errorf("dependent must not appear in consolidated splits")
	}
	if math.Abs(splits[a]-100.0*2/3) > 1e-6 {
		t.Errorf("Alice should carry her own share plus Carl's, got %.6f", splits[a])
	}
	if math.Abs(splits[b]-100.0/3) > 1e-6 {
		t.Errorf("Bob should carry one share, got %.6f", splits[b])
	}

	var sum float64
	for _, amt := range splits {
		sum += amt
	}
	if math.Abs(sum-100) > 1e-6 {
		t.Errorf("splits should sum to the amount, got %.6f", sum)
	}
}

func TestAllocateExactToleratesSmallDrift(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	participants := []Participant{{ID: a}, {ID: b}}

	// Off by 10: rejected with a ValidationError naming both sums.
	_, err := Allocate(100, participants, SplitExact, map[uuid.UUID]float64{a: 60, b: 30})
	if err == nil {
		t.Fatal("expected validation error for mismatched splits")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Message == "" {
		t.Fatal("validation error should carry a message")
	}

	// Off by 0.04: inside the 0.05 tolerance.
	splits, err := Allocate(100, participants, SplitExact, map[uuid.UUID]float64{a: 60, b: 39.96})
	if err != nil {
		t.Fatalf("expected near-match to pass, got %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("expected both splits kept, got %d", len(splits))
	}
}

func TestAllocateExactDropsZeroEntries(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	participants := []Participant{{ID: a}, {ID: b}, {ID: c}}

	splits, err := Allocate(100, participants, SplitExact, map[uuid.UUID]float64{a: 70, b: 30, c: 0})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := splits[c]; ok {
		t.Errorf("zero-amount entries should be dropped")
	}
}

func TestAllocateRejectsBadInput(t *testing.T) {
	a := uuid.New()
	participants := []Participant{{ID: a}}

	cases := []struct {
		name   string
		amount float64
		mode   SplitMode
		manual map[uuid.UUID]float64
	}{
		{"zero amount", 0, SplitEqual, nil},
		{"negative amount", -5, SplitEqual, nil},
		{"exact without splits", 100, SplitExact, nil},
		{"unknown mode", 100, SplitMode("percentage"), nil},
	}
	for _, tc := range cases {
		if _, err := Allocate(tc.amount, participants, tc.mode, tc.manual); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	if _, err := Allocate(100, nil, SplitEqual, nil); err == nil {
		t.Error("empty roster: expected error")
	}
}
