package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
)

type fakeSplitStore struct {
	expenses   []Expense
	listErr    error
	replaceErr map[uuid.UUID]error
	replaced   map[uuid.UUID][]Split
}

func (s *fakeSplitStore) ListExpensesWithSplits(tripID uuid.UUID) ([]Expense, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.expenses, nil
}

func (s *fakeSplitStore) ReplaceSplits(expenseID uuid.UUID, splits []Split) error {
	if err := s.replaceErr[expenseID]; err != nil {
		return err
	}
	if s.replaced == nil {
		s.replaced = make(map[uuid.UUID][]Split)
	}
	s.replaced[expenseID] = splits
	return nil
}

func splitAmounts(splits []Split) map[uuid.UUID]float64 {
	out := make(map[uuid.UUID]float64, len(splits))
	for _, s := range splits {
		out[s.ParticipantID] = s.Amount
	}
	return out
}

func TestRecalculateMovesDependentShare(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	participants := []Participant{
		{ID: a, Name: "Alice"},
		{ID: b, Name: "Bob"},
		{ID: c, Name: "Carl", ParentID: &a},
	}

	// 90 split equally over three heads, Carl consolidated into Alice.
	expID := uuid.New()
	store := &fakeSplitStore{expenses: []Expense{{
		ID: expID, Amount: 90, PaidBy: a,
		Splits: []Split{{a, 60}, {b, 30}},
	}}}

	r := &Reconciler{Store: store}
	result, err := r.Recalculate(uuid.New(), participants, c, &b)
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 || result.Skipped != 0 {
		t.Fatalf("expected 1 updated / 0 skipped, got %+v", result)
	}

	got := splitAmounts(store.replaced[expID])
	if math.Abs(got[a]-30) > 1e-6 || math.Abs(got[b]-60) > 1e-6 {
		t.Fatalf("after moving Carl under Bob expected A:30 B:60, got %v", got)
	}
}

func TestRecalculateIdempotentOnUnchangedHierarchy(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	participants := []Participant{
		{ID: a, Name: "Alice"},
		{ID: b, Name: "Bob"},
		{ID: c, Name: "Carl", ParentID: &a},
	}

	splits, err := Allocate(90, participants, SplitEqual, nil)
	if err != nil {
		t.Fatal(err)
	}
	var stored []Split
	for id, amt := range splits {
		stored = append(stored, Split{ParticipantID: id, Amount: amt})
	}

	expID := uuid.New()
	store := &fakeSplitStore{expenses: []Expense{{ID: expID, Amount: 90, PaidBy: a, Splits: stored}}}

	// Re-parent Carl to the parent he already has: strict reconstruction
	// must fire and rewrite identical amounts.
	r := &Reconciler{Store: store}
	result, err := r.Recalculate(uuid.New(), participants, c, &a)
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 {
		t.Fatalf("expected the equal split to be detected, got %+v", result)
	}

	got := splitAmounts(store.replaced[expID])
	for id, amt := range splits {
		if math.Abs(got[id]-amt) > 1e-6 {
			t.Errorf("split for %s changed: %.6f -> %.6f", id, amt, got[id])
		}
	}
}

func TestRecalculateSkipsManualSplit(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	participants := []Participant{{ID: a, Name: "Alice"}, {ID: b, Name: "Bob"}}

	store := &fakeSplitStore{expenses: []Expense{{
		ID: uuid.New(), Amount: 100, PaidBy: a,
		Splits: []Split{{a, 70}, {b, 30}},
	}}}

	r := &Reconciler{Store: store}
	result, err := r.Recalculate(uuid.New(), participants, b, &a)
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 0 || result.Skipped != 1 {
		t.Fatalf("70/30 split must be left untouched, got %+v", result)
	}
	if len(store.replaced) != 0 {
		t.Fatalf("no splits should have been rewritten: %v", store.replaced)
	}
}

func TestRecalculateLegacyFullSplit(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	// Carl's dependency link was lost: everyone looks independent, but the
	// stored amounts still imply a three-way split.
	participants := []Participant{
		{ID: a, Name: "Alice"},
		{ID: b, Name: "Bob"},
		{ID: c, Name: "Carl"},
	}

	expID := uuid.New()
	store := &fakeSplitStore{expenses: []Expense{{
		ID: expID, Amount: 100, PaidBy: a,
		Splits: []Split{{a, 66.67}, {b, 33.33}},
	}}}

	r := &Reconciler{Store: store}
	result, err := r.Recalculate(uuid.New(), participants, c, &a)
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 {
		t.Fatalf("K == participant count should match as a full equal split, got %+v", result)
	}

	got := splitAmounts(store.replaced[expID])
	if math.Abs(got[a]-100.0*2/3) > 1e-6 || math.Abs(got[b]-100.0/3) > 1e-6 {
		t.Fatalf("expected Carl's share consolidated into Alice, got %v", got)
	}
}

func TestRecalculateHonorsSplitModeTag(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	participants := []Participant{{ID: a, Name: "Alice"}, {ID: b, Name: "Bob"}}

	taggedExact := uuid.New()
	taggedEqual := uuid.New()
	store := &fakeSplitStore{expenses: []Expense{
		// Looks exactly like an equal split, but tagged manual: must be
		// skipped without inference.
		{ID: taggedExact, Amount: 100, PaidBy: a, SplitMode: SplitExact, Splits: []Split{{a, 50}, {b, 50}}},
		{ID: taggedEqual, Amount: 100, PaidBy: a, SplitMode: SplitEqual, Splits: []Split{{a, 50}, {b, 50}}},
	}}

	r := &Reconciler{Store: store}
	result, err := r.Recalculate(uuid.New(), participants, b, &a)
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 || result.Skipped != 1 {
		t.Fatalf("expected tagged-equal updated and tagged-exact skipped, got %+v", result)
	}
	if _, ok := store.replaced[taggedExact]; ok {
		t.Fatal("tagged-exact expense was rewritten")
	}
	got := splitAmounts(store.replaced[taggedEqual])
	if math.Abs(got[a]-100) > 1e-6 {
		t.Fatalf("with Bob under Alice the whole amount lands on Alice, got %v", got)
	}
}

func TestRecalculateFetchFailureIsFatal(t *testing.T) {
	store := &fakeSplitStore{listErr: errors.New("connection refused")}
	r := &Reconciler{Store: store}

	_, err := r.Recalculate(uuid.New(), []Participant{{ID: uuid.New()}}, uuid.New(), nil)
	if err == nil {
		t.Fatal("a failed expense fetch must abort the batch")
	}
	if len(store.replaced) != 0 {
		t.Fatal("nothing may be mutated after a failed fetch")
	}
}

func TestRecalculateContinuesPastReplaceFailure(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	participants := []Participant{
		{ID: a, Name: "Alice"},
		{ID: b, Name: "Bob"},
		{ID: c, Name: "Carl", ParentID: &a},
	}

	broken := uuid.New()
	healthy := uuid.New()
	store := &fakeSplitStore{
		expenses: []Expense{
			{ID: broken, Amount: 90, PaidBy: a, Splits: []Split{{a, 45}, {b, 45}}},
			{ID: healthy, Amount: 30, PaidBy: b, Splits: []Split{{a, 15}, {b, 15}}},
		},
		replaceErr: map[uuid.UUID]error{broken: errors.New("deadlock")},
	}

	r := &Reconciler{Store: store}
	result, err := r.Recalculate(uuid.New(), participants, c, &b)
	if err != nil {
		t.Fatalf("a single replace failure must not fail the batch: %v", err)
	}
	if result.Updated != 1 || result.Skipped != 1 {
		t.Fatalf("expected 1 updated / 1 skipped, got %+v", result)
	}
	if _, ok := store.replaced[healthy]; !ok {
		t.Fatal("the healthy expense should still have been rewritten")
	}
}
