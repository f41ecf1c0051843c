package ledger

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func namer(names map[uuid.UUID]string) func(uuid.UUID) string {
	return func(id uuid.UUID) string { return names[id] }
}

func TestPlanSettlementsGreedy(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	names := map[uuid.UUID]string{a: "Alice", b: "Bob", c: "Carl"}

	plan := PlanSettlements(map[uuid.UUID]float64{a: 60, b: -40, c: -20}, namer(names))

	if len(plan) != 2 {
		t.Fatalf("expected 2 transfers, got %d: %v", len(plan), plan)
	}
	// Largest debtor first, so Bob pays before Carl.
	if plan[0].From != "Bob" || plan[0].To != "Alice" || math.Abs(plan[0].Amount-40) > 1e-6 {
		t.Errorf("first transfer should be Bob -> Alice 40, got %+v", plan[0])
	}
	if plan[1].From != "Carl" || plan[1].To != "Alice" || math.Abs(plan[1].Amount-20) > 1e-6 {
		t.Errorf("second transfer should be Carl -> Alice 20, got %+v", plan[1])
	}

	var total float64
	for _, s := range plan {
		total += s.Amount
	}
	if math.Abs(total-60) > 1e-6 {
		t.Errorf("transfers should sum to total debt 60, got %.2f", total)
	}
}

func TestPlanSettlementsZeroesBalances(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	balances := map[uuid.UUID]float64{
		ids[0]: 75.5,
		ids[1]: -30.25,
		ids[2]: -50.25,
		ids[3]: 5,
	}

	plan := PlanSettlements(balances, func(uuid.UUID) string { return "" })

	applied := make(map[uuid.UUID]float64, len(balances))
	for id, amt := range balances {
		applied[id] = amt
	}
	for _, s := range plan {
		applied[s.FromID] += s.Amount
		applied[s.ToID] -= s.Amount
	}
	for id, amt := range applied {
		if math.Abs(amt) > ZeroTolerance {
			t.Errorf("balance %s not settled, remainder %.4f", id, amt)
		}
	}
}

func TestPlanSettlementsNoise(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	plan := PlanSettlements(map[uuid.UUID]float64{a: 0.004, b: -0.004}, func(uuid.UUID) string { return "" })
	if len(plan) != 0 {
		t.Fatalf("balances inside the noise band should produce no transfers, got %v", plan)
	}
}

func TestPlanSettlementsDeterministic(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	d := uuid.New()
	balances := map[uuid.UUID]float64{a: 50, b: 50, c: -50, d: -50}

	first := PlanSettlements(balances, func(uuid.UUID) string { return "" })
	for i := 0; i < 20; i++ {
		again := PlanSettlements(balances, func(uuid.UUID) string { return "" })
		if len(again) != len(first) {
			t.Fatalf("plan length changed between runs")
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("plan order changed between runs: %v vs %v", first, again)
			}
		}
	}
}

func TestPlanSettlementsAsOf(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	participants := []Participant{{ID: a, Name: "Alice"}, {ID: b, Name: "Bob"}}
	names := map[uuid.UUID]string{a: "Alice", b: "Bob"}

	expenses := []Expense{
		{ID: uuid.New(), Amount: 80, PaidBy: a, Date: day(1), Splits: []Split{{a, 40}, {b, 40}}},
		{ID: uuid.New(), Amount: 80, PaidBy: b, Date: day(2), Splits: []Split{{a, 40}, {b, 40}}},
	}

	afterDayOne := PlanSettlementsAsOf(participants, expenses, day(1), namer(names))
	if len(afterDayOne) != 1 || afterDayOne[0].From != "Bob" || afterDayOne[0].To != "Alice" {
		t.Fatalf("after day 1 Bob should owe Alice, got %v", afterDayOne)
	}

	afterDayTwo := PlanSettlementsAsOf(participants, expenses, day(2), namer(names))
	if len(afterDayTwo) != 0 {
		t.Fatalf("after day 2 everything is even, got %v", afterDayTwo)
	}
}
