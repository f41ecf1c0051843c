package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func day(n int) time.Time {
	return time.Date(2025, time.June, n, 0, 0, 0, 0, time.UTC)
}

func TestNetBalancesZeroSum(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	participants := []Participant{{ID: a}, {ID: b}, {ID: c}}

	expenses := []Expense{
		{ID: uuid.New(), Amount: 90, PaidBy: a, Date: day(1), Splits: []Split{{a, 30}, {b, 30}, {c, 30}}},
		{ID: uuid.New(), Amount: 40, PaidBy: b, Date: day(2), Splits: []Split{{a, 20}, {b, 20}}},
	}

	balances := NetBalances(participants, expenses)

	var sum float64
	for _, amt := range balances {
		sum += amt
	}
	if math.Abs(sum) > 1e-6 {
		t.Fatalf("balances should sum to zero, got %.6f", sum)
	}
	if math.Abs(balances[a]-40) > 1e-6 {
		t.Errorf("A paid 90, owes 50: expected +40, got %.2f", balances[a])
	}
	if math.Abs(balances[b]+10) > 1e-6 {
		t.Errorf("B paid 40, owes 50: expected -10, got %.2f", balances[b])
	}
	if math.Abs(balances[c]+30) > 1e-6 {
		t.Errorf("C owes 30: expected -30, got %.2f", balances[c])
	}
}

func TestNetBalancesEmptyExpenses(t *testing.T) {
	a := uuid.New()
	balances := NetBalances([]Participant{{ID: a}}, nil)
	if len(balances) != 1 || balances[a] != 0 {
		t.Fatalf("expected a single zero balance, got %v", balances)
	}
}

func TestNetBalancesIgnoresUnknownReferences(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	ghost := uuid.New()
	participants := []Participant{{ID: a}, {ID: b}}

	expenses := []Expense{
		{ID: uuid.New(), Amount: 50, PaidBy: a, Splits: []Split{{a, 25}, {ghost, 25}}},
		{ID: uuid.New(), Amount: 10, PaidBy: ghost, Splits: []Split{{b, 10}}},
	}

	balances := NetBalances(participants, expenses)
	if _, ok := balances[ghost]; ok {
		t.Fatalf("unknown participant must not gain a balance entry")
	}
	if math.Abs(balances[a]-25) > 1e-6 {
		t.Errorf("A: expected +25, got %.2f", balances[a])
	}
	if math.Abs(balances[b]+10) > 1e-6 {
		t.Errorf("B: expected -10, got %.2f", balances[b])
	}
}

func TestSettlementExpenseZeroesImbalance(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	participants := []Participant{{ID: a}, {ID: b}}

	expenses := []Expense{
		// B owes A 40 after the shared dinner.
		{ID: uuid.New(), Amount: 80, PaidBy: a, Date: day(1), Splits: []Split{{a, 40}, {b, 40}}},
		// Recorded settlement: B pays, A is the sole debtor of the "expense".
		{ID: uuid.New(), Amount: 40, PaidBy: b, Date: day(2), Category: "Settlement", Splits: []Split{{a, 40}}},
	}

	balances := NetBalances(participants, expenses)
	for id, amt := range balances {
		if math.Abs(amt) > 1e-6 {
			t.Errorf("balance for %s should be zero after settlement, got %.2f", id, amt)
		}
	}
}

func TestNetBalancesAsOf(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	participants := []Participant{{ID: a}, {ID: b}}

	expenses := []Expense{
		{ID: uuid.New(), Amount: 60, PaidBy: a, Date: day(1), Splits: []Split{{a, 30}, {b, 30}}},
		{ID: uuid.New(), Amount: 100, PaidBy: b, Date: day(3), Splits: []Split{{a, 50}, {b, 50}}},
	}

	asOfDayOne := NetBalancesAsOf(participants, expenses, day(1))
	if math.Abs(asOfDayOne[a]-30) > 1e-6 || math.Abs(asOfDayOne[b]+30) > 1e-6 {
		t.Errorf("after day 1 expected A +30 / B -30, got %v", asOfDayOne)
	}

	asOfDayThree := NetBalancesAsOf(participants, expenses, day(3))
	if math.Abs(asOfDayThree[a]+20) > 1e-6 || math.Abs(asOfDayThree[b]-20) > 1e-6 {
		t.Errorf("after day 3 expected A -20 / B +20, got %v", asOfDayThree)
	}
}
