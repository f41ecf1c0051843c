package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Split is one participant's owed portion of an expense.
type Split struct {
	ParticipantID uuid.UUID
	Amount        float64
}

// Expense is the ledger view of a trip expense: who paid, how much, and
// how the cost is divided. Settlement expenses (category "Settlement")
// flow through the balance math like any other expense.
type Expense struct {
	ID        uuid.UUID
	Title     string
	Amount    float64
	Date      time.Time
	Category  string
	PaidBy    uuid.UUID
	SplitMode SplitMode // empty for legacy rows created before tagging
	Splits    []Split
}

// NetBalances computes each participant's signed net position: payers
// gain the full expense amount, debtors lose their split amount.
// Positive means the group owes them, negative means they owe the group.
//
// Splits or payers referencing an id outside the participant snapshot are
// ignored so a single corrupt row cannot distort the whole view. An empty
// expense list yields all-zero balances.
func NetBalances(participants []Participant, expenses []Expense) map[uuid.UUID]float64 {
	balances := make(map[uuid.UUID]float64, len(participants))
	for _, p := range participants {
		balances[p.ID] = 0
	}

	for _, exp := range expenses {
		if _, ok := balances[exp.PaidBy]; ok {
			balances[exp.PaidBy] += exp.Amount
		}
		for _, split := range exp.Splits {
			if _, ok := balances[split.ParticipantID]; ok {
				balances[split.ParticipantID] -= split.Amount
			}
		}
	}
	return balances
}

// NetBalancesAsOf computes balances from the expenses dated on or before
// the cutoff, giving the settlement state as of a trip day.
func NetBalancesAsOf(participants []Participant, expenses []Expense, cutoff time.Time) map[uuid.UUID]float64 {
	var prefix []Expense
	for _, exp := range expenses {
		if !exp.Date.After(cutoff) {
			prefix = append(prefix, exp)
		}
	}
	return NetBalances(participants, prefix)
}
