package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ZeroTolerance is the noise band around zero inside which a balance is
// considered settled. Carried over from the float arithmetic of the
// balance math.
const ZeroTolerance = 0.01

// Settlement is one pending transfer in a settlement plan.
type Settlement struct {
	FromID uuid.UUID `json:"from_id"`
	From   string    `json:"from"`
	ToID   uuid.UUID `json:"to_id"`
	To     string    `json:"to"`
	Amount float64   `json:"amount"`
}

type runningBalance struct {
	id     uuid.UUID
	amount float64
}

// PlanSettlements reduces a set of net balances to a short list of
// debtor -> creditor transfers that zeroes every balance.
//
// Greedy largest-remaining-first: debtors sorted most negative first,
// creditors largest first, walked with two cursors. Not provably minimal
// in pathological cases, but minimal in practice and deterministic:
// ties are broken by participant id so the plan is stable across calls.
func PlanSettlements(balances map[uuid.UUID]float64, nameOf func(uuid.UUID) string) []Settlement {
	var debtors, creditors []runningBalance
	for id, amount := range balances {
		if amount < -ZeroTolerance {
			debtors = append(debtors, runningBalance{id, amount})
		} else if amount > ZeroTolerance {
			creditors = append(creditors, runningBalance{id, amount})
		}
	}

	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].amount != debtors[j].amount {
			return debtors[i].amount < debtors[j].amount
		}
		return debtors[i].id.String() < debtors[j].id.String()
	})
	sort.Slice(creditors, func(i, j int) bool {
		if creditors[i].amount != creditors[j].amount {
			return creditors[i].amount > creditors[j].amount
		}
		return creditors[i].id.String() < creditors[j].id.String()
	})

	var plan []Settlement
	d, c := 0, 0
	for d < len(debtors) && c < len(creditors) {
		debtor := &debtors[d]
		creditor := &creditors[c]

		amount := -debtor.amount
		if creditor.amount < amount {
			amount = creditor.amount
		}

		plan = append(plan, Settlement{
			FromID: debtor.id,
			From:   nameOf(debtor.id),
			ToID:   creditor.id,
			To:     nameOf(creditor.id),
			Amount: amount,
		})

		debtor.amount += amount
		creditor.amount -= amount

		if debtor.amount > -ZeroTolerance {
			d++
		}
		if creditor.amount < ZeroTolerance {
			c++
		}
	}
	return plan
}

// PlanSettlementsAsOf runs the same plan against the expense prefix up to
// and including the cutoff date, producing the "who owes whom after day N"
// view used by trip snapshots.
func PlanSettlementsAsOf(participants []Participant, expenses []Expense, cutoff time.Time, nameOf func(uuid.UUID) string) []Settlement {
	return PlanSettlements(NetBalancesAsOf(participants, expenses, cutoff), nameOf)
}
