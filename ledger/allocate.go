package ledger

import "github.com/google/uuid"

// SplitMode selects how an expense is divided among participants.
type SplitMode string

const (
	// SplitEqual divides the amount per head across every participant
	// (dependents included) and consolidates dependent shares into their
	// parent's split.
	SplitEqual SplitMode = "equal"
	// SplitExact uses caller-supplied per-participant amounts as-is.
	SplitExact SplitMode = "exact"
)

// ExactSumTolerance is the absolute slack allowed between the sum of
// manually entered splits and the expense amount.
const ExactSumTolerance = 0.05

// Allocate converts a split request into a consolidated participant -> owed
// amount mapping.
//
// In equal mode the result is keyed by independent participants only: each
// dependent's per-head share is credited to their parent. In exact mode the
// manual amounts are used without consolidation, after checking they sum to
// the expense amount within ExactSumTolerance. Zero entries are dropped.
func Allocate(amount float64, participants []Participant, mode SplitMode, manual map[uuid.UUID]float64) (map[uuid.UUID]float64, error) {
	if amount <= 0 {
		return nil, validationErrorf("invalid amount")
	}

	switch mode {
	case SplitEqual:
		if len(participants) == 0 {
			return nil, validationErrorf("no participants to split between")
		}
		perPersonShare := amount / float64(len(participants))
		consolidated := make(map[uuid.UUID]float64)
		for _, p := range participants {
			// Dependent shares accrue to the parent, everyone else pays
			// their own.
			targetID := p.ID
			if p.ParentID != nil {
				targetID = *p.ParentID
			}
			consolidated[targetID] += perPersonShare
		}
		for id, amt := range consolidated {
			if amt == 0 {
				delete(consolidated, id)
			}
		}
		return consolidated, nil

	case SplitExact:
		if len(manual) == 0 {
			return nil, validationErrorf("splits required for exact split type")
		}
		var total float64
		for _, amt := range manual {
			total += amt
		}
		if diff := total - amount; diff > ExactSumTolerance || diff < -ExactSumTolerance {
			return nil, validationErrorf("splits (%.2f) do not match total amount (%.2f)", total, amount)
		}
		splits := make(map[uuid.UUID]float64, len(manual))
		for id, amt := range manual {
			if amt > 0 {
				splits[id] = amt
			}
		}
		return splits, nil

	default:
		return nil, validationErrorf("invalid split type: %s", mode)
	}
}
