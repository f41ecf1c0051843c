package ledger

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/google/uuid"
)

// SplitStore is the persistence boundary the Reconciler works through.
// ReplaceSplits must swap one expense's splits atomically: the expense
// must never be left permanently without splits.
type SplitStore interface {
	ListExpensesWithSplits(tripID uuid.UUID) ([]Expense, error)
	ReplaceSplits(expenseID uuid.UUID, splits []Split) error
}

// ReconcileResult summarizes one reconciliation batch.
type ReconcileResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Reconciler recomputes stored equal splits after a participant's parent
// link changes, leaving manual splits untouched.
//
// The system historically did not persist whether an expense was split
// equally or manually, so for untagged rows that intent is inferred from
// the stored amounts. The tolerances are deliberately tight: a false
// negative only leaves a stale split in place, a false positive would
// corrupt a manual one.
type Reconciler struct {
	Store SplitStore
}

// Absolute tolerance for strict reconstruction of an equal split.
const strictMatchTolerance = 0.1

// Relative-unit tolerance for the heuristic candidate search.
const unitRoundTolerance = 0.05

// Extra candidate unit counts probed beyond the participant count.
const candidateUnitSlack = 5

// Recalculate evaluates every expense of the trip against the pre-change
// hierarchy, and rewrites the splits of those identified as equal splits
// using the post-change hierarchy (memberID re-parented to newParentID).
//
// A failed expense fetch aborts before any mutation. A failed split
// replacement is logged, counted as skipped, and does not stop the batch;
// re-running is safe since an already-correct expense re-detects as an
// equal split and rewrites to the same amounts.
func (r *Reconciler) Recalculate(tripID uuid.UUID, participants []Participant, memberID uuid.UUID, newParentID *uuid.UUID) (ReconcileResult, error) {
	expenses, err := r.Store.ListExpensesWithSplits(tripID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("fetch expenses for trip %s: %w", tripID, err)
	}

	oldHierarchy := NewHierarchy(participants)
	newHierarchy := NewHierarchy(Reparent(participants, memberID, newParentID))

	var result ReconcileResult
	for _, exp := range expenses {
		if len(exp.Splits) == 0 {
			result.Skipped++
			continue
		}

		involved, ok := equalSplitParticipants(oldHierarchy, exp)
		if !ok {
			result.Skipped++
			continue
		}

		newSplits := consolidate(newHierarchy, exp.Amount, involved)
		if len(newSplits) == 0 {
			result.Skipped++
			continue
		}

		if err := r.Store.ReplaceSplits(exp.ID, newSplits); err != nil {
			log.Printf("reconcile: replacing splits for expense %s failed: %v", exp.ID, err)
			result.Skipped++
			continue
		}
		result.Updated++
	}
	return result, nil
}

// equalSplitParticipants decides whether an expense was an equal split
// under the given hierarchy and, if so, returns the set of people the
// amount was divided between (payers plus the dependents they covered).
func equalSplitParticipants(h *Hierarchy, exp Expense) (map[uuid.UUID]bool, bool) {
	// Expenses written after split modes became persisted carry their
	// intent; only legacy rows need inference.
	switch exp.SplitMode {
	case SplitExact:
		return nil, false
	case SplitEqual:
		involved, _ := strictReconstruction(h, exp)
		return involved, true
	}

	if involved, ok := strictReconstruction(h, exp); ok {
		return involved, true
	}
	return heuristicUnitMatch(h, exp)
}

// strictReconstruction checks whether every split equals the per-unit
// share times that payer's household size (strategy A). The involved set
// is every split's payer plus all of their current dependents.
func strictReconstruction(h *Hierarchy, exp Expense) (map[uuid.UUID]bool, bool) {
	totalUnits := 0
	unitCounts := make(map[uuid.UUID]int, len(exp.Splits))
	involved := make(map[uuid.UUID]bool)

	for _, split := range exp.Splits {
		count := h.UnitCountOf(split.ParticipantID)
		unitCounts[split.ParticipantID] = count
		totalUnits += count
		involved[split.ParticipantID] = true
		for _, dep := range h.DependentsOf(split.ParticipantID) {
			involved[dep.ID] = true
		}
	}

	unitShare := exp.Amount / float64(totalUnits)
	for _, split := range exp.Splits {
		theoretical := unitShare * float64(unitCounts[split.ParticipantID])
		if math.Abs(split.Amount-theoretical) >= strictMatchTolerance {
			return involved, false
		}
	}
	return involved, true
}

// heuristicUnitMatch searches for a total unit count K such that every
// split is an integer multiple of amount/K (strategy B). Candidates start
// at the strict-mode total (the most likely value), then every count from
// the number of splits up to the participant count plus a little slack.
func heuristicUnitMatch(h *Hierarchy, exp Expense) (map[uuid.UUID]bool, bool) {
	strictTotal := 0
	for _, split := range exp.Splits {
		strictTotal += h.UnitCountOf(split.ParticipantID)
	}

	candidates := []int{strictTotal}
	for k := len(exp.Splits); k <= h.Size()+candidateUnitSlack; k++ {
		if k != strictTotal {
			candidates = append(candidates, k)
		}
	}

	for _, k := range candidates {
		if k == 0 {
			continue
		}
		share := exp.Amount / float64(k)

		fits := true
		splitUnits := make(map[uuid.UUID]int, len(exp.Splits))
		for _, split := range exp.Splits {
			raw := split.Amount / share
			units := int(math.Round(raw))
			if math.Abs(raw-float64(units)) > unitRoundTolerance {
				fits = false
				break
			}
			splitUnits[split.ParticipantID] = units
		}
		if !fits {
			continue
		}

		// K equal to the full roster means a global equal split. Accept
		// even if the hierarchy disagrees: legacy rows with broken
		// dependency links still imply everyone was included.
		if k == h.Size() {
			involved := make(map[uuid.UUID]bool, h.Size())
			for _, p := range h.Participants() {
				involved[p.ID] = true
			}
			return involved, true
		}

		// Otherwise each payer's assigned units must fit inside their own
		// household: themselves plus units-1 of their dependents, taken in
		// snapshot order.
		involved := make(map[uuid.UUID]bool)
		capacityValid := true
		for _, split := range exp.Splits {
			units := splitUnits[split.ParticipantID]
			if units > h.UnitCountOf(split.ParticipantID) {
				capacityValid = false
				break
			}
			involved[split.ParticipantID] = true
			deps := h.DependentsOf(split.ParticipantID)
			for i := 0; i < units-1 && i < len(deps); i++ {
				involved[deps[i].ID] = true
			}
		}
		if capacityValid {
			return involved, true
		}
	}
	return nil, false
}

// consolidate divides the amount evenly across the involved people and
// credits each share to the person's parent under the given hierarchy, or
// to themselves if independent. Same consolidation as equal-mode
// allocation, applied to the post-change structure.
func consolidate(h *Hierarchy, amount float64, involved map[uuid.UUID]bool) []Split {
	perPersonShare := amount / float64(len(involved))
	consolidated := make(map[uuid.UUID]float64)
	for personID := range involved {
		p, ok := h.Lookup(personID)
		if !ok {
			continue
		}
		targetID := p.ID
		if p.ParentID != nil {
			targetID = *p.ParentID
		}
		consolidated[targetID] += perPersonShare
	}

	splits := make([]Split, 0, len(consolidated))
	for id, amt := range consolidated {
		splits = append(splits, Split{ParticipantID: id, Amount: amt})
	}
	sort.Slice(splits, func(i, j int) bool {
		return splits[i].ParticipantID.String() < splits[j].ParticipantID.String()
	})
	return splits
}
