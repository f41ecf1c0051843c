// Package ledger implements the trip settlement engine: split allocation
// across a participant hierarchy, equal-split reconciliation after a
// re-parenting, net balance computation and debt simplification.
//
// All functions operate on in-memory snapshots and are safe for concurrent
// use; only the Reconciler touches storage, through an injected SplitStore.
package ledger

import "github.com/google/uuid"

// Participant is a trip member. A participant with a ParentID is a
// dependent: their share of any equal split is consolidated into the
// parent's split. Parents are always independent (no chains).
type Participant struct {
	ID       uuid.UUID
	Name     string
	Role     string // owner, editor, viewer
	ParentID *uuid.UUID
}

// IsIndependent reports whether the participant has no parent link.
func (p Participant) IsIndependent() bool {
	return p.ParentID == nil
}

// Hierarchy is an immutable snapshot of a trip's participant list with
// parent/dependent lookups.
type Hierarchy struct {
	participants []Participant
	byID         map[uuid.UUID]Participant
	dependents   map[uuid.UUID][]Participant
}

// NewHierarchy builds lookup tables over a participant snapshot.
// Dependent ordering follows the input order, which matters for the
// reconciler's partial-household matching.
func NewHierarchy(participants []Participant) *Hierarchy {
	h := &Hierarchy{
		participants: participants,
		byID:         make(map[uuid.UUID]Participant, len(participants)),
		dependents:   make(map[uuid.UUID][]Participant),
	}
	for _, p := range participants {
		h.byID[p.ID] = p
	}
	for _, p := range participants {
		if p.ParentID != nil {
			h.dependents[*p.ParentID] = append(h.dependents[*p.ParentID], p)
		}
	}
	return h
}

// Participants returns the underlying snapshot.
func (h *Hierarchy) Participants() []Participant {
	return h.participants
}

// Size returns the total number of participants, dependents included.
func (h *Hierarchy) Size() int {
	return len(h.participants)
}

// Lookup returns the participant with the given id.
func (h *Hierarchy) Lookup(id uuid.UUID) (Participant, bool) {
	p, ok := h.byID[id]
	return p, ok
}

// DependentsOf returns the direct dependents of a participant, in
// snapshot order.
func (h *Hierarchy) DependentsOf(id uuid.UUID) []Participant {
	return h.dependents[id]
}

// UnitCountOf returns the household size of a participant: themselves
// plus their direct dependents. Used as the unit weight in equal splits.
func (h *Hierarchy) UnitCountOf(id uuid.UUID) int {
	return 1 + len(h.dependents[id])
}

// Reparent returns a copy of the snapshot with one participant's parent
// changed. The original snapshot is left untouched.
func Reparent(participants []Participant, memberID uuid.UUID, newParentID *uuid.UUID) []Participant {
	updated := make([]Participant, len(participants))
	copy(updated, participants)
	for i := range updated {
		if updated[i].ID == memberID {
			updated[i].ParentID = newParentID
		}
	}
	return updated
}
