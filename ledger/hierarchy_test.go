package ledger

import (
	"testing"

	"github.com/google/uuid"
)

func TestHierarchyLookups(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	d := uuid.New()

	h := NewHierarchy([]Participant{
		{ID: a, Name: "Alice"},
		{ID: b, Name: "Bob"},
		{ID: c, Name: "Carl", ParentID: &a},
		{ID: d, Name: "Dana", ParentID: &a},
	})

	if h.Size() != 4 {
		t.Fatalf("expected size 4, got %d", h.Size())
	}
	if got := h.UnitCountOf(a); got != 3 {
		t.Errorf("Alice unit count: expected 3, got %d", got)
	}
	if got := h.UnitCountOf(b); got != 1 {
		t.Errorf("Bob unit count: expected 1, got %d", got)
	}
	if got := h.UnitCountOf(c); got != 1 {
		t.Errorf("dependent unit count: expected 1, got %d", got)
	}

	deps := h.DependentsOf(a)
	if len(deps) != 2 || deps[0].ID != c || deps[1].ID != d {
		t.Errorf("dependents of Alice should be [Carl Dana] in snapshot order, got %v", deps)
	}
	if len(h.DependentsOf(b)) != 0 {
		t.Errorf("Bob should have no dependents")
	}

	alice, _ := h.Lookup(a)
	if !alice.IsIndependent() {
		t.Errorf("Alice should be independent")
	}
	carl, _ := h.Lookup(c)
	if carl.IsIndependent() {
		t.Errorf("Carl should be dependent")
	}
}

func TestReparentDoesNotMutateInput(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	original := []Participant{
		{ID: a, Name: "Alice"},
		{ID: b, Name: "Bob"},
		{ID: c, Name: "Carl", ParentID: &a},
	}

	updated := Reparent(original, c, &b)

	if original[2].ParentID == nil || *original[2].ParentID != a {
		t.Fatalf("original snapshot was mutated")
	}
	if updated[2].ParentID == nil || *updated[2].ParentID != b {
		t.Fatalf("updated snapshot should have Carl under Bob")
	}

	independent := Reparent(original, c, nil)
	if independent[2].ParentID != nil {
		t.Fatalf("Carl should be independent after reparenting to nil")
	}
}
