package utils

import "testing"

func TestRoundToTwo(t *testing.T) {
	cases := []struct {
		in  float64
		out float64
	}{
		{1.005, 1.0}, // float 1.005 is stored just below, rounds down
		{1.015, 1.01},
		{33.333333, 33.33},
		{66.666666, 66.67},
		{0, 0},
	}
	for _, tc := range cases {
		if got := RoundToTwo(tc.in); got != tc.out {
			t.Errorf("RoundToTwo(%v) = %v, expected %v", tc.in, got, tc.out)
		}
	}
}

func TestPaginationOffset(t *testing.T) {
	p := PaginationQuery{Page: 3, Limit: 20}
	if p.Offset() != 40 {
		t.Errorf("expected offset 40, got %d", p.Offset())
	}
}
