package models

import (
	"github.com/google/uuid"

	"tripsplit-backend/ledger"
)

// ParticipantBalance is one member's signed net position in a trip.
// Positive = the group owes them, negative = they owe the group.
type ParticipantBalance struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
	Amount        float64   `json:"amount"`
}

// TripBalanceSummary is returned for GET /api/trips/:id/balances
type TripBalanceSummary struct {
	TripID      uuid.UUID            `json:"trip_id"`
	TripTitle   string               `json:"trip_title"`
	Currency    string               `json:"currency"`
	TotalSpent  float64              `json:"total_spent"`
	Balances    []ParticipantBalance `json:"balances"`
	Settlements []ledger.Settlement  `json:"settlements"`
}

// DaySnapshot is the running settlement state after one trip day.
type DaySnapshot struct {
	Date         string              `json:"date"` // YYYY-MM-DD
	DayTotal     float64             `json:"day_total"`
	RunningTotal float64             `json:"running_total"`
	Settlements  []ledger.Settlement `json:"settlements"`
}

// TripSnapshot is returned for GET /api/trips/:id/snapshot
type TripSnapshot struct {
	TripID     uuid.UUID     `json:"trip_id"`
	Currency   string        `json:"currency"`
	TotalSpent float64       `json:"total_spent"`
	Days       []DaySnapshot `json:"days"`
}
