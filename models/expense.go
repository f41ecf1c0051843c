package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategorySettlement marks an expense recorded from the settlement plan:
// the payer is the debt-payer and the sole split is the creditor.
const CategorySettlement = "Settlement"

type Expense struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TripID    uuid.UUID      `gorm:"type:uuid;index" json:"trip_id"`
	Trip      Trip           `gorm:"foreignKey:TripID" json:"-"`
	PaidBy    uuid.UUID      `gorm:"type:uuid" json:"paid_by"` // TripParticipant id, always an independent member
	Title     string         `gorm:"not null;size:255" json:"title"`
	Amount    float64        `gorm:"type:decimal(12,2);not null" json:"amount"`
	Category  string         `gorm:"size:50" json:"category"`
	SplitType string         `gorm:"size:20" json:"split_type"` // equal, exact; empty on rows predating the tag
	Date      time.Time      `gorm:"type:date" json:"date"`
	Splits    []ExpenseSplit `gorm:"foreignKey:ExpenseID" json:"splits,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type ExpenseSplit struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExpenseID     uuid.UUID `gorm:"type:uuid;index" json:"expense_id"`
	ParticipantID uuid.UUID `gorm:"type:uuid" json:"participant_id"`
	Amount        float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

func (es *ExpenseSplit) BeforeCreate(tx *gorm.DB) error {
	if es.ID == uuid.Nil {
		es.ID = uuid.New()
	}
	return nil
}

// Request structs
type CreateExpenseRequest struct {
	Title     string             `json:"title" binding:"required"`
	Amount    float64            `json:"amount" binding:"required,gt=0"`
	Category  string             `json:"category"`
	PaidBy    string             `json:"paid_by" binding:"required"`
	SplitType string             `json:"split_type" binding:"required,oneof=equal exact"`
	Date      string             `json:"date"`   // YYYY-MM-DD
	Splits    map[string]float64 `json:"splits"` // participant id -> amount, required for exact
}

type UpdateExpenseRequest struct {
	Title     string             `json:"title"`
	Amount    float64            `json:"amount"`
	Category  string             `json:"category"`
	PaidBy    string             `json:"paid_by"`
	SplitType string             `json:"split_type"`
	Date      string             `json:"date"`
	Splits    map[string]float64 `json:"splits"`
}

// Response
type ExpenseResponse struct {
	ID        uuid.UUID       `json:"id"`
	TripID    uuid.UUID       `json:"trip_id"`
	PaidBy    uuid.UUID       `json:"paid_by"`
	PayerName string          `json:"payer_name"`
	Title     string          `json:"title"`
	Amount    float64         `json:"amount"`
	Category  string          `json:"category"`
	SplitType string          `json:"split_type,omitempty"`
	Date      time.Time       `json:"date"`
	Splits    []SplitResponse `json:"splits"`
	CreatedAt time.Time       `json:"created_at"`
}

type SplitResponse struct {
	ParticipantID   uuid.UUID `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	Amount          float64   `json:"amount"`
}
