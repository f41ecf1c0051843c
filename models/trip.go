package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Trip struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string            `gorm:"not null;size:100" json:"title"`
	StartDate      time.Time         `gorm:"type:date" json:"start_date"`
	EndDate        time.Time         `gorm:"type:date" json:"end_date"`
	HeaderImageURL string            `json:"header_image_url,omitempty"`
	Currency       string            `gorm:"default:EUR;size:3" json:"currency"`
	Categories     string            `gorm:"size:500" json:"categories,omitempty"` // comma-separated expense categories
	CreatedBy      uuid.UUID         `gorm:"type:uuid" json:"created_by"`
	Creator        User              `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Participants   []TripParticipant `gorm:"foreignKey:TripID" json:"participants,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TripParticipant is one member of a trip. A participant may be linked to
// a registered user, or exist as a name-only member added by someone else
// (typical for children). A non-null ParentID marks a dependent whose
// expense shares are consolidated into the parent participant.
type TripParticipant struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TripID   uuid.UUID  `gorm:"type:uuid;index" json:"trip_id"`
	UserID   *uuid.UUID `gorm:"type:uuid" json:"user_id,omitempty"`
	User     *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Name     string     `gorm:"size:100" json:"name,omitempty"`
	Role     string     `gorm:"default:viewer;size:20" json:"role"` // owner, editor, viewer
	ParentID *uuid.UUID `gorm:"type:uuid" json:"parent_id,omitempty"`
	JoinedAt time.Time  `gorm:"autoCreateTime" json:"joined_at"`
}

func (p *TripParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DisplayName prefers the linked account's name over the free-form one.
func (p *TripParticipant) DisplayName() string {
	if p.User != nil && p.User.Name != "" {
		return p.User.Name
	}
	if p.Name != "" {
		return p.Name
	}
	return "Unknown"
}

// Request structs
type CreateTripRequest struct {
	Title          string   `json:"title" binding:"required"`
	StartDate      string   `json:"start_date"` // YYYY-MM-DD
	EndDate        string   `json:"end_date"`
	Currency       string   `json:"currency"`
	HeaderImageURL string   `json:"header_image_url"`
	Categories     []string `json:"categories"`
}

type UpdateTripRequest struct {
	Title          string   `json:"title"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	Currency       string   `json:"currency"`
	HeaderImageURL string   `json:"header_image_url"`
	Categories     []string `json:"categories"`
}

type AddParticipantRequest struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	ParentID string `json:"parent_id"`
}

type UpdateParticipantRequest struct {
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	ParentID *string `json:"parent_id"` // nil = unchanged, "" = make independent
}

// Response structs
type TripResponse struct {
	ID             uuid.UUID             `json:"id"`
	Title          string                `json:"title"`
	StartDate      time.Time             `json:"start_date"`
	EndDate        time.Time             `json:"end_date"`
	HeaderImageURL string                `json:"header_image_url,omitempty"`
	Currency       string                `json:"currency"`
	Categories     []string              `json:"categories"`
	CreatedBy      uuid.UUID             `json:"created_by"`
	UserRole       string                `json:"user_role,omitempty"`
	Participants   []ParticipantResponse `json:"participants"`
	CreatedAt      time.Time             `json:"created_at"`
}

type ParticipantResponse struct {
	ID       uuid.UUID  `json:"id"`
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Name     string     `json:"name"`
	Email    string     `json:"email,omitempty"`
	Role     string     `json:"role"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	JoinedAt time.Time  `json:"joined_at"`
}
