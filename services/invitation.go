package services

import (
	"log"

	"github.com/google/uuid"

	"tripsplit-backend/database"
	"tripsplit-backend/models"
)

// InviteToTrip creates an invitation and notifies the invitee. If the
// email already belongs to a registered user they are added to the trip
// directly as a viewer.
func InviteToTrip(tripID uuid.UUID, invitedBy uuid.UUID, email string, phone string) {
	// Check if invitation already exists
	var existing models.Invitation
	query := database.DB.Where("trip_id = ? AND status = ?", tripID, "pending")
	if email != "" {
		query = query.Where("email = ?", email)
	} else if phone != "" {
		query = query.Where("phone = ?", phone)
	}

	if err := query.First(&existing).Error; err == nil {
		log.Printf("Invitation already pending for %s/%s in trip %s", email, phone, tripID)
		return
	}

	// Check if user is already registered
	var existingUser models.User
	if email != "" {
		if err := database.DB.Where("email = ?", email).First(&existingUser).Error; err == nil {
			var existingMember models.TripParticipant
			if err := database.DB.Where("trip_id = ? AND user_id = ?", tripID, existingUser.ID).First(&existingMember).Error; err != nil {
				uid := existingUser.ID
				database.DB.Create(&models.TripParticipant{
					TripID: tripID,
					UserID: &uid,
					Name:   existingUser.Name,
					Role:   "viewer",
				})
				log.Printf("Added existing user %s to trip %s", email, tripID)
			}
			return
		}
	}

	invitation := models.Invitation{
		TripID:    tripID,
		InvitedBy: invitedBy,
		Email:     email,
		Phone:     phone,
		Status:    "pending",
	}

	if err := database.DB.Create(&invitation).Error; err != nil {
		log.Printf("Failed to create invitation: %v", err)
		return
	}

	var inviter models.User
	database.DB.First(&inviter, invitedBy)
	var trip models.Trip
	database.DB.First(&trip, tripID)

	if email != "" {
		GetNotificationService().NotifyInvitation(email, inviter.Name, trip.Title)
	}

	log.Printf("Invitation sent to %s/%s for trip %s", email, phone, tripID)
}
