package handlers

import (
	"net/http"

	"tripsplit-backend/database"
	"tripsplit-backend/models"
	"tripsplit-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GET /api/activity — activity across all trips the user belongs to
func GetActivity(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var memberships []models.TripParticipant
	database.DB.Where("user_id = ?", userID).Find(&memberships)

	var tripIDs []uuid.UUID
	for _, m := range memberships {
		tripIDs = append(tripIDs, m.TripID)
	}

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	var activities []models.Activity
	if len(tripIDs) > 0 {
		database.DB.Where("trip_id IN ?", tripIDs).
			Preload("User").
			Order("created_at DESC").
			Offset(pagination.Offset()).
			Limit(pagination.Limit).
			Find(&activities)
	}

	// Attach trip titles
	titles := make(map[uuid.UUID]string)
	for i, a := range activities {
		if _, ok := titles[a.TripID]; !ok {
			var trip models.Trip
			if err := database.DB.First(&trip, a.TripID).Error; err == nil {
				titles[a.TripID] = trip.Title
			}
		}
		activities[i].TripTitle = titles[a.TripID]
	}

	utils.SuccessResponse(c, http.StatusOK, "", activities)
}

// GET /api/trips/:id/activity
func GetTripActivity(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid trip ID")
		return
	}

	if _, ok := membershipOf(tripID, userID); !ok {
		utils.Unauthorized(c, "You are not a member of this trip")
		return
	}

	var pagination utils.PaginationQuery
	c.ShouldBindQuery(&pagination)

	var activities []models.Activity
	database.DB.Where("trip_id = ?", tripID).
		Preload("User").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&activities)

	utils.SuccessResponse(c, http.StatusOK, "", activities)
}
