package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"tripsplit-backend/database"
	"tripsplit-backend/ledger"
	"tripsplit-backend/models"
	"tripsplit-backend/services"
	"tripsplit-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// POST /api/trips
func CreateTrip(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	trip := models.Trip{
		Title:          req.Title,
		StartDate:      parseDate(req.StartDate, time.Now()),
		EndDate:        parseDate(req.EndDate, time.Now()),
		Currency:       strings.ToUpper(currency),
		HeaderImageURL: req.HeaderImageURL,
		Categories:     strings.Join(req.Categories, ","),
		CreatedBy:      userID,
	}

	if err := database.DB.Create(&trip).Error; err != nil {
		utils.InternalError(c, "Failed to create trip")
		return
	}

	// Creator joins as owner
	var creator models.User
	database.DB.First(&creator, userID)
	uid := userID
	database.DB.Create(&models.TripParticipant{
		TripID: trip.ID,
		UserID: &uid,
		Name:   creator.Name,
		Role:   "owner",
	})

	database.DB.Create(&models.Activity{
		TripID:      trip.ID,
		UserID:      userID,
		Type:        "trip_created",
		ReferenceID: trip.ID,
		Description: fmt.Sprintf("%s created trip \"%s\"", creator.Name, trip.Title),
	})

	utils.SuccessResponse(c, http.StatusCreated, "Trip created", buildTripResponse(trip.ID, userID))
}

// GET /api/trips
func GetTrips(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var memberships []models.TripParticipant
	database.DB.Where("user_id = ?", userID).Find(&memberships)

	var tripIDs []uuid.UUID
	for _, m := range memberships {
		tripIDs = append(tripIDs, m.TripID)
	}

	var trips []models.Trip
	if len(tripIDs) > 0 {
		database.DB.Where("id IN ?", tripIDs).Order("created_at DESC").Find(&trips)
	}

	var responses []models.TripResponse
	for _, t := range trips {
		responses = append(responses, buildTripResponse(t.ID, userID))
	}
	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/trips/:id
func GetTrip(c *gin.Context) {
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

	utils.SuccessResponse(c, http.StatusOK, "", buildTripResponse(tripID, userID))
}

// PUT /api/trips/:id
func UpdateTrip(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid trip ID")
		return
	}

	if !canEdit(tripID, userID) {
		utils.Unauthorized(c, "Only owners and editors can update the trip")
		return
	}

	var req models.UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.StartDate != "" {
		updates["start_date"] = parseDate(req.StartDate, time.Now())
	}
	if req.EndDate != "" {
		updates["end_date"] = parseDate(req.EndDate, time.Now())
	}
	if req.Currency != "" {
		updates["currency"] = strings.ToUpper(req.Currency)
	}
	if req.HeaderImageURL != "" {
		updates["header_image_url"] = req.HeaderImageURL
	}
	if len(req.Categories) > 0 {
		updates["categories"] = strings.Join(req.Categories, ",")
	}

	database.DB.Model(&models.Trip{}).Where("id = ?", tripID).Updates(updates)

	utils.SuccessResponse(c, http.StatusOK, "Trip updated", buildTripResponse(tripID, userID))
}

// DELETE /api/trips/:id
func DeleteTrip(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid trip ID")
		return
	}

	membership, ok := membershipOf(tripID, userID)
	if !ok || membership.Role != "owner" {
		utils.Unauthorized(c, "Only the owner can delete a trip")
		return
	}

	var expenseIDs []uuid.UUID
	database.DB.Model(&models.Expense{}).Where("trip_id = ?", tripID).Pluck("id", &expenseIDs)
	if len(expenseIDs) > 0 {
		database.DB.Where("expense_id IN ?", expenseIDs).Delete(&models.ExpenseSplit{})
	}
	database.DB.Where("trip_id = ?", tripID).Delete(&models.Expense{})
	database.DB.Where("trip_id = ?", tripID).Delete(&models.TripParticipant{})
	database.DB.Where("trip_id = ?", tripID).Delete(&models.Activity{})
	database.DB.Where("trip_id = ?", tripID).Delete(&models.Invitation{})
	database.DB.Delete(&models.Trip{}, tripID)

	database.InvalidateBalances(c.Request.Context(), tripID)
	utils.SuccessResponse(c, http.StatusOK, "Trip deleted", nil)
}

// POST /api/trips/:id/participants
func AddParticipant(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid trip ID")
		return
	}

	if !canEdit(tripID, userID) {
		utils.Unauthorized(c, "Only owners and editors can add members")
		return
	}

	var req models.AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	participant := models.TripParticipant{
		TripID: tripID,
		Name:   req.Name,
		Role:   "viewer",
	}
	if req.Role == "editor" || req.Role == "viewer" {
		participant.Role = req.Role
	}

	// Linked account: by id or email
	if req.UserID != "" {
		uid, err := uuid.Parse(req.UserID)
		if err != nil {
			utils.BadRequest(c, "Invalid user ID")
			return
		}
		var user models.User
		if err := database.DB.First(&user, uid).Error; err != nil {
			utils.NotFound(c, "User not found")
			return
		}
		var existing models.TripParticipant
		if err := database.DB.Where("trip_id = ? AND user_id = ?", tripID, uid).First(&existing).Error; err == nil {
			utils.BadRequest(c, "User is already a member of this trip")
			return
		}
		participant.UserID = &uid
		if participant.Name == "" {
			participant.Name = user.Name
		}
	} else if req.Email != "" && req.Name == "" {
		// Unregistered email: create a pending invitation instead
		go services.InviteToTrip(tripID, userID, req.Email, "")
		utils.SuccessResponse(c, http.StatusOK, "Invitation sent", nil)
		return
	}

	if participant.UserID == nil && participant.Name == "" {
		utils.BadRequest(c, "Name or user reference required")
		return
	}

	// Dependent member: the parent must be an independent member of the
	// same trip, one level only.
	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			utils.BadRequest(c, "Invalid parent ID")
			return
		}
		var parent models.TripParticipant
		if err := database.DB.Where("id = ? AND trip_id = ?", parentID, tripID).First(&parent).Error; err != nil {
			utils.NotFound(c, "Parent member not found in this trip")
			return
		}
		if parent.ParentID != nil {
			utils.BadRequest(c, "Parent must be an independent member")
			return
		}
		participant.ParentID = &parentID
	}

	if err := database.DB.Create(&participant).Error; err != nil {
		utils.InternalError(c, "Failed to add member")
		return
	}

	var adder models.User
	database.DB.First(&adder, userID)
	var trip models.Trip
	database.DB.First(&trip, tripID)

	database.DB.Create(&models.Activity{
		TripID:      tripID,
		UserID:      userID,
		Type:        "member_joined",
		ReferenceID: participant.ID,
		Description: fmt.Sprintf("%s added %s to %s", adder.Name, participant.DisplayName(), trip.Title),
	})

	if participant.UserID != nil {
		go services.GetNotificationService().NotifyMemberAdded(trip, adder.Name, participant)
	}

	database.InvalidateBalances(c.Request.Context(), tripID)
	utils.SuccessResponse(c, http.StatusCreated, "Member added", participantResponse(participant))
}

// PUT /api/trips/:id/participants/:pid
//
// Changing parent_id triggers split reconciliation: every expense that
// still looks like an equal split is recomputed against the new
// hierarchy, manual splits are left alone.
func UpdateParticipant(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid trip ID")
		return
	}
	participantID, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		utils.BadRequest(c, "Invalid participant ID")
		return
	}

	if !canEdit(tripID, userID) {
		utils.Unauthorized(c, "Only owners and editors can update members")
		return
	}

	var participant models.TripParticipant
	if err := database.DB.Where("id = ? AND trip_id = ?", participantID, tripID).First(&participant).Error; err != nil {
		utils.NotFound(c, "Member not found")
		return
	}

	var req models.UpdateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Role == "owner" || req.Role == "editor" || req.Role == "viewer" {
		updates["role"] = req.Role
	}

	// nil means the field was absent from the request; empty string means
	// make the member independent.
	var newParentID *uuid.UUID
	parentChanged := false
	if req.ParentID != nil {
		parentChanged = true
		if *req.ParentID != "" {
			parentID, err := uuid.Parse(*req.ParentID)
			if err != nil {
				utils.BadRequest(c, "Invalid parent ID")
				return
			}
			if parentID == participantID {
				utils.BadRequest(c, "A member cannot be their own parent")
				return
			}
			var parent models.TripParticipant
			if err := database.DB.Where("id = ? AND trip_id = ?", parentID, tripID).First(&parent).Error; err != nil {
				utils.NotFound(c, "Parent member not found in this trip")
				return
			}
			if parent.ParentID != nil {
				utils.BadRequest(c, "Parent must be an independent member")
				return
			}
			var dependentCount int64
			database.DB.Model(&models.TripParticipant{}).Where("parent_id = ?", participantID).Count(&dependentCount)
			if dependentCount > 0 {
				utils.BadRequest(c, "A member with dependents cannot become a dependent")
				return
			}
			newParentID = &parentID
		}
		sameParent := (participant.ParentID == nil && newParentID == nil) ||
			(participant.ParentID != nil && newParentID != nil && *participant.ParentID == *newParentID)
		if sameParent {
			parentChanged = false
		}
	}

	// Snapshot the roster before the change; the reconciler needs the old
	// hierarchy to recognize equal splits.
	var oldParticipants []ledger.Participant
	if parentChanged {
		oldParticipants = ledgerParticipants(tripID)
		updates["parent_id"] = newParentID
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&participant).Updates(updates).Error; err != nil {
			utils.InternalError(c, "Failed to update member")
			return
		}
	}

	message := "Member updated"
	if parentChanged {
		database.InvalidateBalances(c.Request.Context(), tripID)

		reconciler := &ledger.Reconciler{Store: database.NewExpenseSplitStore(database.DB)}
		result, err := reconciler.Recalculate(tripID, oldParticipants, participantID, newParentID)
		if err != nil {
			// The hierarchy change is already saved; the caller must know
			// the expenses were not adjusted.
			utils.ErrorResponse(c, http.StatusInternalServerError,
				"Member updated but expense recalculation failed, please retry")
			return
		}

		if result.Updated > 0 {
			message = fmt.Sprintf("Member updated, %d expenses recalculated", result.Updated)
		} else {
			message = "Member updated (no expenses needed recalculation)"
		}

		database.DB.Create(&models.Activity{
			TripID:      tripID,
			UserID:      userID,
			Type:        "splits_reconciled",
			ReferenceID: participantID,
			Description: fmt.Sprintf("%s re-parented: %d expenses recalculated, %d skipped",
				participant.DisplayName(), result.Updated, result.Skipped),
		})
	}

	database.DB.First(&participant, participantID)
	utils.SuccessResponse(c, http.StatusOK, message, participantResponse(participant))
}

// DELETE /api/trips/:id/participants/:pid
//
// A member can only leave once their balance is settled.
func RemoveParticipant(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid trip ID")
		return
	}
	participantID, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		utils.BadRequest(c, "Invalid participant ID")
		return
	}

	var participant models.TripParticipant
	if err := database.DB.Where("id = ? AND trip_id = ?", participantID, tripID).First(&participant).Error; err != nil {
		utils.NotFound(c, "Member not found")
		return
	}

	membership, ok := membershipOf(tripID, userID)
	isSelf := ok && participant.UserID != nil && *participant.UserID == userID
	if !ok || (membership.Role != "owner" && !isSelf) {
		utils.Unauthorized(c, "Only the owner can remove other members")
		return
	}

	participants := ledgerParticipants(tripID)
	balances := ledger.NetBalances(participants, ledgerExpenses(tripID))
	if balance := balances[participantID]; math.Abs(balance) > ledger.ZeroTolerance {
		utils.BadRequest(c, fmt.Sprintf("Cannot remove %s: balance is not zero (%+.2f), settle first",
			participant.DisplayName(), balance))
		return
	}

	var dependentCount int64
	database.DB.Model(&models.TripParticipant{}).Where("parent_id = ?", participantID).Count(&dependentCount)
	if dependentCount > 0 {
		utils.BadRequest(c, "Re-assign this member's dependents before removing them")
		return
	}

	database.DB.Delete(&models.TripParticipant{}, participantID)

	var trip models.Trip
	database.DB.First(&trip, tripID)
	database.DB.Create(&models.Activity{
		TripID:      tripID,
		UserID:      userID,
		Type:        "member_left",
		Description: fmt.Sprintf("%s left %s", participant.DisplayName(), trip.Title),
	})

	database.InvalidateBalances(c.Request.Context(), tripID)
	utils.SuccessResponse(c, http.StatusOK, "Member removed", nil)
}

// POST /api/trips/:id/invite
func InviteToTripHandler(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid trip ID")
		return
	}

	if !canEdit(tripID, userID) {
		utils.Unauthorized(c, "Only owners and editors can invite members")
		return
	}

	var req models.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if req.Email == "" && req.Phone == "" {
		utils.BadRequest(c, "Email or phone required")
		return
	}

	go services.InviteToTrip(tripID, userID, req.Email, req.Phone)
	utils.SuccessResponse(c, http.StatusOK, "Invitation sent", nil)
}

// ============================================================
// HELPERS
// ============================================================

// membershipOf returns the current user's participant row in a trip.
func membershipOf(tripID, userID uuid.UUID) (models.TripParticipant, bool) {
	var membership models.TripParticipant
	err := database.DB.Where("trip_id = ? AND user_id = ?", tripID, userID).First(&membership).Error
	return membership, err == nil
}

// canEdit reports whether the user is an owner or editor of the trip.
func canEdit(tripID, userID uuid.UUID) bool {
	membership, ok := membershipOf(tripID, userID)
	return ok && (membership.Role == "owner" || membership.Role == "editor")
}

// ledgerParticipants loads a trip's roster as ledger participants.
func ledgerParticipants(tripID uuid.UUID) []ledger.Participant {
	var rows []models.TripParticipant
	database.DB.Where("trip_id = ?", tripID).Preload("User").Order("joined_at").Find(&rows)

	out := make([]ledger.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, ledger.Participant{
			ID:       row.ID,
			Name:     row.DisplayName(),
			Role:     row.Role,
			ParentID: row.ParentID,
		})
	}
	return out
}

// ledgerExpenses loads a trip's expenses as ledger expenses.
func ledgerExpenses(tripID uuid.UUID) []ledger.Expense {
	store := database.NewExpenseSplitStore(database.DB)
	expenses, err := store.ListExpensesWithSplits(tripID)
	if err != nil {
		return nil
	}
	return expenses
}

func parseDate(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fallback
	}
	return parsed
}

func participantResponse(p models.TripParticipant) models.ParticipantResponse {
	resp := models.ParticipantResponse{
		ID:       p.ID,
		UserID:   p.UserID,
		Name:     p.Name,
		Role:     p.Role,
		ParentID: p.ParentID,
		JoinedAt: p.JoinedAt,
	}
	if p.UserID != nil {
		var user models.User
		if err := database.DB.First(&user, *p.UserID).Error; err == nil {
			resp.Name = user.Name
			resp.Email = user.Email
		}
	}
	return resp
}

func buildTripResponse(tripID, userID uuid.UUID) models.TripResponse {
	var trip models.Trip
	database.DB.First(&trip, tripID)

	var participants []models.TripParticipant
	database.DB.Where("trip_id = ?", tripID).Order("joined_at").Find(&participants)

	resp := models.TripResponse{
		ID:             trip.ID,
		Title:          trip.Title,
		StartDate:      trip.StartDate,
		EndDate:        trip.EndDate,
		HeaderImageURL: trip.HeaderImageURL,
		Currency:       trip.Currency,
		CreatedBy:      trip.CreatedBy,
		CreatedAt:      trip.CreatedAt,
	}
	if trip.Categories != "" {
		resp.Categories = strings.Split(trip.Categories, ",")
	}
	for _, p := range participants {
		if p.UserID != nil && *p.UserID == userID {
			resp.UserRole = p.Role
		}
		resp.Participants = append(resp.Participants, participantResponse(p))
	}
	return resp
}
