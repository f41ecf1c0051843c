package handlers

import (
	"fmt"
	"net/http"
	"time"

	"tripsplit-backend/database"
	"tripsplit-backend/ledger"
	"tripsplit-backend/models"
	"tripsplit-backend/services"
	"tripsplit-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateSettlementRequest struct {
	From   string  `json:"from" binding:"required"` // debtor participant id
	To     string  `json:"to" binding:"required"`   // creditor participant id
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Date   string  `json:"date"`
}

// POST /api/trips/:id/settle
//
// An executed settlement is stored as a regular expense with category
// "Settlement": the debtor pays, the creditor is the sole debtor of the
// new expense, so the balance math zeroes the pair out naturally.
func CreateSettlement(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid trip ID")
		return
	}

	if !canEdit(tripID, userID) {
		utils.Unauthorized(c, "Only owners and editors can record settlements")
		return
	}

	var req CreateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	fromID, err := uuid.Parse(req.From)
	if err != nil {
		utils.BadRequest(c, "Invalid payer participant ID")
		return
	}
	toID, err := uuid.Parse(req.To)
	if err != nil {
		utils.BadRequest(c, "Invalid payee participant ID")
		return
	}
	if fromID == toID {
		utils.BadRequest(c, "Payer and payee must differ")
		return
	}

	var from, to models.TripParticipant
	if err := database.DB.Where("id = ? AND trip_id = ?", fromID, tripID).First(&from).Error; err != nil {
		utils.NotFound(c, "Payer is not a member of this trip")
		return
	}
	if err := database.DB.Where("id = ? AND trip_id = ?", toID, tripID).First(&to).Error; err != nil {
		utils.NotFound(c, "Payee is not a member of this trip")
		return
	}

	expense := models.Expense{
		TripID:    tripID,
		PaidBy:    fromID,
		Title:     models.CategorySettlement,
		Amount:    req.Amount,
		Category:  models.CategorySettlement,
		SplitType: string(ledger.SplitExact),
		Date:      parseDate(req.Date, time.Now()),
	}
	if err := database.DB.Create(&expense).Error; err != nil {
		utils.InternalError(c, "Failed to record settlement")
		return
	}
	database.DB.Create(&models.ExpenseSplit{
		ExpenseID:     expense.ID,
		ParticipantID: toID,
		Amount:        req.Amount,
	})

	var trip models.Trip
	database.DB.First(&trip, tripID)

	database.DB.Create(&models.Activity{
		TripID:      tripID,
		UserID:      userID,
		Type:        "settlement",
		ReferenceID: expense.ID,
		Description: fmt.Sprintf("%s paid %s %s %.2f", from.DisplayName(), to.DisplayName(), trip.Currency, req.Amount),
	})

	go services.GetNotificationService().NotifySettlement(trip, from.DisplayName(), to, req.Amount)

	database.InvalidateBalances(c.Request.Context(), tripID)
	utils.SuccessResponse(c, http.StatusCreated, "Settlement recorded", buildExpenseResponse(expense.ID))
}

// GET /api/trips/:id/settlements
func GetTripSettlements(c *gin.Context) {
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

	var settlements []models.Expense
	database.DB.Where("trip_id = ? AND category = ?", tripID, models.CategorySettlement).
		Order("date DESC, created_at DESC").
		Find(&settlements)

	var responses []models.ExpenseResponse
	for _, s := range settlements {
		responses = append(responses, buildExpenseResponse(s.ID))
	}
	utils.SuccessResponse(c, http.StatusOK, "", responses)
}
