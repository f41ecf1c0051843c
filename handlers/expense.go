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

// POST /api/trips/:id/expenses
func CreateExpense(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid trip ID")
		return
	}

	if !canEdit(tripID, userID) {
		utils.Unauthorized(c, "Only owners and editors can add expenses")
		return
	}

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	payerID, err := uuid.Parse(req.PaidBy)
	if err != nil {
		utils.BadRequest(c, "Payer required")
		return
	}

	participants := ledgerParticipants(tripID)
	payer, ok := findParticipant(participants, payerID)
	if !ok {
		utils.BadRequest(c, "Payer is not a member of this trip")
		return
	}
	if payer.ParentID != nil {
		utils.BadRequest(c, "Dependent members cannot pay for expenses")
		return
	}

	splits, err := allocateSplits(req.Amount, participants, ledger.SplitMode(req.SplitType), req.Splits)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	expense := models.Expense{
		TripID:    tripID,
		PaidBy:    payerID,
		Title:     req.Title,
		Amount:    req.Amount,
		Category:  req.Category,
		SplitType: req.SplitType,
		Date:      parseDate(req.Date, time.Now()),
	}

	if err := database.DB.Create(&expense).Error; err != nil {
		utils.InternalError(c, "Failed to create expense")
		return
	}

	var splitRows []models.ExpenseSplit
	for pid, amount := range splits {
		row := models.ExpenseSplit{
			ExpenseID:     expense.ID,
			ParticipantID: pid,
			Amount:        amount,
		}
		if err := database.DB.Create(&row).Error; err != nil {
			database.DB.Where("expense_id = ?", expense.ID).Delete(&models.ExpenseSplit{})
			database.DB.Delete(&expense)
			utils.InternalError(c, "Failed to store splits")
			return
		}
		splitRows = append(splitRows, row)
	}

	var trip models.Trip
	database.DB.First(&trip, tripID)

	database.DB.Create(&models.Activity{
		TripID:      tripID,
		UserID:      userID,
		Type:        "expense_added",
		ReferenceID: expense.ID,
		Description: fmt.Sprintf("%s added \"%s\" (%s %.2f)", payer.Name, expense.Title, trip.Currency, expense.Amount),
	})

	go services.GetNotificationService().NotifyExpenseAdded(expense, splitRows, payer.Name, trip)

	database.InvalidateBalances(c.Request.Context(), tripID)
	utils.SuccessResponse(c, http.StatusCreated, "Expense added", buildExpenseResponse(expense.ID))
}

// GET /api/trips/:id/expenses
func GetTripExpenses(c *gin.Context) {
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

	var expenses []models.Expense
	database.DB.Where("trip_id = ?", tripID).
		Order("date DESC, created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit).
		Find(&expenses)

	var responses []models.ExpenseResponse
	for _, e := range expenses {
		responses = append(responses, buildExpenseResponse(e.ID))
	}
	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/expenses/:id
func GetExpense(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid expense ID")
		return
	}

	var expense models.Expense
	if err := database.DB.First(&expense, expenseID).Error; err != nil {
		utils.NotFound(c, "Expense not found")
		return
	}
	if _, ok := membershipOf(expense.TripID, userID); !ok {
		utils.Unauthorized(c, "You are not a member of this trip")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", buildExpenseResponse(expenseID))
}

// PUT /api/expenses/:id
//
// Editing replaces the stored splits wholesale: old rows are deleted and
// the split set is recomputed from the request.
func UpdateExpense(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid expense ID")
		return
	}

	var expense models.Expense
	if err := database.DB.First(&expense, expenseID).Error; err != nil {
		utils.NotFound(c, "Expense not found")
		return
	}

	if !canEdit(expense.TripID, userID) {
		utils.Unauthorized(c, "Only owners and editors can edit expenses")
		return
	}

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Amount > 0 {
		updates["amount"] = req.Amount
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Date != "" {
		updates["date"] = parseDate(req.Date, expense.Date)
	}
	if req.PaidBy != "" {
		payerID, err := uuid.Parse(req.PaidBy)
		if err != nil {
			utils.BadRequest(c, "Invalid payer ID")
			return
		}
		updates["paid_by"] = payerID
	}
	if req.SplitType == string(ledger.SplitEqual) || req.SplitType == string(ledger.SplitExact) {
		updates["split_type"] = req.SplitType
	}

	database.DB.Model(&expense).Updates(updates)
	database.DB.First(&expense, expenseID)

	// Recalculate splits if anything affecting them changed
	if req.Amount > 0 || req.SplitType != "" || len(req.Splits) > 0 {
		participants := ledgerParticipants(expense.TripID)
		splits, err := allocateSplits(expense.Amount, participants, ledger.SplitMode(expense.SplitType), req.Splits)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}

		database.DB.Where("expense_id = ?", expenseID).Delete(&models.ExpenseSplit{})
		for pid, amount := range splits {
			database.DB.Create(&models.ExpenseSplit{
				ExpenseID:     expense.ID,
				ParticipantID: pid,
				Amount:        amount,
			})
		}
	}

	var editor models.User
	database.DB.First(&editor, userID)
	database.DB.Create(&models.Activity{
		TripID:      expense.TripID,
		UserID:      userID,
		Type:        "expense_updated",
		ReferenceID: expense.ID,
		Description: fmt.Sprintf("%s updated \"%s\"", editor.Name, expense.Title),
	})

	database.InvalidateBalances(c.Request.Context(), expense.TripID)
	utils.SuccessResponse(c, http.StatusOK, "Expense updated", buildExpenseResponse(expense.ID))
}

// DELETE /api/expenses/:id
func DeleteExpense(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid expense ID")
		return
	}

	var expense models.Expense
	if err := database.DB.First(&expense, expenseID).Error; err != nil {
		utils.NotFound(c, "Expense not found")
		return
	}

	if !canEdit(expense.TripID, userID) {
		utils.Unauthorized(c, "Only owners and editors can delete expenses")
		return
	}

	var deleter models.User
	database.DB.First(&deleter, userID)
	var trip models.Trip
	database.DB.First(&trip, expense.TripID)

	database.DB.Create(&models.Activity{
		TripID:      expense.TripID,
		UserID:      userID,
		Type:        "expense_deleted",
		Description: fmt.Sprintf("%s deleted \"%s\" (%s %.2f)", deleter.Name, expense.Title, trip.Currency, expense.Amount),
	})

	database.DB.Where("expense_id = ?", expenseID).Delete(&models.ExpenseSplit{})
	database.DB.Delete(&expense)

	database.InvalidateBalances(c.Request.Context(), expense.TripID)
	utils.SuccessResponse(c, http.StatusOK, "Expense deleted", nil)
}

// allocateSplits adapts the request's string-keyed manual splits and runs
// the ledger allocator.
func allocateSplits(amount float64, participants []ledger.Participant, mode ledger.SplitMode, manual map[string]float64) (map[uuid.UUID]float64, error) {
	var manualSplits map[uuid.UUID]float64
	if len(manual) > 0 {
		manualSplits = make(map[uuid.UUID]float64, len(manual))
		for key, value := range manual {
			pid, err := uuid.Parse(key)
			if err != nil {
				return nil, fmt.Errorf("invalid participant ID: %s", key)
			}
			manualSplits[pid] = value
		}
	}
	return ledger.Allocate(amount, participants, mode, manualSplits)
}

func findParticipant(participants []ledger.Participant, id uuid.UUID) (ledger.Participant, bool) {
	for _, p := range participants {
		if p.ID == id {
			return p, true
		}
	}
	return ledger.Participant{}, false
}

// Build expense response with payer and participant names
func buildExpenseResponse(expenseID uuid.UUID) models.ExpenseResponse {
	var expense models.Expense
	if err := database.DB.First(&expense, expenseID).Error; err != nil {
		return models.ExpenseResponse{}
	}

	var payer models.TripParticipant
	database.DB.Preload("User").First(&payer, expense.PaidBy)

	var dbSplits []models.ExpenseSplit
	database.DB.Where("expense_id = ?", expenseID).Find(&dbSplits)

	var splitResponses []models.SplitResponse
	for _, s := range dbSplits {
		var participant models.TripParticipant
		database.DB.Preload("User").First(&participant, s.ParticipantID)
		splitResponses = append(splitResponses, models.SplitResponse{
			ParticipantID:   s.ParticipantID,
			ParticipantName: participant.DisplayName(),
			Amount:          s.Amount,
		})
	}

	return models.ExpenseResponse{
		ID:        expense.ID,
		TripID:    expense.TripID,
		PaidBy:    expense.PaidBy,
		PayerName: payer.DisplayName(),
		Title:     expense.Title,
		Amount:    expense.Amount,
		Category:  expense.Category,
		SplitType: expense.SplitType,
		Date:      expense.Date,
		Splits:    splitResponses,
		CreatedAt: expense.CreatedAt,
	}
}
