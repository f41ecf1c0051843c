package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"tripsplit-backend/database"
	"tripsplit-backend/ledger"
	"tripsplit-backend/models"
	"tripsplit-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const balanceCacheTTL = 5 * time.Minute

// GET /api/trips/:id/balances
func GetTripBalances(c *gin.Context) {
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

	// Balances are pure functions of the trip data, so the cached summary
	// is valid until the next roster or expense mutation invalidates it.
	if database.Redis != nil {
		cached, err := database.Redis.Get(c.Request.Context(), database.BalanceCacheKey(tripID)).Bytes()
		if err == nil {
			var summary models.TripBalanceSummary
			if json.Unmarshal(cached, &summary) == nil {
				utils.SuccessResponse(c, http.StatusOK, "", summary)
				return
			}
		}
	}

	summary := computeBalanceSummary(tripID)

	if database.Redis != nil {
		if data, err := json.Marshal(summary); err == nil {
			database.Redis.Set(c.Request.Context(), database.BalanceCacheKey(tripID), data, balanceCacheTTL)
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "", summary)
}

// GET /api/trips/:id/snapshot
//
// Day-wise running totals and the settlement state after each trip day:
// the same planner applied to the expense prefix up to that date.
func GetTripSnapshot(c *gin.Context) {
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

	var trip models.Trip
	database.DB.First(&trip, tripID)

	participants := ledgerParticipants(tripID)
	expenses := ledgerExpenses(tripID)
	nameOf := participantNamer(participants)

	// Group expenses by calendar day
	byDate := make(map[string][]ledger.Expense)
	for _, exp := range expenses {
		key := exp.Date.Format("2006-01-02")
		byDate[key] = append(byDate[key], exp)
	}
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	snapshot := models.TripSnapshot{
		TripID:   tripID,
		Currency: trip.Currency,
	}
	var runningTotal float64
	for _, date := range dates {
		var dayTotal float64
		for _, exp := range byDate[date] {
			if exp.Category != models.CategorySettlement {
				dayTotal += exp.Amount
			}
		}
		runningTotal += dayTotal

		cutoff, _ := time.Parse("2006-01-02", date)
		// End of day: include every expense dated that day
		cutoff = cutoff.Add(24*time.Hour - time.Second)

		snapshot.Days = append(snapshot.Days, models.DaySnapshot{
			Date:         date,
			DayTotal:     utils.RoundToTwo(dayTotal),
			RunningTotal: utils.RoundToTwo(runningTotal),
			Settlements:  roundSettlements(ledger.PlanSettlementsAsOf(participants, expenses, cutoff, nameOf)),
		})
	}
	snapshot.TotalSpent = utils.RoundToTwo(runningTotal)

	utils.SuccessResponse(c, http.StatusOK, "", snapshot)
}

// computeBalanceSummary runs the ledger over the trip's current data.
func computeBalanceSummary(tripID uuid.UUID) models.TripBalanceSummary {
	var trip models.Trip
	database.DB.First(&trip, tripID)

	participants := ledgerParticipants(tripID)
	expenses := ledgerExpenses(tripID)
	nameOf := participantNamer(participants)

	balances := ledger.NetBalances(participants, expenses)

	list := make([]models.ParticipantBalance, 0, len(balances))
	for pid, amount := range balances {
		list = append(list, models.ParticipantBalance{
			ParticipantID: pid,
			Name:          nameOf(pid),
			Amount:        utils.RoundToTwo(amount),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Amount != list[j].Amount {
			return list[i].Amount > list[j].Amount
		}
		return list[i].ParticipantID.String() < list[j].ParticipantID.String()
	})

	var totalSpent float64
	for _, exp := range expenses {
		if exp.Category != models.CategorySettlement {
			totalSpent += exp.Amount
		}
	}

	return models.TripBalanceSummary{
		TripID:      tripID,
		TripTitle:   trip.Title,
		Currency:    trip.Currency,
		TotalSpent:  utils.RoundToTwo(totalSpent),
		Balances:    list,
		Settlements: roundSettlements(ledger.PlanSettlements(balances, nameOf)),
	}
}

func participantNamer(participants []ledger.Participant) func(uuid.UUID) string {
	names := make(map[uuid.UUID]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.Name
	}
	return func(id uuid.UUID) string {
		if name, ok := names[id]; ok {
			return name
		}
		return "Unknown"
	}
}

func roundSettlements(settlements []ledger.Settlement) []ledger.Settlement {
	for i := range settlements {
		settlements[i].Amount = utils.RoundToTwo(settlements[i].Amount)
	}
	return settlements
}
