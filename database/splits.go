package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"tripsplit-backend/ledger"
	"tripsplit-backend/models"
)

// ExpenseSplitStore adapts gorm persistence to the ledger's SplitStore
// interface so the reconciler stays free of database concerns.
type ExpenseSplitStore struct {
	DB *gorm.DB
}

func NewExpenseSplitStore(db *gorm.DB) *ExpenseSplitStore {
	return &ExpenseSplitStore{DB: db}
}

func (s *ExpenseSplitStore) ListExpensesWithSplits(tripID uuid.UUID) ([]ledger.Expense, error) {
	var expenses []models.Expense
	if err := s.DB.Where("trip_id = ?", tripID).Preload("Splits").Find(&expenses).Error; err != nil {
		return nil, err
	}

	out := make([]ledger.Expense, 0, len(expenses))
	for _, e := range expenses {
		le := ledger.Expense{
			ID:        e.ID,
			Title:     e.Title,
			Amount:    e.Amount,
			Date:      e.Date,
			Category:  e.Category,
			PaidBy:    e.PaidBy,
			SplitMode: ledger.SplitMode(e.SplitType),
		}
		for _, sp := range e.Splits {
			le.Splits = append(le.Splits, ledger.Split{ParticipantID: sp.ParticipantID, Amount: sp.Amount})
		}
		out = append(out, le)
	}
	return out, nil
}

// ReplaceSplits swaps one expense's splits inside a transaction, so a
// mid-failure can never leave the expense permanently without splits.
func (s *ExpenseSplitStore) ReplaceSplits(expenseID uuid.UUID, splits []ledger.Split) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", expenseID).Delete(&models.ExpenseSplit{}).Error; err != nil {
			return err
		}
		for _, sp := range splits {
			row := models.ExpenseSplit{
				ExpenseID:     expenseID,
				ParticipantID: sp.ParticipantID,
				Amount:        sp.Amount,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
