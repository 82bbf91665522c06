package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eyuksel/reimbursement-api/internal"
	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
	expensesvc "github.com/eyuksel/reimbursement-api/internal/expense"
)

// ExpenseRepository implements the expense.Repository interface using GORM.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expensesvc.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(e *expensemodel.Expense) error {
	return r.db.Create(e).Error
}

func (r *ExpenseRepository) GetByID(id string) (*expensemodel.Expense, error) {
	var e expensemodel.Expense
	err := r.db.Where("id = ?", id).First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *ExpenseRepository) ListByUser(userID string, filter expensesvc.ListFilter) ([]*expensemodel.Expense, error) {
	var expenses []*expensemodel.Expense
	err := r.applyFilter(r.db.Where("user_id = ?", userID), filter).
		Order("date DESC, created_at DESC").
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) ListAll(filter expensesvc.ListFilter) ([]*expensemodel.Expense, error) {
	var expenses []*expensemodel.Expense
	err := r.applyFilter(r.db, filter).
		Order("date DESC, created_at DESC").
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) Update(e *expensemodel.Expense) error {
	e.UpdatedAt = time.Now()
	return r.db.Save(e).Error
}

func (r *ExpenseRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&expensemodel.Expense{}).Error
}

// FindDuplicate matches on the exact owner, amount, calendar date and
// merchant.
func (r *ExpenseRepository) FindDuplicate(userID string, amount decimal.Decimal, date time.Time, merchant string) (*expensemodel.Expense, error) {
	var e expensemodel.Expense
	day := date.Truncate(24 * time.Hour)
	err := r.db.Where("user_id = ? AND amount = ? AND date = ? AND merchant = ?",
		userID, amount, day, merchant).
		First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *ExpenseRepository) applyFilter(q *gorm.DB, filter expensesvc.ListFilter) *gorm.DB {
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		q = q.Where("LOWER(category) = LOWER(?)", filter.Category)
	}
	if filter.PeriodID != "" {
		q = q.Where("period_id = ?", filter.PeriodID)
	}
	if filter.From != nil {
		q = q.Where("date >= ?", filter.From.Truncate(24*time.Hour))
	}
	if filter.To != nil {
		q = q.Where("date <= ?", filter.To.Truncate(24*time.Hour))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	return q
}
