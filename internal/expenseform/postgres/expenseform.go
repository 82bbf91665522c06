package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eyuksel/reimbursement-api/internal"
	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
	"github.com/eyuksel/reimbursement-api/internal/core/datamodel/expenseform"
	expenseformsvc "github.com/eyuksel/reimbursement-api/internal/expenseform"
)

// ExpenseFormRepository implements the expenseform.Repository interface
// using GORM. Lifecycle mutations run in a transaction so the form and its
// expenses never diverge.
type ExpenseFormRepository struct {
	db *gorm.DB
}

func NewExpenseFormRepository(db *gorm.DB) expenseformsvc.Repository {
	return &ExpenseFormRepository{db: db}
}

// CreateWithExpenses assigns the next form number, snapshots the total and
// links the expenses, all atomically. Every referenced expense must belong
// to the form owner and still be unassigned.
func (r *ExpenseFormRepository) CreateWithExpenses(form *expenseform.ExpenseForm, expenseIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var expenses []*expensemodel.Expense
		err := tx.Where("id IN ? AND user_id = ? AND status = ? AND expense_form_id IS NULL",
			expenseIDs, form.UserID, expensemodel.StatusPending).
			Find(&expenses).Error
		if err != nil {
			return err
		}
		if len(expenses) != len(expenseIDs) {
			return internal.NewValidationError(
				"One or more expenses are missing, already submitted or not yours",
				internal.ErrCodeValidationFailed)
		}

		total := decimal.Zero
		for _, exp := range expenses {
			total = total.Add(exp.Amount)
		}
		form.TotalAmount = total

		var maxNumber int64
		if err := tx.Model(&expenseform.ExpenseForm{}).
			Select("COALESCE(MAX(form_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return err
		}
		form.FormNumber = maxNumber + 1

		if err := tx.Create(form).Error; err != nil {
			return err
		}

		if err := tx.Model(&expensemodel.Expense{}).
			Where("id IN ?", expenseIDs).
			Updates(map[string]interface{}{
				"status":          expensemodel.StatusSubmitted,
				"expense_form_id": form.ID,
				"updated_at":      time.Now(),
			}).Error; err != nil {
			return err
		}

		form.Expenses = make([]expensemodel.Expense, len(expenses))
		for i, exp := range expenses {
			exp.Status = expensemodel.StatusSubmitted
			formID := form.ID
			exp.ExpenseFormID = &formID
			form.Expenses[i] = *exp
		}
		return nil
	})
}

func (r *ExpenseFormRepository) GetByID(id string) (*expenseform.ExpenseForm, error) {
	var form expenseform.ExpenseForm
	err := r.db.Preload("Expenses").Where("id = ?", id).First(&form).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrFormNotFound
		}
		return nil, err
	}
	return &form, nil
}

func (r *ExpenseFormRepository) ListByUser(userID string, limit, offset int) ([]*expenseform.ExpenseForm, error) {
	var forms []*expenseform.ExpenseForm
	q := r.db.Preload("Expenses").Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&forms).Error
	return forms, err
}

func (r *ExpenseFormRepository) ListAll(status string, limit, offset int) ([]*expenseform.ExpenseForm, error) {
	var forms []*expenseform.ExpenseForm
	q := r.db.Preload("Expenses").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&forms).Error
	return forms, err
}

// UpdateDecision applies an approve or reject decision to the form and all
// of its expenses atomically.
func (r *ExpenseFormRepository) UpdateDecision(formID, formStatus, expenseStatus string, reason *string, processedAt time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		formUpdates := map[string]interface{}{
			"status":       formStatus,
			"processed_at": processedAt,
			"updated_at":   time.Now(),
		}
		expenseUpdates := map[string]interface{}{
			"status":     expenseStatus,
			"updated_at": time.Now(),
		}
		if reason != nil {
			formUpdates["rejection_reason"] = *reason
			expenseUpdates["rejection_reason"] = *reason
		}

		result := tx.Model(&expenseform.ExpenseForm{}).
			Where("id = ?", formID).
			Updates(formUpdates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrFormNotFound
		}

		return tx.Model(&expensemodel.Expense{}).
			Where("expense_form_id = ?", formID).
			Updates(expenseUpdates).Error
	})
}

func (r *ExpenseFormRepository) MarkPaid(formID string, processedAt time.Time) error {
	result := r.db.Model(&expenseform.ExpenseForm{}).
		Where("id = ?", formID).
		Updates(map[string]interface{}{
			"status":     expenseform.StatusPaid,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrFormNotFound
	}
	return nil
}

// DeleteAndUnlink releases the form's expenses back to PENDING, clears any
// rejection reason and removes the form, atomically.
func (r *ExpenseFormRepository) DeleteAndUnlink(formID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&expensemodel.Expense{}).
			Where("expense_form_id = ?", formID).
			Updates(map[string]interface{}{
				"status":           expensemodel.StatusPending,
				"expense_form_id":  nil,
				"rejection_reason": nil,
				"updated_at":       time.Now(),
			}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", formID).Delete(&expenseform.ExpenseForm{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return internal.ErrFormNotFound
		}
		return nil
	})
}
