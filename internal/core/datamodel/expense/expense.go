package expense

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Expense status values. PENDING expenses are unassigned; the remaining
// statuses are driven by the owning form's lifecycle.
const (
	StatusPending   = "PENDING"
	StatusSubmitted = "SUBMITTED"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
)

// Warning codes attached to an expense at creation time.
const (
	WarningPolicyLimitExceeded = "POLICY_LIMIT_EXCEEDED"
	WarningBoardingPass        = "BOARDING_PASS"
	WarningInfoSlip            = "INFO_SLIP"
)

// Warning is a structured, tagged warning reason. It is rendered to text
// only at the presentation boundary (handlers and exports).
type Warning struct {
	Code   string            `json:"code"`
	Params map[string]string `json:"params,omitempty"`
}

// Render produces the human-readable form of the warning.
func (w Warning) Render() string {
	switch w.Code {
	case WarningPolicyLimitExceeded:
		return fmt.Sprintf("Spending limit exceeded: the limit for %s is %s %s.",
			w.Params["category"], w.Params["limit"], w.Params["currency"])
	case WarningBoardingPass:
		return "Please keep your boarding pass."
	case WarningInfoSlip:
		return "This document is an information slip and has no financial value."
	default:
		return w.Code
	}
}

// WarningList is stored as a JSON array in a single column.
type WarningList []Warning

func (wl WarningList) Value() (driver.Value, error) {
	if len(wl) == 0 {
		return nil, nil
	}
	return json.Marshal(wl)
}

func (wl *WarningList) Scan(src interface{}) error {
	if src == nil {
		*wl = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, wl)
	case string:
		return json.Unmarshal([]byte(v), wl)
	default:
		return fmt.Errorf("unsupported warnings column type %T", src)
	}
}

// Render returns the textual form of every warning in order.
func (wl WarningList) Render() []string {
	if len(wl) == 0 {
		return nil
	}
	out := make([]string, len(wl))
	for i, w := range wl {
		out[i] = w.Render()
	}
	return out
}

// Expense is a single receipt record owned by one user.
type Expense struct {
	ID              string          `json:"id" gorm:"primaryKey"`
	UserID          string          `json:"user_id" gorm:"column:user_id;not null;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	Currency        string          `json:"currency" gorm:"column:currency;default:TRY"`
	Date            time.Time       `json:"date" gorm:"column:date;type:date;not null"`
	Category        string          `json:"category"`
	Merchant        string          `json:"merchant"`
	Description     string          `json:"description"`
	ReceiptURL      *string         `json:"receipt_url,omitempty" gorm:"column:receipt_url"`
	Status          string          `json:"status" gorm:"column:status;default:PENDING;index"`
	RejectionReason *string         `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`
	Warnings        WarningList     `json:"warnings,omitempty" gorm:"column:warnings;type:text"`
	PeriodID        string          `json:"period_id" gorm:"column:period_id;not null"`
	ExpenseFormID   *string         `json:"expense_form_id,omitempty" gorm:"column:expense_form_id;index"`
	CreatedAt       time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

// IsPending reports whether the expense still sits in the unsubmitted pool.
func (e *Expense) IsPending() bool {
	return e.Status == StatusPending
}

// CanBeDeleted: unassigned and rejected expenses may be removed directly,
// even while a rejected form still links them. Submitted and approved
// expenses are owned by their form.
func (e *Expense) CanBeDeleted() bool {
	return e.Status == StatusPending || e.Status == StatusRejected
}

// CanBeEdited blocks edits once an expense belongs to a submitted form, so
// the form's total snapshot cannot drift.
func (e *Expense) CanBeEdited() bool {
	return e.Status == StatusPending
}
