package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/core/common/validation"
	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
)

type CreateExpenseDTO struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
	Date           time.Time       `json:"date"`
	Category       string          `json:"category"`
	Merchant       string          `json:"merchant"`
	Description    string          `json:"description,omitempty"`
	ReceiptURL     *string         `json:"receipt_url,omitempty"`
	IsBoardingPass bool            `json:"is_boarding_pass,omitempty"`
	IsInfoSlip     bool            `json:"is_info_slip,omitempty"`
}

func (d *CreateExpenseDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("amount", d.Amount).NonNegative(internal.ErrCodeInvalidAmount)
	v.Field("date", d.Date).Required().NotFuture()
	v.Field("merchant", d.Merchant).MaxLength(200)
	v.Field("category", d.Category).MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)
	return v.Validate()
}

type UpdateExpenseDTO struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Merchant    *string          `json:"merchant,omitempty"`
	Description *string          `json:"description,omitempty"`
	ReceiptURL  *string          `json:"receipt_url,omitempty"`
}

func (d *UpdateExpenseDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Amount != nil {
		v.Field("amount", *d.Amount).NonNegative(internal.ErrCodeInvalidAmount)
	}
	if d.Date != nil {
		v.Field("date", *d.Date).Required().NotFuture()
	}
	if d.Merchant != nil {
		v.Field("merchant", *d.Merchant).MaxLength(200)
	}
	if d.Description != nil {
		v.Field("description", *d.Description).MaxLength(500)
	}
	return v.Validate()
}

// ParsedReceiptDTO is the prefilled draft returned by the parse endpoint.
// Nothing is persisted until the user confirms it.
type ParsedReceiptDTO struct {
	Date           string          `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Merchant       string          `json:"merchant"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	ReceiptURL     string          `json:"receipt_url,omitempty"`
	IsBoardingPass bool            `json:"is_boarding_pass"`
	IsInfoSlip     bool            `json:"is_info_slip"`
}

type BulkCreateDTO struct {
	Expenses []CreateExpenseDTO `json:"expenses"`
}

// ExpenseResponse decorates the stored record with rendered warning text
// for clients.
type ExpenseResponse struct {
	*expensemodel.Expense
	WarningMessages []string `json:"warning_messages,omitempty"`
}

func NewExpenseResponse(exp *expensemodel.Expense) ExpenseResponse {
	return ExpenseResponse{
		Expense:         exp,
		WarningMessages: exp.Warnings.Render(),
	}
}

func NewExpenseResponseList(expenses []*expensemodel.Expense) []ExpenseResponse {
	out := make([]ExpenseResponse, len(expenses))
	for i, exp := range expenses {
		out[i] = NewExpenseResponse(exp)
	}
	return out
}
