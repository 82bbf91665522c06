package expense

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eyuksel/reimbursement-api/internal"
	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
	"github.com/eyuksel/reimbursement-api/internal/core/datamodel/organization"
	"github.com/eyuksel/reimbursement-api/internal/receiptparser"
)

// ListFilter narrows expense listings.
type ListFilter struct {
	Status   string
	Category string
	PeriodID string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// Repository defines the data access methods for expenses.
type Repository interface {
	Create(e *expensemodel.Expense) error
	GetByID(id string) (*expensemodel.Expense, error)
	ListByUser(userID string, filter ListFilter) ([]*expensemodel.Expense, error)
	ListAll(filter ListFilter) ([]*expensemodel.Expense, error)
	Update(e *expensemodel.Expense) error
	Delete(id string) error
	FindDuplicate(userID string, amount decimal.Decimal, date time.Time, merchant string) (*expensemodel.Expense, error)
}

// PeriodFinder locates the active period covering a date.
type PeriodFinder interface {
	FindActiveForDate(date time.Time) (*organization.Period, error)
}

// PolicyEvaluator checks an amount against the category's spending ceiling.
type PolicyEvaluator interface {
	Evaluate(organizationID, category string, amount decimal.Decimal) (*expensemodel.Warning, error)
}

// Service handles expense business logic.
type Service struct {
	repo    Repository
	periods PeriodFinder
	policy  PolicyEvaluator
	parser  receiptparser.Parser
	logger  *slog.Logger
}

func NewService(repo Repository, periods PeriodFinder, policy PolicyEvaluator, parser receiptparser.Parser, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		periods: periods,
		policy:  policy,
		parser:  parser,
		logger:  logger,
	}
}

// CreateExpense records a new expense owned by ownerUserID. Regular users
// may only create for themselves; admins may create on behalf of others.
func (s *Service) CreateExpense(actor internal.Actor, ownerUserID string, dto CreateExpenseDTO) (*expensemodel.Expense, error) {
	if ownerUserID == "" {
		ownerUserID = actor.UserID
	}
	if ownerUserID != actor.UserID && !actor.Role.IsAdmin() {
		s.logger.Warn("create on behalf denied", "actor_id", actor.UserID, "owner_id", ownerUserID)
		return nil, internal.ErrUnauthorized
	}

	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err, "user_id", ownerUserID)
		return nil, err
	}

	dup, err := s.repo.FindDuplicate(ownerUserID, dto.Amount, dto.Date, dto.Merchant)
	if err != nil && !errors.Is(err, internal.ErrExpenseNotFound) {
		// An unreachable store must not bypass the duplicate guard.
		s.logger.Error("duplicate check failed", "error", err, "user_id", ownerUserID)
		return nil, err
	}
	if dup != nil {
		s.logger.Warn("duplicate expense rejected",
			"user_id", ownerUserID,
			"amount", dto.Amount.StringFixed(2),
			"merchant", dto.Merchant,
			"existing_id", dup.ID)
		return nil, internal.ErrDuplicateExpense
	}

	period, err := s.periods.FindActiveForDate(dto.Date)
	if err != nil {
		s.logger.Warn("no active period for expense date", "date", dto.Date.Format("2006-01-02"), "user_id", ownerUserID)
		return nil, internal.ErrNoActivePeriod
	}

	warnings := s.collectWarnings(actor.OrganizationID, dto)

	currency := dto.Currency
	if currency == "" {
		currency = "TRY"
	}

	exp := &expensemodel.Expense{
		ID:          uuid.NewString(),
		UserID:      ownerUserID,
		Amount:      dto.Amount,
		Currency:    currency,
		Date:        dto.Date,
		Category:    dto.Category,
		Merchant:    dto.Merchant,
		Description: dto.Description,
		ReceiptURL:  dto.ReceiptURL,
		Status:      expensemodel.StatusPending,
		Warnings:    warnings,
		PeriodID:    period.ID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.repo.Create(exp); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", ownerUserID)
		return nil, err
	}

	s.logger.Info("expense created",
		"expense_id", exp.ID,
		"user_id", ownerUserID,
		"amount", exp.Amount.StringFixed(2),
		"period_id", period.ID,
		"warnings", len(warnings))

	return exp, nil
}

// BulkResult reports the outcome of a bulk creation. Items are processed
// independently so one bad receipt does not sink the batch.
type BulkResult struct {
	Created []*expensemodel.Expense `json:"created"`
	Failed  []BulkFailure           `json:"failed"`
}

type BulkFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

func (s *Service) BulkCreate(actor internal.Actor, ownerUserID string, dtos []CreateExpenseDTO) (*BulkResult, error) {
	if len(dtos) == 0 {
		return nil, internal.NewValidationError("At least one expense is required", internal.ErrCodeValidationFailed)
	}

	result := &BulkResult{}
	for i, dto := range dtos {
		exp, err := s.CreateExpense(actor, ownerUserID, dto)
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{Index: i, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, exp)
	}

	s.logger.Info("bulk expense creation finished",
		"user_id", actor.UserID,
		"created", len(result.Created),
		"failed", len(result.Failed))

	return result, nil
}

// ParseReceipt runs the uploaded document through the vision parser and
// returns a prefilled draft. Nothing is persisted.
func (s *Service) ParseReceipt(ctx context.Context, data []byte, mimeType string) (*ParsedReceiptDTO, error) {
	parsed, err := s.parser.ParseReceipt(ctx, data, mimeType)
	if err != nil {
		return nil, err
	}

	dto := &ParsedReceiptDTO{
		Date:           parsed.Date.Format("2006-01-02"),
		Amount:         parsed.Amount,
		Currency:       parsed.Currency,
		Merchant:       parsed.Merchant,
		Category:       parsed.Category,
		Description:    parsed.Description,
		IsBoardingPass: parsed.IsBoardingPass,
		IsInfoSlip:     parsed.IsInfoSlip,
	}
	return dto, nil
}

func (s *Service) GetExpense(actor internal.Actor, id string) (*expensemodel.Expense, error) {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if exp.UserID != actor.UserID && !actor.Role.IsStaff() {
		s.logger.Warn("unauthorized expense access", "expense_id", id, "actor_id", actor.UserID)
		return nil, internal.ErrUnauthorized
	}
	return exp, nil
}

// ListExpenses returns the actor's own expenses.
func (s *Service) ListExpenses(actor internal.Actor, filter ListFilter) ([]*expensemodel.Expense, error) {
	return s.repo.ListByUser(actor.UserID, filter)
}

// ListAllExpenses returns every user's expenses. Staff only.
func (s *Service) ListAllExpenses(actor internal.Actor, filter ListFilter) ([]*expensemodel.Expense, error) {
	if !actor.Role.IsStaff() {
		return nil, internal.ErrUnauthorized
	}
	return s.repo.ListAll(filter)
}

// UpdateExpense edits an unsubmitted expense. Once an expense belongs to a
// submitted form it is frozen so the form total cannot drift.
func (s *Service) UpdateExpense(actor internal.Actor, id string, dto UpdateExpenseDTO) (*expensemodel.Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if exp.UserID != actor.UserID && !actor.Role.IsAdmin() {
		return nil, internal.ErrUnauthorized
	}
	if !exp.CanBeEdited() {
		s.logger.Warn("edit rejected for non-pending expense", "expense_id", id, "status", exp.Status)
		return nil, internal.ErrExpenseImmutable
	}

	if dto.Date != nil {
		period, err := s.periods.FindActiveForDate(*dto.Date)
		if err != nil {
			return nil, internal.ErrNoActivePeriod
		}
		exp.Date = *dto.Date
		exp.PeriodID = period.ID
	}
	if dto.Amount != nil {
		exp.Amount = *dto.Amount
	}
	if dto.Currency != nil {
		exp.Currency = *dto.Currency
	}
	if dto.Category != nil {
		exp.Category = *dto.Category
	}
	if dto.Merchant != nil {
		exp.Merchant = *dto.Merchant
	}
	if dto.Description != nil {
		exp.Description = *dto.Description
	}
	if dto.ReceiptURL != nil {
		exp.ReceiptURL = dto.ReceiptURL
	}

	// Policy warnings are recomputed against the edited values; the
	// parser-derived flags stay as they were.
	exp.Warnings = s.recomputePolicyWarnings(actor.OrganizationID, exp)
	exp.UpdatedAt = time.Now()

	if err := s.repo.Update(exp); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		return nil, err
	}

	s.logger.Info("expense updated", "expense_id", id, "user_id", actor.UserID)
	return exp, nil
}

// DeleteExpense removes an unassigned expense. Owner or admin only.
func (s *Service) DeleteExpense(actor internal.Actor, id string) error {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if exp.UserID != actor.UserID && !actor.Role.IsAdmin() {
		return internal.ErrUnauthorized
	}
	if !exp.CanBeDeleted() {
		s.logger.Warn("delete rejected", "expense_id", id, "status", exp.Status)
		return internal.ErrExpenseImmutable
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		return err
	}

	s.logger.Info("expense deleted", "expense_id", id, "user_id", actor.UserID)
	return nil
}

func (s *Service) collectWarnings(organizationID string, dto CreateExpenseDTO) expensemodel.WarningList {
	var warnings expensemodel.WarningList

	if organizationID != "" {
		// Policy breaches annotate, never block. A lookup failure is
		// swallowed for the same reason.
		warning, err := s.policy.Evaluate(organizationID, dto.Category, dto.Amount)
		if err != nil {
			s.logger.Error("policy evaluation failed", "error", err, "category", dto.Category)
		} else if warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	if dto.IsBoardingPass {
		warnings = append(warnings, expensemodel.Warning{Code: expensemodel.WarningBoardingPass})
	}
	if dto.IsInfoSlip {
		warnings = append(warnings, expensemodel.Warning{Code: expensemodel.WarningInfoSlip})
	}

	return warnings
}

func (s *Service) recomputePolicyWarnings(organizationID string, exp *expensemodel.Expense) expensemodel.WarningList {
	var warnings expensemodel.WarningList
	for _, w := range exp.Warnings {
		if w.Code != expensemodel.WarningPolicyLimitExceeded {
			warnings = append(warnings, w)
		}
	}

	if organizationID != "" {
		warning, err := s.policy.Evaluate(organizationID, exp.Category, exp.Amount)
		if err != nil {
			s.logger.Error("policy evaluation failed", "error", err, "category", exp.Category)
		} else if warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	return warnings
}
