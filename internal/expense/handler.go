package expense

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/eyuksel/reimbursement-api/internal"
	expensemodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/expense"
	"github.com/eyuksel/reimbursement-api/internal/export"
	"github.com/eyuksel/reimbursement-api/internal/transport"
	"github.com/eyuksel/reimbursement-api/pkg/logger"
)

type ServiceAPI interface {
	CreateExpense(actor internal.Actor, ownerUserID string, dto CreateExpenseDTO) (*expensemodel.Expense, error)
	BulkCreate(actor internal.Actor, ownerUserID string, dtos []CreateExpenseDTO) (*BulkResult, error)
	ParseReceipt(ctx context.Context, data []byte, mimeType string) (*ParsedReceiptDTO, error)
	GetExpense(actor internal.Actor, id string) (*expensemodel.Expense, error)
	ListExpenses(actor internal.Actor, filter ListFilter) ([]*expensemodel.Expense, error)
	ListAllExpenses(actor internal.Actor, filter ListFilter) ([]*expensemodel.Expense, error)
	UpdateExpense(actor internal.Actor, id string, dto UpdateExpenseDTO) (*expensemodel.Expense, error)
	DeleteExpense(actor internal.Actor, id string) error
}

// FileStore persists uploaded receipt documents.
type FileStore interface {
	DetectType(data []byte) (string, error)
	Save(data []byte, mimeType string) (string, error)
	MaxSizeBytes() int64
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Files   FileStore
}

func NewHandler(service ServiceAPI, files FileStore) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Files:       files,
	}
}

type createExpenseRequest struct {
	CreateExpenseDTO
	UserID string `json:"user_id,omitempty"`
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.CreateExpense(actor, req.UserID, req.CreateExpenseDTO)
	if err != nil {
		h.Logger.Error("CreateExpense: service error", "error", err, "user_id", actor.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, NewExpenseResponse(exp))
}

func (h *Handler) BulkCreateExpenses(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto BulkCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("BulkCreateExpenses: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.BulkCreate(actor, actor.UserID, dto.Expenses)
	if err != nil {
		h.Logger.Error("BulkCreateExpenses: service error", "error", err, "user_id", actor.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}

// ParseReceipt accepts a multipart upload, stores the document and returns
// a prefilled expense draft.
func (h *Handler) ParseReceipt(w http.ResponseWriter, r *http.Request) {
	if _, ok := internal.ActorFromContext(r.Context()); !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Files.MaxSizeBytes())
	if err := r.ParseMultipartForm(h.Files.MaxSizeBytes()); err != nil {
		h.Logger.Error("ParseReceipt: invalid multipart form", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	mimeType, err := h.Files.DetectType(data)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	receiptURL, err := h.Files.Save(data, mimeType)
	if err != nil {
		h.Logger.Error("ParseReceipt: failed to store file", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	draft, err := h.Service.ParseReceipt(r.Context(), data, mimeType)
	if err != nil {
		h.Logger.Error("ParseReceipt: parser error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	draft.ReceiptURL = receiptURL

	h.WriteJSON(w, http.StatusOK, draft)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	exp, err := h.Service.GetExpense(actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewExpenseResponse(exp))
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := filterFromQuery(r)
	expenses, err := h.Service.ListExpenses(actor, filter)
	if err != nil {
		h.Logger.Error("ListExpenses: service error", "error", err, "user_id", actor.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": NewExpenseResponseList(expenses),
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (h *Handler) ListAllExpenses(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := filterFromQuery(r)
	expenses, err := h.Service.ListAllExpenses(actor, filter)
	if err != nil {
		h.Logger.Error("ListAllExpenses: service error", "error", err, "user_id", actor.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": NewExpenseResponseList(expenses),
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto UpdateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.UpdateExpense(actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewExpenseResponse(exp))
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.DeleteExpense(actor, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ExportExpenses streams the actor's expenses as CSV or XLSX. Staff may
// export all users with scope=all.
func (h *Handler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := filterFromQuery(r)
	filter.Limit = 0

	var expenses []*expensemodel.Expense
	var err error
	if r.URL.Query().Get("scope") == "all" {
		expenses, err = h.Service.ListAllExpenses(actor, filter)
	} else {
		expenses, err = h.Service.ListExpenses(actor, filter)
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("expenses-%s", time.Now().Format("2006-01-02"))

	switch r.URL.Query().Get("format") {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, filename))
		if err := export.WriteXLSX(w, expenses); err != nil {
			h.Logger.Error("ExportExpenses: XLSX write failed", "error", err)
		}
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))
		if err := export.WriteCSV(w, expenses); err != nil {
			h.Logger.Error("ExportExpenses: CSV write failed", "error", err)
		}
	}
}

func filterFromQuery(r *http.Request) ListFilter {
	filter := ListFilter{
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
		PeriodID: r.URL.Query().Get("period_id"),
		Limit:    20,
		Offset:   0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			filter.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		if t, err := time.Parse("2006-01-02", fromStr); err == nil {
			filter.From = &t
		}
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		if t, err := time.Parse("2006-01-02", toStr); err == nil {
			filter.To = &t
		}
	}

	return filter
}
