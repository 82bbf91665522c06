package expenseform

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/eyuksel/reimbursement-api/internal"
	"github.com/eyuksel/reimbursement-api/internal/core/datamodel/expenseform"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
	"github.com/eyuksel/reimbursement-api/internal/pdf"
	"github.com/eyuksel/reimbursement-api/internal/transport"
	"github.com/eyuksel/reimbursement-api/pkg/logger"
)

type ServiceAPI interface {
	SubmitForm(actor internal.Actor, dto SubmitFormDTO) (*expenseform.ExpenseForm, error)
	GetForm(actor internal.Actor, id string) (*expenseform.ExpenseForm, error)
	ListForms(actor internal.Actor, limit, offset int) ([]*expenseform.ExpenseForm, error)
	ListAllForms(actor internal.Actor, status string, limit, offset int) ([]*expenseform.ExpenseForm, error)
	ApproveForm(actor internal.Actor, id string) (*expenseform.ExpenseForm, error)
	RejectForm(actor internal.Actor, id, reason string) (*expenseform.ExpenseForm, error)
	MarkPaid(actor internal.Actor, id string) (*expenseform.ExpenseForm, error)
	DeleteForm(actor internal.Actor, id string) error
	FormOwner(form *expenseform.ExpenseForm) (*usermodel.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	PDF     *pdf.Generator
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		PDF:         pdf.NewGenerator(),
	}
}

func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto SubmitFormDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("SubmitForm: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	form, err := h.Service.SubmitForm(actor, dto)
	if err != nil {
		h.Logger.Error("SubmitForm: service error", "error", err, "user_id", actor.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, form)
}

func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	form, err := h.Service.GetForm(actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, form)
}

func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := pagination(r)
	forms, err := h.Service.ListForms(actor, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"forms":  forms,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) ListAllForms(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, offset := pagination(r)
	forms, err := h.Service.ListAllForms(actor, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"forms":  forms,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) ApproveForm(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	formID := chi.URLParam(r, "id")
	form, err := h.Service.ApproveForm(actor, formID)
	if err != nil {
		h.Logger.Error("ApproveForm: service error", "error", err, "form_id", formID, "decided_by", actor.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("ApproveForm: form approved", "form_id", formID, "decided_by", actor.UserID)
	h.WriteJSON(w, http.StatusOK, form)
}

func (h *Handler) RejectForm(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto RejectFormDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("RejectForm: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	formID := chi.URLParam(r, "id")
	form, err := h.Service.RejectForm(actor, formID, dto.Reason)
	if err != nil {
		h.Logger.Error("RejectForm: service error", "error", err, "form_id", formID, "decided_by", actor.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("RejectForm: form rejected", "form_id", formID, "decided_by", actor.UserID, "reason", dto.Reason)
	h.WriteJSON(w, http.StatusOK, form)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	form, err := h.Service.MarkPaid(actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, form)
}

func (h *Handler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.Service.DeleteForm(actor, chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DownloadPDF streams the printable form document.
func (h *Handler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	form, err := h.Service.GetForm(actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	owner, err := h.Service.FormOwner(form)
	if err != nil {
		h.Logger.Warn("DownloadPDF: owner lookup failed", "error", err, "form_id", form.ID)
		owner = nil
	}

	data, err := h.PDF.Generate(form, owner)
	if err != nil {
		h.Logger.Error("DownloadPDF: render failed", "error", err, "form_id", form.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="masraf-formu-%d.pdf"`, form.FormNumber))
	w.Write(data)
}

func pagination(r *http.Request) (int, int) {
	limit := 20
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
