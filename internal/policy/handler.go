package policy

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/eyuksel/reimbursement-api/internal"
	policymodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/policy"
	"github.com/eyuksel/reimbursement-api/internal/transport"
	"github.com/eyuksel/reimbursement-api/pkg/logger"
)

type ServiceAPI interface {
	CreatePolicy(organizationID string, dto CreatePolicyDTO) (*policymodel.Policy, error)
	ListPolicies(organizationID string) ([]*policymodel.Policy, error)
	UpdatePolicy(id string, dto UpdatePolicyDTO) (*policymodel.Policy, error)
	DeletePolicy(id string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if actor.OrganizationID == "" {
		h.WriteError(w, http.StatusBadRequest, "user is not assigned to an organization")
		return
	}

	var dto CreatePolicyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreatePolicy: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Service.CreatePolicy(actor.OrganizationID, dto)
	if err != nil {
		h.Logger.Error("CreatePolicy: service error", "error", err, "organization_id", actor.OrganizationID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if actor.OrganizationID == "" {
		h.WriteJSON(w, http.StatusOK, map[string]interface{}{"policies": []*policymodel.Policy{}})
		return
	}

	policies, err := h.Service.ListPolicies(actor.OrganizationID)
	if err != nil {
		h.Logger.Error("ListPolicies: service error", "error", err, "organization_id", actor.OrganizationID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"policies": policies})
}

func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto UpdatePolicyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdatePolicy: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Service.UpdatePolicy(id, dto)
	if err != nil {
		h.Logger.Error("UpdatePolicy: service error", "error", err, "policy_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Service.DeletePolicy(id); err != nil {
		h.Logger.Error("DeletePolicy: service error", "error", err, "policy_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
