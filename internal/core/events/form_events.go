package events

import (
	"time"

	"github.com/google/uuid"
)

// Form lifecycle event types consumed by the notification fan-out.
const (
	EventFormSubmitted = "expense_form.submitted"
	EventFormApproved  = "expense_form.approved"
	EventFormRejected  = "expense_form.rejected"
)

type FormEventPayload struct {
	FormID          string `json:"form_id"`
	FormNumber      int64  `json:"form_number"`
	Title           string `json:"title"`
	OwnerUserID     string `json:"owner_user_id"`
	OwnerName       string `json:"owner_name"`
	TotalAmount     string `json:"total_amount"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

func newFormEvent(eventType string, payload FormEventPayload) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"form_id":          payload.FormID,
			"form_number":      payload.FormNumber,
			"title":            payload.Title,
			"owner_user_id":    payload.OwnerUserID,
			"owner_name":       payload.OwnerName,
			"total_amount":     payload.TotalAmount,
			"rejection_reason": payload.RejectionReason,
		},
	}
}

func NewFormSubmittedEvent(payload FormEventPayload) BaseEvent {
	return newFormEvent(EventFormSubmitted, payload)
}

func NewFormApprovedEvent(payload FormEventPayload) BaseEvent {
	return newFormEvent(EventFormApproved, payload)
}

func NewFormRejectedEvent(payload FormEventPayload) BaseEvent {
	return newFormEvent(EventFormRejected, payload)
}

// PayloadFromEvent recovers the typed payload from a generic event.
func PayloadFromEvent(e Event) FormEventPayload {
	data, ok := e.Payload().(map[string]interface{})
	if !ok {
		return FormEventPayload{}
	}
	payload := FormEventPayload{}
	if v, ok := data["form_id"].(string); ok {
		payload.FormID = v
	}
	if v, ok := data["form_number"].(int64); ok {
		payload.FormNumber = v
	}
	if v, ok := data["title"].(string); ok {
		payload.Title = v
	}
	if v, ok := data["owner_user_id"].(string); ok {
		payload.OwnerUserID = v
	}
	if v, ok := data["owner_name"].(string); ok {
		payload.OwnerName = v
	}
	if v, ok := data["total_amount"].(string); ok {
		payload.TotalAmount = v
	}
	if v, ok := data["rejection_reason"].(string); ok {
		payload.RejectionReason = v
	}
	return payload
}
