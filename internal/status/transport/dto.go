// Package transport defines HTTP request/response DTOs for the status engine.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// OverrideStatusRequest requests an explicit status change for a contact.
type OverrideStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Actor  string `json:"actor" validate:"required,max=120"`
}

// StatusResponse is a contact's current status.
type StatusResponse struct {
	ContactID uuid.UUID `json:"contactId"`
	Status    string    `json:"status"`
}

// HistoryEntryResponse is one transition in a contact's status history.
type HistoryEntryResponse struct {
	ID             uuid.UUID  `json:"id"`
	PreviousStatus string     `json:"previousStatus"`
	NextStatus     string     `json:"nextStatus"`
	Reason         string     `json:"reason"`
	Actor          *string    `json:"actor,omitempty"`
	ActivityID     *uuid.UUID `json:"activityId,omitempty"`
	TransitionedAt time.Time  `json:"transitionedAt"`
}

// RecomputeResponse reports the outcome of a replay audit.
type RecomputeResponse struct {
	ContactID uuid.UUID `json:"contactId"`
	Drifted   bool      `json:"drifted"`
	Repaired  bool      `json:"repaired"`
}
