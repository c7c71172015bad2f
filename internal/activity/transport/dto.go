// Package transport defines the request/response shapes for the activity API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// AppendActivityRequest is the inbound shape for appendActivity.
type AppendActivityRequest struct {
	ContactID  uuid.UUID      `json:"contactId" validate:"required"`
	Kind       string         `json:"kind" validate:"required"`
	OccurredAt time.Time      `json:"occurredAt" validate:"required"`
	PayloadRef string         `json:"payloadRef,omitempty"`
	Source     string         `json:"source,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	DedupKey   string         `json:"dedupKey,omitempty"`
}

// AppendActivityResponse acknowledges an append.
type AppendActivityResponse struct {
	ActivityID uuid.UUID `json:"activityId"`
	Duplicate  bool      `json:"duplicate"`
	Seq        int64     `json:"seq"`
}

// ActivityResponse is the outbound shape of a stored activity.
type ActivityResponse struct {
	ID         uuid.UUID      `json:"id"`
	ContactID  uuid.UUID      `json:"contactId"`
	Kind       string         `json:"kind"`
	OccurredAt time.Time      `json:"occurredAt"`
	Seq        int64          `json:"seq"`
	PayloadRef string         `json:"payloadRef,omitempty"`
	Source     string         `json:"source,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}
