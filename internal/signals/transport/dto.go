// Package transport defines HTTP response DTOs for key signals.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// SignalResponse is one active key signal.
type SignalResponse struct {
	ID               uuid.UUID  `json:"id"`
	ContactID        uuid.UUID  `json:"contactId"`
	Category         string     `json:"category"`
	Subtype          string     `json:"subtype"`
	Severity         int        `json:"severity"`
	GeneratedAt      time.Time  `json:"generatedAt"`
	SourceActivityID uuid.UUID  `json:"sourceActivityId"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	ResolvedAt       *time.Time `json:"resolvedAt,omitempty"`
}
