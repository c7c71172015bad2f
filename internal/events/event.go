// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"contactpulse_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Activity Domain Events
// =============================================================================

// ActivityAppended is published after an activity is durably appended to a
// contact's event log. Duplicate deliveries (same dedup key) do not publish.
type ActivityAppended struct {
	BaseEvent
	ActivityID uuid.UUID `json:"activityId"`
	ContactID  uuid.UUID `json:"contactId"`
	TenantID   uuid.UUID `json:"tenantId"`
	Kind       string    `json:"kind"`
	Source     string    `json:"source"`
	ActivityAt time.Time `json:"activityAt"`
	Seq        int64     `json:"seq"`
}

func (e ActivityAppended) EventName() string { return "activity.appended" }

// =============================================================================
// Status Domain Events
// =============================================================================

// ContactStatusChanged is published for every applied status transition,
// whether automatic (rule match) or manual (override).
type ContactStatusChanged struct {
	BaseEvent
	ContactID      uuid.UUID  `json:"contactId"`
	TenantID       uuid.UUID  `json:"tenantId"`
	PreviousStatus string     `json:"previousStatus"`
	NewStatus      string     `json:"newStatus"`
	ReasonActivity *uuid.UUID `json:"reasonActivityId,omitempty"`
	Actor          string     `json:"actor,omitempty"`
	Seq            int64      `json:"seq"`
}

func (e ContactStatusChanged) EventName() string { return "status.contact.changed" }

// =============================================================================
// Signals Domain Events
// =============================================================================

// ContactSignalsUpdated is published when the active key signal set for a
// contact changes (new signal, supersede, resolve or expiry).
type ContactSignalsUpdated struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	TenantID  uuid.UUID `json:"tenantId"`
}

func (e ContactSignalsUpdated) EventName() string { return "signals.contact.updated" }

// =============================================================================
// Contact Card Domain Events
// =============================================================================

// ContactCardChanged is published by the change notifier after debouncing.
// It carries only the contact and the new version; consumers re-fetch the
// card rather than receiving it inline.
type ContactCardChanged struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	TenantID  uuid.UUID `json:"tenantId"`
	AsOf      time.Time `json:"asOf"`
	Version   int64     `json:"version"`
}

func (e ContactCardChanged) EventName() string { return "contactcard.changed" }

// =============================================================================
// Webhook Domain Events
// =============================================================================

// WebhookActivityReceived is published when an external provider delivers an
// activity via the webhook adapter, after normalization and append.
type WebhookActivityReceived struct {
	BaseEvent
	ActivityID   uuid.UUID `json:"activityId"`
	ContactID    uuid.UUID `json:"contactId"`
	TenantID     uuid.UUID `json:"tenantId"`
	Provider     string    `json:"provider"`
	WasDuplicate bool      `json:"wasDuplicate"`
}

func (e WebhookActivityReceived) EventName() string { return "webhook.activity.received" }
