// Package domain provides core business rules for the activity event log.
// Activities are the single source of truth for "what happened and when":
// immutable once appended, ordered by (occurred_at, seq).
package domain

import (
	"strings"
	"time"

	"contactpulse_backend/platform/apperr"

	"github.com/google/uuid"
)

// Kind classifies an activity. The set known to the status engine is closed;
// unknown kinds are retained in the log as opaque records for forward
// compatibility but never drive transitions.
type Kind string

const (
	KindCallCompleted          Kind = "call_completed"
	KindAppointmentBooked      Kind = "appointment_booked"
	KindAppointmentArrived     Kind = "appointment_arrived"
	KindAppointmentNoShow      Kind = "appointment_no_show"
	KindAppointmentRescheduled Kind = "appointment_rescheduled"
	KindMessageSent            Kind = "message_sent"
	KindAnalysisReady          Kind = "analysis_ready"
	KindTaskCompleted          Kind = "task_completed"
	KindManualOverride         Kind = "manual_override"
)

var knownKinds = map[Kind]struct{}{
	KindCallCompleted:          {},
	KindAppointmentBooked:      {},
	KindAppointmentArrived:     {},
	KindAppointmentNoShow:      {},
	KindAppointmentRescheduled: {},
	KindMessageSent:            {},
	KindAnalysisReady:          {},
	KindTaskCompleted:          {},
	KindManualOverride:         {},
}

// IsKnown reports whether the kind belongs to the closed set the status
// engine understands.
func (k Kind) IsKnown() bool {
	_, ok := knownKinds[k]
	return ok
}

// Activity is a single timestamped, typed fact ingested into the event log.
// Immutable once appended. Seq is assigned by the store and breaks ordering
// ties between activities with identical occurred_at.
type Activity struct {
	ID         uuid.UUID
	ContactID  uuid.UUID
	TenantID   uuid.UUID
	Kind       Kind
	OccurredAt time.Time
	Seq        int64
	PayloadRef string
	Source     string
	// Payload carries kind-specific fields (e.g. the requested status of a
	// manual_override, or analysis findings). Opaque to the log itself.
	Payload map[string]any
	DedupKey string
	CreatedAt time.Time
}

// Before reports whether a sorts strictly before b under the canonical
// (occurred_at, seq) ordering.
func (a Activity) Before(b Activity) bool {
	if a.OccurredAt.Equal(b.OccurredAt) {
		return a.Seq < b.Seq
	}
	return a.OccurredAt.Before(b.OccurredAt)
}

// OverrideStatus returns the requested status of a manual_override activity,
// or "" when the payload carries none.
func (a Activity) OverrideStatus() string {
	if a.Kind != KindManualOverride || a.Payload == nil {
		return ""
	}
	requested, _ := a.Payload["requestedStatus"].(string)
	return strings.TrimSpace(requested)
}

// OverrideActor returns the actor recorded on a manual_override activity.
func (a Activity) OverrideActor() string {
	if a.Payload == nil {
		return ""
	}
	actor, _ := a.Payload["actor"].(string)
	return strings.TrimSpace(actor)
}

// Validate checks the invariants required before an activity may be
// appended. now is the ingestion clock; skew is the tolerated clock drift
// for future-dated records.
func Validate(a Activity, now time.Time, skew time.Duration) error {
	if a.ContactID == uuid.Nil {
		return apperr.Validation("contact ID is required")
	}
	if a.TenantID == uuid.Nil {
		return apperr.Validation("tenant ID is required")
	}
	if strings.TrimSpace(string(a.Kind)) == "" {
		return apperr.Validation("activity kind is required")
	}
	if a.OccurredAt.IsZero() {
		return apperr.Validation("occurred_at is required")
	}
	if a.OccurredAt.After(now.Add(skew)) {
		return apperr.StaleClock("occurred_at is in the future beyond clock-skew tolerance")
	}
	return nil
}

// DedupKeyFor derives the idempotency key for externally delivered events
// when the adapter did not supply one: duplicate delivery of the same
// (contact, kind, occurred_at, source) must not double-append.
func DedupKeyFor(a Activity) string {
	if a.DedupKey != "" {
		return a.DedupKey
	}
	return strings.Join([]string{
		a.ContactID.String(),
		string(a.Kind),
		a.OccurredAt.UTC().Format(time.RFC3339Nano),
		a.Source,
	}, "|")
}
