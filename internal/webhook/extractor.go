package webhook

import (
	"fmt"
	"strings"
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
)

// kindMapping translates common provider event names into activity kinds.
// Matching is case-insensitive on the normalized form (dots and dashes
// become underscores). Unmapped names pass through opaque and are rejected
// by activity validation, so a new provider vocabulary shows up as a
// validation error rather than silent data loss.
var kindMapping = map[string]activitydomain.Kind{
	"call_completed":          activitydomain.KindCallCompleted,
	"call_finished":           activitydomain.KindCallCompleted,
	"call_ended":              activitydomain.KindCallCompleted,
	"appointment_booked":      activitydomain.KindAppointmentBooked,
	"appointment_created":     activitydomain.KindAppointmentBooked,
	"booking_confirmed":       activitydomain.KindAppointmentBooked,
	"appointment_arrived":     activitydomain.KindAppointmentArrived,
	"appointment_checkin":     activitydomain.KindAppointmentArrived,
	"appointment_no_show":     activitydomain.KindAppointmentNoShow,
	"appointment_noshow":      activitydomain.KindAppointmentNoShow,
	"appointment_rescheduled": activitydomain.KindAppointmentRescheduled,
	"booking_rescheduled":     activitydomain.KindAppointmentRescheduled,
	"message_sent":            activitydomain.KindMessageSent,
	"sms_delivered":           activitydomain.KindMessageSent,
	"email_sent":              activitydomain.KindMessageSent,
	"analysis_ready":          activitydomain.KindAnalysisReady,
	"analysis_completed":      activitydomain.KindAnalysisReady,
	"task_completed":          activitydomain.KindTaskCompleted,
}

// MapProviderKind normalizes a provider event name to an activity kind.
func MapProviderKind(raw string) activitydomain.Kind {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(normalized)
	if kind, ok := kindMapping[normalized]; ok {
		return kind
	}
	return activitydomain.Kind(normalized)
}

// ProviderDedupKey builds the idempotency key for a provider event. The
// provider's own event ID anchors it, so a redelivered webhook maps to the
// same key regardless of content drift.
func ProviderDedupKey(provider, eventID string) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(strings.TrimSpace(provider)), strings.TrimSpace(eventID))
}

// CallTrackingPayload is the wire shape of the call-tracking provider's
// webhook.
type CallTrackingPayload struct {
	CallID       string         `json:"call_id" validate:"required"`
	CallerNumber string         `json:"caller_number" validate:"required"`
	Direction    string         `json:"direction"`
	DurationSecs int            `json:"duration_seconds"`
	Status       string         `json:"status"`
	RecordingURL string         `json:"recording_url"`
	StartedAt    *time.Time     `json:"started_at"`
	Analysis     map[string]any `json:"analysis"`
}

// ExtractedCall is a call-tracking payload normalized into activity terms.
// Analysis, when present, becomes a second activity so the signal generator
// can pick its findings up.
type ExtractedCall struct {
	Phone           string
	OccurredAt      time.Time
	DedupKey        string
	PayloadRef      string
	Payload         map[string]any
	AnalysisPayload map[string]any
}

// ExtractCallTracking normalizes a call-tracking webhook. now anchors the
// timestamp when the provider omits one.
func ExtractCallTracking(p CallTrackingPayload, now time.Time) ExtractedCall {
	occurredAt := now
	if p.StartedAt != nil {
		occurredAt = *p.StartedAt
	}

	out := ExtractedCall{
		Phone:      p.CallerNumber,
		OccurredAt: occurredAt,
		DedupKey:   ProviderDedupKey("calltracking", p.CallID),
		PayloadRef: p.RecordingURL,
		Payload: map[string]any{
			"callId":          p.CallID,
			"direction":       p.Direction,
			"durationSeconds": p.DurationSecs,
			"status":          p.Status,
		},
	}
	if len(p.Analysis) > 0 {
		out.AnalysisPayload = p.Analysis
	}
	return out
}
