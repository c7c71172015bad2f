package webhook

import (
	"testing"
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
)

func TestMapProviderKind(t *testing.T) {
	tests := []struct {
		raw  string
		want activitydomain.Kind
	}{
		{"call.completed", activitydomain.KindCallCompleted},
		{"Call-Finished", activitydomain.KindCallCompleted},
		{"appointment.created", activitydomain.KindAppointmentBooked},
		{"APPOINTMENT_NO_SHOW", activitydomain.KindAppointmentNoShow},
		{"booking rescheduled", activitydomain.KindAppointmentRescheduled},
		{"sms.delivered", activitydomain.KindMessageSent},
		{"analysis.completed", activitydomain.KindAnalysisReady},
		// Unknown vocabulary passes through opaque.
		{"provider.custom_event", activitydomain.Kind("provider_custom_event")},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			if got := MapProviderKind(tc.raw); got != tc.want {
				t.Errorf("MapProviderKind(%q) = %s, want %s", tc.raw, got, tc.want)
			}
		})
	}
}

func TestProviderDedupKeyIsStableAcrossRedelivery(t *testing.T) {
	first := ProviderDedupKey("CallTracking", "evt-123")
	second := ProviderDedupKey("calltracking", " evt-123 ")
	if first != second {
		t.Errorf("dedup keys differ: %q vs %q", first, second)
	}
}

func TestExtractCallTracking(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	started := now.Add(-10 * time.Minute)

	extracted := ExtractCallTracking(CallTrackingPayload{
		CallID:       "call-42",
		CallerNumber: "+31612345678",
		Direction:    "inbound",
		DurationSecs: 240,
		Status:       "completed",
		RecordingURL: "https://recordings.example/call-42",
		StartedAt:    &started,
		Analysis:     map[string]any{"findings": []any{"objection_raised"}},
	}, now)

	if extracted.Phone != "+31612345678" {
		t.Errorf("phone = %s", extracted.Phone)
	}
	if !extracted.OccurredAt.Equal(started) {
		t.Errorf("occurredAt = %s, want provider timestamp", extracted.OccurredAt)
	}
	if extracted.DedupKey != "calltracking:call-42" {
		t.Errorf("dedupKey = %s", extracted.DedupKey)
	}
	if extracted.PayloadRef != "https://recordings.example/call-42" {
		t.Errorf("payloadRef = %s", extracted.PayloadRef)
	}
	if extracted.AnalysisPayload == nil {
		t.Error("analysis payload missing")
	}

	// Without a provider timestamp the receive time anchors the activity.
	bare := ExtractCallTracking(CallTrackingPayload{CallID: "x", CallerNumber: "+31612345678"}, now)
	if !bare.OccurredAt.Equal(now) {
		t.Errorf("occurredAt = %s, want now", bare.OccurredAt)
	}
	if bare.AnalysisPayload != nil {
		t.Error("unexpected analysis payload")
	}
}
