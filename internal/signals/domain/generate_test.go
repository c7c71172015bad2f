package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	activitydomain "contactpulse_backend/internal/activity/domain"
)

func analysisActivity(contactID uuid.UUID, at time.Time, findingNames ...any) activitydomain.Activity {
	return activitydomain.Activity{
		ID:         uuid.New(),
		ContactID:  contactID,
		TenantID:   uuid.New(),
		Kind:       activitydomain.KindAnalysisReady,
		OccurredAt: at,
		Payload:    map[string]any{"findings": findingNames},
	}
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules()
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}

	sop, ok := rules["sop_missed"]
	if !ok {
		t.Fatal("missing sop_missed rule")
	}
	if sop.Category != CategoryCoaching {
		t.Errorf("sop_missed category = %s, want %s", sop.Category, CategoryCoaching)
	}
	if sop.TTL != 336*time.Hour {
		t.Errorf("sop_missed ttl = %s, want 336h", sop.TTL)
	}

	budget, ok := rules["budget_confirmed"]
	if !ok {
		t.Fatal("missing budget_confirmed rule")
	}
	if budget.TTL != 0 {
		t.Errorf("budget_confirmed ttl = %s, want no expiry", budget.TTL)
	}
}

func TestParseRulesRejectsUnknownCategory(t *testing.T) {
	bad := []byte(`rules:
  - finding: objection_raised
    category: velocity
    subtype: objection_raised
    severity: 3
`)
	_, err := parseRules(bad)
	if err == nil {
		t.Fatal("expected an error for an unknown category")
	}
	if !strings.Contains(err.Error(), "unknown category") {
		t.Errorf("error = %v, want unknown category", err)
	}
}

func TestGenerate(t *testing.T) {
	rules := MustLoadRules()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	contactID := uuid.New()

	t.Run("maps findings through the rule table", func(t *testing.T) {
		signals := Generate([]activitydomain.Activity{
			analysisActivity(contactID, now.Add(-time.Hour), "objection_raised", "buying_question"),
		}, rules, now)

		if len(signals) != 2 {
			t.Fatalf("got %d signals, want 2", len(signals))
		}
		if signals[0].Category != CategoryRisk || signals[0].Subtype != "objection_raised" {
			t.Errorf("first signal = %+v", signals[0])
		}
		if signals[1].Category != CategoryOpportunity || signals[1].Severity != 4 {
			t.Errorf("second signal = %+v", signals[1])
		}
	})

	t.Run("bucket keeps the highest severity", func(t *testing.T) {
		older := analysisActivity(contactID, now.Add(-2*time.Hour), "sentiment_low")
		newer := analysisActivity(contactID, now.Add(-time.Hour), "objection_raised")

		signals := Generate([]activitydomain.Activity{older, newer}, rules, now)

		// sentiment_low and objection_raised land in different buckets.
		if len(signals) != 2 {
			t.Fatalf("got %d signals, want 2", len(signals))
		}
	})

	t.Run("same bucket supersedes with most recent on equal severity", func(t *testing.T) {
		first := analysisActivity(contactID, now.Add(-3*time.Hour), "sop_missed")
		second := analysisActivity(contactID, now.Add(-time.Hour), "sop_missed")

		signals := Generate([]activitydomain.Activity{first, second}, rules, now)

		if len(signals) != 1 {
			t.Fatalf("got %d signals, want 1", len(signals))
		}
		if signals[0].SourceActivityID != second.ID {
			t.Error("bucket must keep the most recent finding")
		}
	})

	t.Run("expired findings are dropped", func(t *testing.T) {
		stale := analysisActivity(contactID, now.Add(-400*time.Hour), "sop_missed")

		signals := Generate([]activitydomain.Activity{stale}, rules, now)
		if len(signals) != 0 {
			t.Fatalf("got %d signals, want 0", len(signals))
		}
	})

	t.Run("unknown findings and malformed payloads are ignored", func(t *testing.T) {
		a := analysisActivity(contactID, now.Add(-time.Hour), "made_up_finding", 42, map[string]any{"finding": "silence"})

		signals := Generate([]activitydomain.Activity{a}, rules, now)
		if len(signals) != 1 {
			t.Fatalf("got %d signals, want 1", len(signals))
		}
		if signals[0].Subtype != "prolonged_silence" {
			t.Errorf("subtype = %s, want prolonged_silence", signals[0].Subtype)
		}
	})

	t.Run("non-analysis activities contribute nothing", func(t *testing.T) {
		a := activitydomain.Activity{
			ID:         uuid.New(),
			ContactID:  contactID,
			Kind:       activitydomain.KindCallCompleted,
			OccurredAt: now,
			Payload:    map[string]any{"findings": []any{"objection_raised"}},
		}
		signals := Generate([]activitydomain.Activity{a}, rules, now)
		if len(signals) != 0 {
			t.Fatalf("got %d signals, want 0", len(signals))
		}
	})
}
