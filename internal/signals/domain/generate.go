package domain

import (
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
)

// bucket identifies the supersede unit: a contact carries at most one active
// signal per bucket.
type bucket struct {
	Category Category
	Subtype  string
}

// Generate derives the signal set from a contact's activity log. It is a
// pure function: the same log and rule table always yield the same signals.
// Findings are read from analysis_ready payloads; per bucket the highest
// severity wins, with the most recent finding breaking ties. Signals expired
// at now are dropped.
func Generate(activities []activitydomain.Activity, rules map[string]Rule, now time.Time) []Signal {
	byBucket := make(map[bucket]Signal)
	var order []bucket

	for _, a := range activities {
		if a.Kind != activitydomain.KindAnalysisReady {
			continue
		}
		for _, finding := range findings(a) {
			rule, ok := rules[finding]
			if !ok {
				continue
			}

			candidate := Signal{
				ContactID:        a.ContactID,
				TenantID:         a.TenantID,
				Category:         rule.Category,
				Subtype:          rule.Subtype,
				Severity:         rule.Severity,
				GeneratedAt:      a.OccurredAt,
				SourceActivityID: a.ID,
			}
			if rule.TTL > 0 {
				exp := a.OccurredAt.Add(rule.TTL)
				candidate.ExpiresAt = &exp
			}
			if !candidate.Active(now) {
				continue
			}

			key := bucket{Category: rule.Category, Subtype: rule.Subtype}
			existing, seen := byBucket[key]
			if !seen {
				byBucket[key] = candidate
				order = append(order, key)
				continue
			}
			if candidate.Severity > existing.Severity ||
				(candidate.Severity == existing.Severity && candidate.GeneratedAt.After(existing.GeneratedAt)) {
				byBucket[key] = candidate
			}
		}
	}

	out := make([]Signal, 0, len(order))
	for _, key := range order {
		out = append(out, byBucket[key])
	}
	return out
}

// findings extracts the finding names from an analysis payload. Both bare
// strings and {"finding": name} objects are accepted; anything else is
// ignored rather than rejected, to tolerate partial analysis payloads.
func findings(a activitydomain.Activity) []string {
	raw, ok := a.Payload["findings"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		switch typed := item.(type) {
		case string:
			out = append(out, typed)
		case map[string]any:
			if name, ok := typed["finding"].(string); ok {
				out = append(out, name)
			}
		}
	}
	return out
}
