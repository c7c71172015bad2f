package domain

import (
	"time"

	"github.com/google/uuid"

	activitydomain "contactpulse_backend/internal/activity/domain"
)

// Evaluation reasons recorded in the status history. Reasons name the rule
// that fired, not the activity; the activity id is stored alongside.
const (
	ReasonManualOverride  = "manual_override"
	ReasonAppointment     = "appointment_outcome"
	ReasonEngagement      = "positive_engagement"
	ReasonInactivity      = "inactivity"
	ReasonProlongedIdling = "prolonged_inactivity"
)

// Transition is one status change, the unit of the status history.
type Transition struct {
	Previous    Status
	Next        Status
	Reason      string
	Actor       string
	ActivityID  *uuid.UUID
	OccurredAt  time.Time
	ActivitySeq int64
}

// appointmentTarget maps appointment-outcome activity kinds to the status
// they pin the contact to, regardless of its position on the spine.
var appointmentTarget = map[activitydomain.Kind]Status{
	activitydomain.KindAppointmentBooked:      StatusBooked,
	activitydomain.KindAppointmentArrived:     StatusInProgress,
	activitydomain.KindAppointmentNoShow:      StatusNoShow,
	activitydomain.KindAppointmentRescheduled: StatusRescheduled,
}

// engagementKinds are generic positive engagements that advance the contact
// one step along the lattice.
var engagementKinds = map[activitydomain.Kind]bool{
	activitydomain.KindCallCompleted: true,
	activitydomain.KindTaskCompleted: true,
}

// Evaluate applies a single activity to the current status and returns the
// resulting transition, if any. It is a pure function: the same current
// status and activity always produce the same outcome.
//
// Rule precedence: a manual override wins unconditionally, then terminal
// statuses reject everything, then appointment outcomes pin their target,
// then generic engagements advance one step. Anything else is a no-op.
func Evaluate(current Status, a activitydomain.Activity) (Transition, bool) {
	if a.Kind == activitydomain.KindManualOverride {
		requested := Status(a.OverrideStatus())
		if !requested.IsKnown() {
			return Transition{}, false
		}
		return Transition{
			Previous:    current,
			Next:        requested,
			Reason:      ReasonManualOverride,
			Actor:       a.OverrideActor(),
			ActivityID:  &a.ID,
			OccurredAt:  a.OccurredAt,
			ActivitySeq: a.Seq,
		}, true
	}

	if current.IsTerminal() {
		return Transition{}, false
	}

	if target, ok := appointmentTarget[a.Kind]; ok {
		if target == current {
			return Transition{}, false
		}
		return Transition{
			Previous:    current,
			Next:        target,
			Reason:      ReasonAppointment,
			ActivityID:  &a.ID,
			OccurredAt:  a.OccurredAt,
			ActivitySeq: a.Seq,
		}, true
	}

	if engagementKinds[a.Kind] {
		next, ok := Advance(current)
		if !ok || next == current {
			return Transition{}, false
		}
		return Transition{
			Previous:    current,
			Next:        next,
			Reason:      ReasonEngagement,
			ActivityID:  &a.ID,
			OccurredAt:  a.OccurredAt,
			ActivitySeq: a.Seq,
		}, true
	}

	return Transition{}, false
}

// EvaluateInactivity applies the clock-driven demotion rule. windows maps a
// status to how long it may sit idle before demoting to dormant; statuses
// without a window never demote. A contact already dormant demotes to
// abandoned once idle beyond abandonedAfter.
func EvaluateInactivity(current Status, idleFor time.Duration, windows map[Status]time.Duration, abandonedAfter time.Duration) (Transition, bool) {
	if current.IsTerminal() || current == StatusAbandoned {
		return Transition{}, false
	}

	if current == StatusDormant {
		if idleFor <= abandonedAfter {
			return Transition{}, false
		}
		return Transition{
			Previous: current,
			Next:     StatusAbandoned,
			Reason:   ReasonProlongedIdling,
		}, true
	}

	window, ok := windows[current]
	if !ok || idleFor <= window {
		return Transition{}, false
	}
	return Transition{
		Previous: current,
		Next:     StatusDormant,
		Reason:   ReasonInactivity,
	}, true
}

// Replay derives the activity-driven status history from scratch. Activities
// must be in canonical order (occurred_at, then seq). The derivation is
// deterministic: identical input always yields an identical history.
// Clock-driven demotions are not activity-driven and are therefore not part
// of the replayed history.
func Replay(activities []activitydomain.Activity) []Transition {
	current := StatusNew
	var history []Transition
	for _, a := range activities {
		t, ok := Evaluate(current, a)
		if !ok {
			continue
		}
		history = append(history, t)
		current = t.Next
	}
	return history
}
