// Package service applies the status engine rules to the persisted history:
// activity-driven transitions, inactivity sweeps, manual overrides, and the
// replay audit.
package service

import (
	"context"
	"errors"
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
	activityrepo "contactpulse_backend/internal/activity/repository"
	"contactpulse_backend/internal/events"
	"contactpulse_backend/internal/status/domain"
	"contactpulse_backend/internal/status/repository"
	"contactpulse_backend/platform/apperr"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
)

// HistoryStore is the persistence surface for the status history.
// Satisfied by *repository.Repository.
type HistoryStore interface {
	Append(ctx context.Context, contactID, tenantID uuid.UUID, t domain.Transition) (repository.HistoryEntry, error)
	Current(ctx context.Context, contactID, tenantID uuid.UUID) (repository.HistoryEntry, error)
	History(ctx context.Context, contactID, tenantID uuid.UUID) ([]repository.HistoryEntry, error)
	Replace(ctx context.Context, contactID, tenantID uuid.UUID, history []domain.Transition) error
}

// ActivityReader reads the ordered event log for replay and the sweep.
// Satisfied by the activity repository.
type ActivityReader interface {
	ListSince(ctx context.Context, contactID, tenantID uuid.UUID, since time.Time) ([]activitydomain.Activity, error)
	ListIdleSince(ctx context.Context, cutoff time.Time) ([]activityrepo.IdleContact, error)
}

// ActivityAppender records a manual override as a first-class activity so it
// survives replay. Satisfied by the activity service; bound after
// construction because the activity service drives this service in turn.
type ActivityAppender interface {
	AppendOverride(ctx context.Context, tenantID, contactID uuid.UUID, requested, actor string, at time.Time) error
}

// Service is the lead status engine.
type Service struct {
	repo       HistoryStore
	activities ActivityReader
	appender   ActivityAppender
	eventBus   events.Bus
	cfg        config.StatusEngineConfig
	log        *logger.Logger
	now        func() time.Time
}

func New(repo HistoryStore, activities ActivityReader, eventBus events.Bus, cfg config.StatusEngineConfig, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		activities: activities,
		eventBus:   eventBus,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// BindAppender wires the activity ingestion path used by Override. Separate
// from New because the activity service and this service reference each
// other; the override flow goes through ingestion so it lands in the log.
func (s *Service) BindAppender(appender ActivityAppender) {
	s.appender = appender
}

// CurrentStatus returns the contact's current status. A contact with no
// recorded transitions is in the initial status.
func (s *Service) CurrentStatus(ctx context.Context, contactID, tenantID uuid.UUID) (domain.Status, error) {
	entry, err := s.repo.Current(ctx, contactID, tenantID)
	if errors.Is(err, repository.ErrNoHistory) {
		return domain.StatusNew, nil
	}
	if err != nil {
		return "", err
	}
	return entry.NextStatus, nil
}

// History returns the contact's full transition history.
func (s *Service) History(ctx context.Context, contactID, tenantID uuid.UUID) ([]repository.HistoryEntry, error) {
	return s.repo.History(ctx, contactID, tenantID)
}

// OnActivity evaluates a freshly appended activity against the contact's
// current status and records at most one transition. Called synchronously
// from the ingestion path, which already serializes per contact.
func (s *Service) OnActivity(ctx context.Context, activity activitydomain.Activity) error {
	current, err := s.CurrentStatus(ctx, activity.ContactID, activity.TenantID)
	if err != nil {
		return err
	}

	transition, ok := domain.Evaluate(current, activity)
	if !ok {
		if activity.Kind == activitydomain.KindManualOverride {
			s.log.Warn("manual override requested unknown status, ignored",
				"contactId", activity.ContactID, "requested", activity.OverrideStatus())
		} else {
			s.log.IgnoredActivity(activity.ContactID.String(), string(activity.Kind))
		}
		return nil
	}

	return s.apply(ctx, activity.ContactID, activity.TenantID, transition)
}

// Override requests an explicit status change. The override is recorded as a
// manual_override activity and flows through the normal ingestion path, so
// the transition it causes is reproducible from the log alone.
func (s *Service) Override(ctx context.Context, tenantID, contactID uuid.UUID, requested domain.Status, actor string) error {
	if !requested.IsKnown() {
		return apperr.Validation("unknown status: " + string(requested))
	}
	if actor == "" {
		return apperr.Validation("override requires an actor")
	}
	return s.appender.AppendOverride(ctx, tenantID, contactID, string(requested), actor, s.now())
}

// SweepInactivity demotes contacts that have sat idle beyond their status's
// window. Run periodically by the scheduler. Only the largest configured
// window needs scanning: contacts idle less than minWindow cannot demote.
func (s *Service) SweepInactivity(ctx context.Context) (int, error) {
	windows := make(map[domain.Status]time.Duration)
	minWindow := time.Duration(0)
	for name, d := range s.cfg.GetInactivityWindows() {
		// A non-positive window means the status has no usable
		// configuration; skipping it demotes nobody rather than everybody.
		if d <= 0 {
			s.log.Warn("inactivity sweep: ignoring non-positive window", "status", name)
			continue
		}
		windows[domain.Status(name)] = d
		if minWindow == 0 || d < minWindow {
			minWindow = d
		}
	}
	if len(windows) == 0 {
		s.log.Warn("inactivity sweep: no windows configured, skipping")
		return 0, nil
	}

	now := s.now()
	idle, err := s.activities.ListIdleSince(ctx, now.Add(-minWindow))
	if err != nil {
		return 0, err
	}

	demoted := 0
	for _, contact := range idle {
		current, err := s.CurrentStatus(ctx, contact.ContactID, contact.TenantID)
		if err != nil {
			s.log.Error("inactivity sweep: current status lookup failed",
				"error", err, "contactId", contact.ContactID)
			continue
		}

		transition, ok := domain.EvaluateInactivity(current, now.Sub(contact.LastActivityAt), windows, s.cfg.GetAbandonedThreshold())
		if !ok {
			continue
		}
		transition.OccurredAt = now

		if err := s.apply(ctx, contact.ContactID, contact.TenantID, transition); err != nil {
			s.log.Error("inactivity sweep: transition failed",
				"error", err, "contactId", contact.ContactID)
			continue
		}
		demoted++
	}
	return demoted, nil
}

// Recompute derives the contact's activity-driven history from the log and
// compares it with the stored one. When repair is true and the two diverge,
// the stored history is replaced with the derivation. Returns whether drift
// was found. Clock-driven demotions are not reproducible from the log and
// are dropped by a repair.
func (s *Service) Recompute(ctx context.Context, contactID, tenantID uuid.UUID, repair bool) (bool, error) {
	activities, err := s.activities.ListSince(ctx, contactID, tenantID, time.Time{})
	if err != nil {
		return false, err
	}
	derived := domain.Replay(activities)

	stored, err := s.repo.History(ctx, contactID, tenantID)
	if err != nil {
		return false, err
	}

	if !historyDrifted(stored, derived) {
		return false, nil
	}

	s.log.Warn("status history drift detected",
		"contactId", contactID, "stored", len(stored), "derived", len(derived))

	if !repair {
		return true, nil
	}
	if err := s.repo.Replace(ctx, contactID, tenantID, derived); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Service) apply(ctx context.Context, contactID, tenantID uuid.UUID, t domain.Transition) error {
	entry, err := s.repo.Append(ctx, contactID, tenantID, t)
	if err != nil {
		return err
	}

	s.log.StatusTransition(contactID.String(), string(t.Previous), string(t.Next), t.Reason)

	s.eventBus.Publish(ctx, events.ContactStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		ContactID:      contactID,
		TenantID:       tenantID,
		PreviousStatus: string(t.Previous),
		NewStatus:      string(t.Next),
		ReasonActivity: t.ActivityID,
		Actor:          t.Actor,
		Seq:            entry.ActivitySeq,
	})
	return nil
}

// historyDrifted compares stored history against a fresh derivation. A sweep
// demotion changes the state later activities were evaluated against, so
// entries from the first sweep demotion onwards are not reproducible from the
// log; only the prefix before it is comparable.
func historyDrifted(stored []repository.HistoryEntry, derived []domain.Transition) bool {
	comparable := stored
	swept := false
	for i, e := range stored {
		if e.Reason == domain.ReasonInactivity || e.Reason == domain.ReasonProlongedIdling {
			comparable = stored[:i]
			swept = true
			break
		}
	}

	if swept {
		if len(comparable) > len(derived) {
			return true
		}
		derived = derived[:len(comparable)]
	} else if len(comparable) != len(derived) {
		return true
	}

	for i, d := range derived {
		e := comparable[i]
		if e.PreviousStatus != d.Previous || e.NextStatus != d.Next || e.Reason != d.Reason || e.ActivitySeq != d.ActivitySeq {
			return true
		}
	}
	return false
}
