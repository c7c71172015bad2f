// Package service provides the activity ingestion boundary: validation,
// idempotent append, and downstream propagation to the status engine.
package service

import (
	"context"
	"time"

	"contactpulse_backend/internal/activity/domain"
	"contactpulse_backend/internal/events"
	"contactpulse_backend/platform/apperr"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the service needs.
// Satisfied by *repository.Repository.
type Store interface {
	Append(ctx context.Context, a domain.Activity) (domain.Activity, bool, error)
	ListSince(ctx context.Context, contactID, tenantID uuid.UUID, since time.Time) ([]domain.Activity, error)
}

// ContactChecker verifies a contact exists within a tenant.
// Satisfied by the contacts service.
type ContactChecker interface {
	Exists(ctx context.Context, contactID, tenantID uuid.UUID) (bool, error)
}

// StatusEngine consumes appended activities and applies at most one status
// transition per activity. Satisfied by the status service.
type StatusEngine interface {
	OnActivity(ctx context.Context, activity domain.Activity) error
}

// Service handles activity ingestion.
type Service struct {
	repo     Store
	contacts ContactChecker
	engine   StatusEngine
	eventBus events.Bus
	cfg      config.IngestionConfig
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new activity service.
func New(repo Store, contacts ContactChecker, engine StatusEngine, eventBus events.Bus, cfg config.IngestionConfig, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		contacts: contacts,
		engine:   engine,
		eventBus: eventBus,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// AppendParams carries a normalized inbound activity.
type AppendParams struct {
	ContactID  uuid.UUID
	Kind       domain.Kind
	OccurredAt time.Time
	PayloadRef string
	Source     string
	Payload    map[string]any
	DedupKey   string
}

// Append validates and durably appends an activity, returning the stored
// record and whether it was a duplicate delivery. On a fresh append the
// status engine is driven synchronously (the one serialized side effect) and
// an ActivityAppended event is published for other consumers.
func (s *Service) Append(ctx context.Context, tenantID uuid.UUID, params AppendParams) (domain.Activity, bool, error) {
	activity := domain.Activity{
		ContactID:  params.ContactID,
		TenantID:   tenantID,
		Kind:       params.Kind,
		OccurredAt: params.OccurredAt,
		PayloadRef: params.PayloadRef,
		Source:     params.Source,
		Payload:    params.Payload,
		DedupKey:   params.DedupKey,
	}

	if err := domain.Validate(activity, s.now(), s.cfg.GetClockSkewTolerance()); err != nil {
		if apperr.Is(err, apperr.KindStaleClock) {
			s.log.Warn("activity rejected: future-dated beyond tolerance",
				"contactId", params.ContactID, "kind", params.Kind, "occurredAt", params.OccurredAt)
		}
		return domain.Activity{}, false, err
	}

	exists, err := s.contacts.Exists(ctx, activity.ContactID, tenantID)
	if err != nil {
		return domain.Activity{}, false, err
	}
	if !exists {
		return domain.Activity{}, false, apperr.NotFound("contact not found")
	}

	// Providers supply their own event-anchored key; everything else gets the
	// canonical content key.
	if activity.DedupKey == "" {
		activity.DedupKey = domain.DedupKeyFor(activity)
	}

	stored, wasDuplicate, err := s.repo.Append(ctx, activity)
	if err != nil {
		return domain.Activity{}, false, err
	}
	if wasDuplicate {
		s.log.Info("duplicate activity delivery ignored",
			"contactId", stored.ContactID, "dedupKey", stored.DedupKey, "activityId", stored.ID)
		return stored, true, nil
	}

	// Drive the status engine before returning so a caller that re-reads
	// immediately observes any transition. Engine failures do not undo the
	// append: the activity is durable and the history can be recomputed.
	if err := s.engine.OnActivity(ctx, stored); err != nil {
		s.log.Error("status engine evaluation failed", "error", err, "activityId", stored.ID)
	}

	s.eventBus.Publish(ctx, events.ActivityAppended{
		BaseEvent:  events.NewBaseEvent(),
		ActivityID: stored.ID,
		ContactID:  stored.ContactID,
		TenantID:   stored.TenantID,
		Kind:       string(stored.Kind),
		Source:     stored.Source,
		ActivityAt: stored.OccurredAt,
		Seq:        stored.Seq,
	})

	return stored, false, nil
}

// AppendOverride records a manual status override as a first-class activity,
// so the transition it causes is part of the log and survives replay.
func (s *Service) AppendOverride(ctx context.Context, tenantID, contactID uuid.UUID, requested, actor string, at time.Time) error {
	_, _, err := s.Append(ctx, tenantID, AppendParams{
		ContactID:  contactID,
		Kind:       domain.KindManualOverride,
		OccurredAt: at,
		Source:     "api",
		Payload: map[string]any{
			"requestedStatus": requested,
			"actor":           actor,
		},
	})
	return err
}

// AppendTaskCompleted records a task completion as an engagement activity.
func (s *Service) AppendTaskCompleted(ctx context.Context, tenantID, contactID, taskID uuid.UUID, at time.Time) error {
	_, _, err := s.Append(ctx, tenantID, AppendParams{
		ContactID:  contactID,
		Kind:       domain.KindTaskCompleted,
		OccurredAt: at,
		Source:     "api",
		Payload: map[string]any{
			"taskId": taskID.String(),
		},
	})
	return err
}

// ListSince re-exposes ordered reads of the event log.
func (s *Service) ListSince(ctx context.Context, contactID, tenantID uuid.UUID, since time.Time) ([]domain.Activity, error) {
	return s.repo.ListSince(ctx, contactID, tenantID, since)
}
