// Package service regenerates key signals from the activity log and exposes
// resolve and listing operations.
package service

import (
	"context"
	"errors"
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
	"contactpulse_backend/internal/events"
	"contactpulse_backend/internal/signals/domain"
	"contactpulse_backend/internal/signals/repository"
	"contactpulse_backend/platform/apperr"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
)

// SignalStore is the persistence surface for key signals.
// Satisfied by *repository.Repository.
type SignalStore interface {
	Upsert(ctx context.Context, s domain.Signal) (domain.Signal, error)
	ListActive(ctx context.Context, contactID, tenantID uuid.UUID, now time.Time) ([]domain.Signal, error)
	Resolve(ctx context.Context, id, tenantID uuid.UUID, at time.Time) (domain.Signal, error)
	ContactsWithExpiredBetween(ctx context.Context, from, to time.Time) (map[uuid.UUID]uuid.UUID, error)
}

// ActivityReader reads the ordered event log for regeneration.
type ActivityReader interface {
	ListSince(ctx context.Context, contactID, tenantID uuid.UUID, since time.Time) ([]activitydomain.Activity, error)
}

// Service is the key signal generator.
type Service struct {
	repo       SignalStore
	activities ActivityReader
	rules      map[string]domain.Rule
	eventBus   events.Bus
	log        *logger.Logger
	now        func() time.Time
}

func New(repo SignalStore, activities ActivityReader, rules map[string]domain.Rule, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		activities: activities,
		rules:      rules,
		eventBus:   eventBus,
		log:        log,
		now:        time.Now,
	}
}

// SubscribeToEvents registers the regeneration trigger. Signals regenerate
// from the full log on every analysis, so the derivation stays pure and
// duplicate deliveries converge to the same stored set.
func (s *Service) SubscribeToEvents(bus events.Bus) {
	bus.Subscribe(events.ActivityAppended{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		appended, ok := e.(events.ActivityAppended)
		if !ok || appended.Kind != string(activitydomain.KindAnalysisReady) {
			return nil
		}
		return s.Regenerate(ctx, appended.ContactID, appended.TenantID)
	}))
}

// Regenerate derives the contact's signal set from its activity log and
// upserts every derived signal into its bucket. Publishes
// ContactSignalsUpdated when at least one signal was stored.
func (s *Service) Regenerate(ctx context.Context, contactID, tenantID uuid.UUID) error {
	activities, err := s.activities.ListSince(ctx, contactID, tenantID, time.Time{})
	if err != nil {
		return err
	}

	signals := domain.Generate(activities, s.rules, s.now())
	if len(signals) == 0 {
		return nil
	}

	for _, sig := range signals {
		if _, err := s.repo.Upsert(ctx, sig); err != nil {
			return err
		}
	}

	s.eventBus.Publish(ctx, events.ContactSignalsUpdated{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contactID,
		TenantID:  tenantID,
	})
	return nil
}

// ListActive returns a contact's active signals ordered by severity, then
// recency.
func (s *Service) ListActive(ctx context.Context, contactID, tenantID uuid.UUID) ([]domain.Signal, error) {
	return s.repo.ListActive(ctx, contactID, tenantID, s.now())
}

// Resolve marks a signal handled and notifies card consumers.
func (s *Service) Resolve(ctx context.Context, id, tenantID uuid.UUID) (domain.Signal, error) {
	resolved, err := s.repo.Resolve(ctx, id, tenantID, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Signal{}, apperr.NotFound("signal not found")
	}
	if err != nil {
		return domain.Signal{}, err
	}

	s.eventBus.Publish(ctx, events.ContactSignalsUpdated{
		BaseEvent: events.NewBaseEvent(),
		ContactID: resolved.ContactID,
		TenantID:  resolved.TenantID,
	})
	return resolved, nil
}

// SweepExpired notifies card consumers for contacts whose signals expired
// inside the window. Expiry itself is implicit (active listings filter on
// expires_at); the sweep only propagates the change.
func (s *Service) SweepExpired(ctx context.Context, window time.Duration) (int, error) {
	now := s.now()
	contacts, err := s.repo.ContactsWithExpiredBetween(ctx, now.Add(-window), now)
	if err != nil {
		return 0, err
	}

	for contactID, tenantID := range contacts {
		s.eventBus.Publish(ctx, events.ContactSignalsUpdated{
			BaseEvent: events.NewBaseEvent(),
			ContactID: contactID,
			TenantID:  tenantID,
		})
	}
	return len(contacts), nil
}
