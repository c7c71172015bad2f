package webhook

import (
	"context"
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
	activityservice "contactpulse_backend/internal/activity/service"
	contactsdomain "contactpulse_backend/internal/contacts/domain"
	"contactpulse_backend/internal/events"
	"contactpulse_backend/platform/apperr"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
)

// ActivityAppender is the ingestion surface. Satisfied by the activity
// service.
type ActivityAppender interface {
	Append(ctx context.Context, tenantID uuid.UUID, params activityservice.AppendParams) (activitydomain.Activity, bool, error)
}

// ContactResolver resolves the contact a provider event belongs to.
// Satisfied by the contacts service.
type ContactResolver interface {
	Exists(ctx context.Context, contactID, tenantID uuid.UUID) (bool, error)
	ResolveByPhone(ctx context.Context, tenantID uuid.UUID, rawPhone string) (contactsdomain.Contact, error)
}

// Service normalizes authenticated provider events and feeds them into the
// ingestion path.
type Service struct {
	activities ActivityAppender
	contacts   ContactResolver
	eventBus   events.Bus
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates a new webhook service.
func NewService(activities ActivityAppender, contacts ContactResolver, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		activities: activities,
		contacts:   contacts,
		eventBus:   eventBus,
		log:        log,
		now:        time.Now,
	}
}

// InboundActivity is a provider event after field-level normalization.
// Exactly one of ContactID and Phone identifies the contact.
type InboundActivity struct {
	Provider   string
	ContactID  *uuid.UUID
	Phone      string
	Kind       string
	OccurredAt *time.Time
	EventID    string
	PayloadRef string
	Payload    map[string]any
}

// HandleActivity resolves the contact and appends the normalized activity.
// Returns the stored activity and whether it was a duplicate delivery.
func (s *Service) HandleActivity(ctx context.Context, tenantID uuid.UUID, in InboundActivity) (activitydomain.Activity, bool, error) {
	contactID, err := s.resolveContact(ctx, tenantID, in)
	if err != nil {
		return activitydomain.Activity{}, false, err
	}

	occurredAt := s.now()
	if in.OccurredAt != nil {
		occurredAt = *in.OccurredAt
	}

	var dedupKey string
	if in.EventID != "" {
		dedupKey = ProviderDedupKey(in.Provider, in.EventID)
	}

	stored, duplicate, err := s.activities.Append(ctx, tenantID, activityservice.AppendParams{
		ContactID:  contactID,
		Kind:       MapProviderKind(in.Kind),
		OccurredAt: occurredAt,
		PayloadRef: in.PayloadRef,
		Source:     in.Provider,
		Payload:    in.Payload,
		DedupKey:   dedupKey,
	})
	if err != nil {
		return activitydomain.Activity{}, false, err
	}

	s.eventBus.Publish(ctx, events.WebhookActivityReceived{
		BaseEvent:    events.NewBaseEvent(),
		ActivityID:   stored.ID,
		ContactID:    stored.ContactID,
		TenantID:     tenantID,
		Provider:     in.Provider,
		WasDuplicate: duplicate,
	})
	return stored, duplicate, nil
}

// HandleCallTracking appends the call itself and, when the provider shipped
// an analysis alongside, a second analysis_ready activity carrying its
// findings.
func (s *Service) HandleCallTracking(ctx context.Context, tenantID uuid.UUID, payload CallTrackingPayload) (activitydomain.Activity, bool, error) {
	extracted := ExtractCallTracking(payload, s.now())

	contact, err := s.contacts.ResolveByPhone(ctx, tenantID, extracted.Phone)
	if err != nil {
		return activitydomain.Activity{}, false, err
	}

	call, duplicate, err := s.HandleActivity(ctx, tenantID, InboundActivity{
		Provider:   "calltracking",
		ContactID:  &contact.ID,
		Kind:       string(activitydomain.KindCallCompleted),
		OccurredAt: &extracted.OccurredAt,
		EventID:    payload.CallID,
		PayloadRef: extracted.PayloadRef,
		Payload:    extracted.Payload,
	})
	if err != nil {
		return activitydomain.Activity{}, false, err
	}

	if extracted.AnalysisPayload != nil && !duplicate {
		analysisAt := extracted.OccurredAt.Add(time.Second)
		if _, _, err := s.HandleActivity(ctx, tenantID, InboundActivity{
			Provider:   "calltracking",
			ContactID:  &contact.ID,
			Kind:       string(activitydomain.KindAnalysisReady),
			OccurredAt: &analysisAt,
			EventID:    payload.CallID + ":analysis",
			PayloadRef: extracted.PayloadRef,
			Payload:    extracted.AnalysisPayload,
		}); err != nil {
			s.log.Error("call analysis append failed", "error", err, "callId", payload.CallID)
		}
	}

	return call, duplicate, nil
}

func (s *Service) resolveContact(ctx context.Context, tenantID uuid.UUID, in InboundActivity) (uuid.UUID, error) {
	if in.ContactID != nil {
		exists, err := s.contacts.Exists(ctx, *in.ContactID, tenantID)
		if err != nil {
			return uuid.Nil, err
		}
		if !exists {
			return uuid.Nil, apperr.NotFound("contact not found")
		}
		return *in.ContactID, nil
	}
	if in.Phone == "" {
		return uuid.Nil, apperr.Validation("either contactId or phone is required")
	}
	contact, err := s.contacts.ResolveByPhone(ctx, tenantID, in.Phone)
	if err != nil {
		return uuid.Nil, err
	}
	return contact.ID, nil
}
