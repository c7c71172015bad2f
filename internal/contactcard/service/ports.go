// Package service assembles the contact card: a read-model snapshot composed
// from the contact registry, the event log, the status history, the key
// signals and the open tasks.
package service

import (
	"context"
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
	contactsdomain "contactpulse_backend/internal/contacts/domain"
	signalsdomain "contactpulse_backend/internal/signals/domain"
	statusrepo "contactpulse_backend/internal/status/repository"

	"github.com/google/uuid"
)

// ContactReader resolves the card's subject. Satisfied by the contacts
// service; an unknown contact is a not-found error and fails assembly.
type ContactReader interface {
	Get(ctx context.Context, id, tenantID uuid.UUID) (contactsdomain.Contact, error)
}

// ActivityReader reads the ordered event log. Satisfied by the activity
// repository.
type ActivityReader interface {
	ListSince(ctx context.Context, contactID, tenantID uuid.UUID, since time.Time) ([]activitydomain.Activity, error)
}

// StatusReader reads the transition history. Satisfied by the status
// repository.
type StatusReader interface {
	History(ctx context.Context, contactID, tenantID uuid.UUID) ([]statusrepo.HistoryEntry, error)
}

// SignalReader lists active signals, ordered by severity then recency.
// Satisfied by the signals service.
type SignalReader interface {
	ListActive(ctx context.Context, contactID, tenantID uuid.UUID) ([]signalsdomain.Signal, error)
}

// TaskReader lists follow-up tasks. Satisfied by the task repository.
type TaskReader interface {
	ListByContact(ctx context.Context, contactID, tenantID uuid.UUID) ([]contactsdomain.Task, error)
}
