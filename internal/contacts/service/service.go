// Package service provides the contact registry: creation with phone
// normalization, lookups for other modules, and follow-up tasks.
package service

import (
	"context"
	"errors"
	"time"

	"contactpulse_backend/internal/contacts/domain"
	"contactpulse_backend/internal/contacts/repository"
	"contactpulse_backend/platform/apperr"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"
	"contactpulse_backend/platform/phone"

	"github.com/google/uuid"
)

// ContactStore is the persistence surface for contacts.
// Satisfied by *repository.Repository.
type ContactStore interface {
	Create(ctx context.Context, c domain.Contact) (domain.Contact, error)
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (domain.Contact, error)
	Exists(ctx context.Context, id, tenantID uuid.UUID) (bool, error)
	FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (domain.Contact, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]domain.Contact, error)
}

// TaskStore is the persistence surface for follow-up tasks.
// Satisfied by *repository.TaskRepository.
type TaskStore interface {
	Create(ctx context.Context, t domain.Task) (domain.Task, error)
	ListByContact(ctx context.Context, contactID, tenantID uuid.UUID) ([]domain.Task, error)
	Complete(ctx context.Context, id, tenantID uuid.UUID, at time.Time) (domain.Task, error)
}

// TaskCompletionRecorder appends a task_completed activity so completing a
// task counts as engagement. Bound after construction because the activity
// module depends on this one.
type TaskCompletionRecorder interface {
	AppendTaskCompleted(ctx context.Context, tenantID, contactID, taskID uuid.UUID, at time.Time) error
}

// Service is the contact registry.
type Service struct {
	repo     ContactStore
	tasks    TaskStore
	recorder TaskCompletionRecorder
	cfg      config.ContactsConfig
	log      *logger.Logger
	now      func() time.Time
}

func New(repo ContactStore, tasks TaskStore, cfg config.ContactsConfig, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		tasks: tasks,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// BindRecorder wires the activity ingestion path used by CompleteTask.
func (s *Service) BindRecorder(recorder TaskCompletionRecorder) {
	s.recorder = recorder
}

// CreateParams carries a new contact.
type CreateParams struct {
	Name   string
	Phone  string
	Email  string
	Source string
}

// Create registers a contact. The phone number, when present, is normalized
// to E.164 using the tenant's default region so webhook lookups match.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, params CreateParams) (domain.Contact, error) {
	c := domain.Contact{
		TenantID: tenantID,
		Name:     params.Name,
		Source:   params.Source,
	}
	if params.Phone != "" {
		normalized := phone.NormalizeE164(params.Phone, s.cfg.GetDefaultPhoneRegion())
		c.Phone = &normalized
	}
	if params.Email != "" {
		c.Email = &params.Email
	}
	return s.repo.Create(ctx, c)
}

// Get returns a contact or a not-found error.
func (s *Service) Get(ctx context.Context, id, tenantID uuid.UUID) (domain.Contact, error) {
	c, err := s.repo.GetByID(ctx, id, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Contact{}, apperr.NotFound("contact not found")
	}
	return c, err
}

// Exists reports whether a contact exists within a tenant. Used by the
// ingestion path to reject activities for unknown contacts.
func (s *Service) Exists(ctx context.Context, id, tenantID uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id, tenantID)
}

// ResolveByPhone finds the contact owning a raw phone number.
func (s *Service) ResolveByPhone(ctx context.Context, tenantID uuid.UUID, rawPhone string) (domain.Contact, error) {
	normalized := phone.NormalizeE164(rawPhone, s.cfg.GetDefaultPhoneRegion())
	c, err := s.repo.FindByPhone(ctx, tenantID, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Contact{}, apperr.NotFound("no contact with this phone number")
	}
	return c, err
}

// List returns a page of the tenant's contacts.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]domain.Contact, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, tenantID, limit, offset)
}

// CreateTask opens a follow-up task for a contact.
func (s *Service) CreateTask(ctx context.Context, tenantID uuid.UUID, contactID uuid.UUID, title string, dueAt *time.Time) (domain.Task, error) {
	exists, err := s.repo.Exists(ctx, contactID, tenantID)
	if err != nil {
		return domain.Task{}, err
	}
	if !exists {
		return domain.Task{}, apperr.NotFound("contact not found")
	}
	return s.tasks.Create(ctx, domain.Task{
		ContactID: contactID,
		TenantID:  tenantID,
		Title:     title,
		DueAt:     dueAt,
	})
}

// ListTasks returns a contact's tasks.
func (s *Service) ListTasks(ctx context.Context, contactID, tenantID uuid.UUID) ([]domain.Task, error) {
	return s.tasks.ListByContact(ctx, contactID, tenantID)
}

// CompleteTask marks a task done and records the completion as an activity,
// so it counts as engagement for the status engine.
func (s *Service) CompleteTask(ctx context.Context, id, tenantID uuid.UUID) (domain.Task, error) {
	now := s.now()
	t, err := s.tasks.Complete(ctx, id, tenantID, now)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return domain.Task{}, apperr.NotFound("task not found")
	}
	if err != nil {
		return domain.Task{}, err
	}

	if s.recorder != nil {
		if err := s.recorder.AppendTaskCompleted(ctx, tenantID, t.ContactID, t.ID, now); err != nil {
			s.log.Error("task completion activity append failed", "error", err, "taskId", t.ID)
		}
	}
	return t, nil
}
