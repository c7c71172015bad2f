package service

import (
	"context"
	"testing"
	"time"

	"contactpulse_backend/internal/contacts/domain"
	"contactpulse_backend/internal/contacts/repository"
	"contactpulse_backend/platform/apperr"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeContactStore struct {
	contacts map[uuid.UUID]domain.Contact
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{contacts: make(map[uuid.UUID]domain.Contact)}
}

func (f *fakeContactStore) Create(_ context.Context, c domain.Contact) (domain.Contact, error) {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	f.contacts[c.ID] = c
	return c, nil
}

func (f *fakeContactStore) GetByID(_ context.Context, id, tenantID uuid.UUID) (domain.Contact, error) {
	c, ok := f.contacts[id]
	if !ok || c.TenantID != tenantID {
		return domain.Contact{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeContactStore) Exists(ctx context.Context, id, tenantID uuid.UUID) (bool, error) {
	_, err := f.GetByID(ctx, id, tenantID)
	return err == nil, nil
}

func (f *fakeContactStore) FindByPhone(_ context.Context, tenantID uuid.UUID, phone string) (domain.Contact, error) {
	for _, c := range f.contacts {
		if c.TenantID == tenantID && c.Phone != nil && *c.Phone == phone {
			return c, nil
		}
	}
	return domain.Contact{}, repository.ErrNotFound
}

func (f *fakeContactStore) List(_ context.Context, tenantID uuid.UUID, _, _ int) ([]domain.Contact, error) {
	var out []domain.Contact
	for _, c := range f.contacts {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeTaskStore struct {
	tasks map[uuid.UUID]domain.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]domain.Task)}
}

func (f *fakeTaskStore) Create(_ context.Context, t domain.Task) (domain.Task, error) {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeTaskStore) ListByContact(_ context.Context, contactID, tenantID uuid.UUID) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f.tasks {
		if t.ContactID == contactID && t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) Complete(_ context.Context, id, tenantID uuid.UUID, at time.Time) (domain.Task, error) {
	t, ok := f.tasks[id]
	if !ok || t.TenantID != tenantID || t.CompletedAt != nil {
		return domain.Task{}, repository.ErrTaskNotFound
	}
	t.CompletedAt = &at
	f.tasks[id] = t
	return t, nil
}

type fakeRecorder struct {
	calls     int
	contactID uuid.UUID
}

func (f *fakeRecorder) AppendTaskCompleted(_ context.Context, _, contactID, _ uuid.UUID, _ time.Time) error {
	f.calls++
	f.contactID = contactID
	return nil
}

type regionCfg struct{}

func (regionCfg) GetDefaultPhoneRegion() string { return "NL" }

func newTestService(store ContactStore, tasks TaskStore) *Service {
	return New(store, tasks, regionCfg{}, logger.New("test"))
}

func TestCreateNormalizesPhone(t *testing.T) {
	store := newFakeContactStore()
	svc := newTestService(store, newFakeTaskStore())
	tenantID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, CreateParams{
		Name:  "Jansen Installaties",
		Phone: "06 1234 5678",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Phone == nil || *created.Phone != "+31612345678" {
		t.Errorf("phone = %v, want +31612345678", created.Phone)
	}

	// A differently formatted rendition of the same number resolves back.
	resolved, err := svc.ResolveByPhone(context.Background(), tenantID, "+31 6 12345678")
	if err != nil {
		t.Fatalf("ResolveByPhone() error = %v", err)
	}
	if resolved.ID != created.ID {
		t.Error("resolution returned a different contact")
	}
}

func TestGetUnknownContactIsNotFound(t *testing.T) {
	svc := newTestService(newFakeContactStore(), newFakeTaskStore())

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestCompleteTaskRecordsEngagement(t *testing.T) {
	store := newFakeContactStore()
	tasks := newFakeTaskStore()
	svc := newTestService(store, tasks)
	recorder := &fakeRecorder{}
	svc.BindRecorder(recorder)

	tenantID := uuid.New()
	contact, _ := store.Create(context.Background(), domain.Contact{TenantID: tenantID, Name: "Test"})

	task, err := svc.CreateTask(context.Background(), tenantID, contact.ID, "call back about offer", nil)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	completed, err := svc.CompleteTask(context.Background(), task.ID, tenantID)
	if err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}
	if completed.CompletedAt == nil {
		t.Error("completed task missing completed_at")
	}
	if recorder.calls != 1 || recorder.contactID != contact.ID {
		t.Errorf("recorder = %+v", recorder)
	}

	// Completing twice is a not-found.
	_, err = svc.CompleteTask(context.Background(), task.ID, tenantID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second complete: got %v, want not found", err)
	}
}

func TestCreateTaskForUnknownContact(t *testing.T) {
	svc := newTestService(newFakeContactStore(), newFakeTaskStore())

	_, err := svc.CreateTask(context.Background(), uuid.New(), uuid.New(), "follow up", nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}
