package service

import (
	"context"
	"sync"
	"testing"
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
	"contactpulse_backend/internal/events"
	"contactpulse_backend/internal/signals/domain"
	"contactpulse_backend/internal/signals/repository"
	"contactpulse_backend/platform/apperr"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSignalStore struct {
	mu      sync.Mutex
	signals map[string]domain.Signal
}

func newFakeSignalStore() *fakeSignalStore {
	return &fakeSignalStore{signals: make(map[string]domain.Signal)}
}

func bucketKey(s domain.Signal) string {
	return s.TenantID.String() + "|" + s.ContactID.String() + "|" + string(s.Category) + "|" + s.Subtype
}

func (f *fakeSignalStore) Upsert(_ context.Context, s domain.Signal) (domain.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := bucketKey(s)
	if existing, ok := f.signals[key]; ok {
		s.ID = existing.ID
	} else {
		s.ID = uuid.New()
	}
	f.signals[key] = s
	return s, nil
}

func (f *fakeSignalStore) ListActive(_ context.Context, contactID, tenantID uuid.UUID, now time.Time) ([]domain.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Signal
	for _, s := range f.signals {
		if s.ContactID == contactID && s.TenantID == tenantID && s.Active(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSignalStore) Resolve(_ context.Context, id, tenantID uuid.UUID, at time.Time) (domain.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, s := range f.signals {
		if s.ID == id && s.TenantID == tenantID && s.ResolvedAt == nil {
			s.ResolvedAt = &at
			f.signals[key] = s
			return s, nil
		}
	}
	return domain.Signal{}, repository.ErrNotFound
}

func (f *fakeSignalStore) ContactsWithExpiredBetween(_ context.Context, from, to time.Time) (map[uuid.UUID]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]uuid.UUID)
	for _, s := range f.signals {
		if s.ResolvedAt == nil && s.ExpiresAt != nil && s.ExpiresAt.After(from) && !s.ExpiresAt.After(to) {
			out[s.ContactID] = s.TenantID
		}
	}
	return out, nil
}

type fakeActivityReader struct {
	activities []activitydomain.Activity
}

func (f *fakeActivityReader) ListSince(_ context.Context, contactID, tenantID uuid.UUID, _ time.Time) ([]activitydomain.Activity, error) {
	var out []activitydomain.Activity
	for _, a := range f.activities {
		if a.ContactID == contactID && a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

func TestRegenerateUpsertsAndNotifies(t *testing.T) {
	contactID, tenantID := uuid.New(), uuid.New()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	reader := &fakeActivityReader{activities: []activitydomain.Activity{{
		ID:         uuid.New(),
		ContactID:  contactID,
		TenantID:   tenantID,
		Kind:       activitydomain.KindAnalysisReady,
		OccurredAt: now.Add(-time.Hour),
		Payload:    map[string]any{"findings": []any{"objection_raised", "buying_question"}},
	}}}

	store := newFakeSignalStore()
	bus := &recordingBus{}
	svc := New(store, reader, domain.MustLoadRules(), bus, logger.New("test"))
	svc.now = func() time.Time { return now }

	if err := svc.Regenerate(context.Background(), contactID, tenantID); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}

	active, err := svc.ListActive(context.Background(), contactID, tenantID)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("got %d active signals, want 2", len(active))
	}
	if got := bus.count(events.ContactSignalsUpdated{}.EventName()); got != 1 {
		t.Errorf("published %d updates, want 1", got)
	}

	// A second regeneration from the same log converges to the same set.
	if err := svc.Regenerate(context.Background(), contactID, tenantID); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	active, _ = svc.ListActive(context.Background(), contactID, tenantID)
	if len(active) != 2 {
		t.Fatalf("after second run got %d active signals, want 2", len(active))
	}
}

func TestRegenerateWithoutFindingsIsQuiet(t *testing.T) {
	contactID, tenantID := uuid.New(), uuid.New()
	reader := &fakeActivityReader{activities: []activitydomain.Activity{{
		ID:         uuid.New(),
		ContactID:  contactID,
		TenantID:   tenantID,
		Kind:       activitydomain.KindCallCompleted,
		OccurredAt: time.Now(),
	}}}

	bus := &recordingBus{}
	svc := New(newFakeSignalStore(), reader, domain.MustLoadRules(), bus, logger.New("test"))

	if err := svc.Regenerate(context.Background(), contactID, tenantID); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if got := bus.count(events.ContactSignalsUpdated{}.EventName()); got != 0 {
		t.Errorf("published %d updates, want 0", got)
	}
}

func TestResolve(t *testing.T) {
	contactID, tenantID := uuid.New(), uuid.New()
	store := newFakeSignalStore()
	bus := &recordingBus{}
	svc := New(store, &fakeActivityReader{}, domain.MustLoadRules(), bus, logger.New("test"))

	stored, err := store.Upsert(context.Background(), domain.Signal{
		ContactID:   contactID,
		TenantID:    tenantID,
		Category:    domain.CategoryRisk,
		Subtype:     "objection_raised",
		Severity:    4,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	resolved, err := svc.Resolve(context.Background(), stored.ID, tenantID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ResolvedAt == nil {
		t.Error("resolved signal missing resolved_at")
	}
	if got := bus.count(events.ContactSignalsUpdated{}.EventName()); got != 1 {
		t.Errorf("published %d updates, want 1", got)
	}

	// Resolving twice is a not-found: the signal is no longer active.
	_, err = svc.Resolve(context.Background(), stored.ID, tenantID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second resolve: got %v, want not found", err)
	}
}

func TestSweepExpiredNotifiesPerContact(t *testing.T) {
	store := newFakeSignalStore()
	bus := &recordingBus{}
	svc := New(store, &fakeActivityReader{}, domain.MustLoadRules(), bus, logger.New("test"))

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	justExpired := now.Add(-time.Minute)
	longExpired := now.Add(-48 * time.Hour)

	store.Upsert(context.Background(), domain.Signal{
		ContactID: uuid.New(), TenantID: uuid.New(),
		Category: domain.CategoryRisk, Subtype: "sentiment_low", Severity: 3,
		GeneratedAt: now.Add(-time.Hour), ExpiresAt: &justExpired,
	})
	store.Upsert(context.Background(), domain.Signal{
		ContactID: uuid.New(), TenantID: uuid.New(),
		Category: domain.CategoryRisk, Subtype: "sentiment_low", Severity: 3,
		GeneratedAt: now.Add(-72 * time.Hour), ExpiresAt: &longExpired,
	})

	notified, err := svc.SweepExpired(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("SweepExpired() error = %v", err)
	}
	if notified != 1 {
		t.Errorf("notified = %d, want 1", notified)
	}
}
