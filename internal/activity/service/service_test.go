package service

import (
	"context"
	"testing"
	"time"

	"contactpulse_backend/internal/activity/domain"
	"contactpulse_backend/internal/events"
	"contactpulse_backend/platform/apperr"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	byDedup map[string]domain.Activity
	nextSeq int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{byDedup: make(map[string]domain.Activity)}
}

func (f *fakeStore) Append(_ context.Context, a domain.Activity) (domain.Activity, bool, error) {
	if existing, ok := f.byDedup[a.DedupKey]; ok {
		return existing, true, nil
	}
	f.nextSeq++
	a.ID = uuid.New()
	a.Seq = f.nextSeq
	f.byDedup[a.DedupKey] = a
	return a, false, nil
}

func (f *fakeStore) ListSince(_ context.Context, _, _ uuid.UUID, _ time.Time) ([]domain.Activity, error) {
	return nil, nil
}

type fakeContacts struct {
	known map[uuid.UUID]bool
}

func (f *fakeContacts) Exists(_ context.Context, contactID, _ uuid.UUID) (bool, error) {
	return f.known[contactID], nil
}

type fakeEngine struct {
	seen []domain.Activity
}

func (f *fakeEngine) OnActivity(_ context.Context, a domain.Activity) error {
	f.seen = append(f.seen, a)
	return nil
}

type ingestionCfg struct{ skew time.Duration }

func (c ingestionCfg) GetClockSkewTolerance() time.Duration { return c.skew }

func newTestService(store *fakeStore, contacts *fakeContacts, engine *fakeEngine) *Service {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	return New(store, contacts, engine, bus, ingestionCfg{skew: 5 * time.Minute}, log)
}

func TestAppendDuplicateDeliveryAppendsOnce(t *testing.T) {
	contactID := uuid.New()
	tenantID := uuid.New()
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{contactID: true}}, engine)

	params := AppendParams{
		ContactID:  contactID,
		Kind:       domain.KindCallCompleted,
		OccurredAt: time.Now().Add(-time.Minute),
		Source:     "calltrack",
		DedupKey:   "provider-evt-1",
	}

	first, dup, err := svc.Append(context.Background(), tenantID, params)
	if err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if dup {
		t.Fatal("first delivery flagged as duplicate")
	}

	second, dup, err := svc.Append(context.Background(), tenantID, params)
	if err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	if !dup {
		t.Fatal("second delivery not flagged as duplicate")
	}
	if second.ID != first.ID {
		t.Errorf("duplicate returned a different activity: %s vs %s", second.ID, first.ID)
	}
	if len(store.byDedup) != 1 {
		t.Errorf("store holds %d activities, want 1", len(store.byDedup))
	}
	if len(engine.seen) != 1 {
		t.Errorf("engine driven %d times, want 1 (duplicates must not re-evaluate)", len(engine.seen))
	}
}

func TestAppendRejectsUnknownContact(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeContacts{known: map[uuid.UUID]bool{}}, &fakeEngine{})

	_, _, err := svc.Append(context.Background(), uuid.New(), AppendParams{
		ContactID:  uuid.New(),
		Kind:       domain.KindCallCompleted,
		OccurredAt: time.Now().Add(-time.Minute),
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestAppendRejectsFutureDatedActivity(t *testing.T) {
	contactID := uuid.New()
	store := newFakeStore()
	svc := newTestService(store, &fakeContacts{known: map[uuid.UUID]bool{contactID: true}}, &fakeEngine{})

	_, _, err := svc.Append(context.Background(), uuid.New(), AppendParams{
		ContactID:  contactID,
		Kind:       domain.KindCallCompleted,
		OccurredAt: time.Now().Add(time.Hour),
	})
	if !apperr.Is(err, apperr.KindStaleClock) {
		t.Fatalf("expected stale clock error, got %v", err)
	}
	if len(store.byDedup) != 0 {
		t.Error("rejected activity must not be appended")
	}
}
