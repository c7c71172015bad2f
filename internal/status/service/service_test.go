package service

import (
	"context"
	"sync"
	"testing"
	"time"

	activitydomain "contactpulse_backend/internal/activity/domain"
	activityrepo "contactpulse_backend/internal/activity/repository"
	"contactpulse_backend/internal/events"
	"contactpulse_backend/internal/status/domain"
	"contactpulse_backend/internal/status/repository"
	"contactpulse_backend/platform/apperr"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeHistoryStore struct {
	mu      sync.Mutex
	entries []repository.HistoryEntry
}

func (f *fakeHistoryStore) Append(_ context.Context, contactID, tenantID uuid.UUID, t domain.Transition) (repository.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var actor *string
	if t.Actor != "" {
		actor = &t.Actor
	}
	e := repository.HistoryEntry{
		ID:             uuid.New(),
		ContactID:      contactID,
		TenantID:       tenantID,
		PreviousStatus: t.Previous,
		NextStatus:     t.Next,
		Reason:         t.Reason,
		Actor:          actor,
		ActivityID:     t.ActivityID,
		ActivitySeq:    t.ActivitySeq,
		TransitionedAt: t.OccurredAt,
	}
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeHistoryStore) Current(_ context.Context, contactID, tenantID uuid.UUID) (repository.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].ContactID == contactID && f.entries[i].TenantID == tenantID {
			return f.entries[i], nil
		}
	}
	return repository.HistoryEntry{}, repository.ErrNoHistory
}

func (f *fakeHistoryStore) History(_ context.Context, contactID, tenantID uuid.UUID) ([]repository.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.HistoryEntry
	for _, e := range f.entries {
		if e.ContactID == contactID && e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeHistoryStore) Replace(_ context.Context, contactID, tenantID uuid.UUID, history []domain.Transition) error {
	f.mu.Lock()
	kept := make([]repository.HistoryEntry, 0, len(f.entries))
	for _, e := range f.entries {
		if e.ContactID != contactID || e.TenantID != tenantID {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	f.mu.Unlock()
	for _, t := range history {
		f.Append(context.Background(), contactID, tenantID, t)
	}
	return nil
}

type fakeActivityReader struct {
	activities []activitydomain.Activity
	idle       []activityrepo.IdleContact
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

func (f *fakeActivityReader) ListIdleSince(_ context.Context, cutoff time.Time) ([]activityrepo.IdleContact, error) {
	var out []activityrepo.IdleContact
	for _, c := range f.idle {
		if c.LastActivityAt.Before(cutoff) {
			out = append(out, c)
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

type engineCfg struct {
	windows   map[string]time.Duration
	abandoned time.Duration
}

func (c engineCfg) GetInactivityWindows() map[string]time.Duration { return c.windows }
func (c engineCfg) GetAbandonedThreshold() time.Duration           { return c.abandoned }

func newTestService(store HistoryStore, reader ActivityReader, bus events.Bus, cfg engineCfg) *Service {
	return New(store, reader, bus, cfg, logger.New("test"))
}

func TestOnActivityAppliesTransitionAndPublishes(t *testing.T) {
	store := &fakeHistoryStore{}
	bus := &recordingBus{}
	svc := newTestService(store, &fakeActivityReader{}, bus, engineCfg{})

	contactID, tenantID := uuid.New(), uuid.New()
	a := activitydomain.Activity{
		ID:         uuid.New(),
		ContactID:  contactID,
		TenantID:   tenantID,
		Kind:       activitydomain.KindCallCompleted,
		OccurredAt: time.Now(),
		Seq:        7,
	}

	if err := svc.OnActivity(context.Background(), a); err != nil {
		t.Fatalf("OnActivity() error = %v", err)
	}

	current, err := svc.CurrentStatus(context.Background(), contactID, tenantID)
	if err != nil {
		t.Fatalf("CurrentStatus() error = %v", err)
	}
	if current != domain.StatusNurturing {
		t.Errorf("status = %s, want %s", current, domain.StatusNurturing)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.events) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.events))
	}
	changed, ok := bus.events[0].(events.ContactStatusChanged)
	if !ok {
		t.Fatalf("published %T, want ContactStatusChanged", bus.events[0])
	}
	if changed.NewStatus != string(domain.StatusNurturing) || changed.Seq != 7 {
		t.Errorf("event = %+v", changed)
	}
}

func TestOnActivityIgnoresNonTransitioningKinds(t *testing.T) {
	store := &fakeHistoryStore{}
	bus := &recordingBus{}
	svc := newTestService(store, &fakeActivityReader{}, bus, engineCfg{})

	a := activitydomain.Activity{
		ID:         uuid.New(),
		ContactID:  uuid.New(),
		TenantID:   uuid.New(),
		Kind:       activitydomain.KindMessageSent,
		OccurredAt: time.Now(),
	}
	if err := svc.OnActivity(context.Background(), a); err != nil {
		t.Fatalf("OnActivity() error = %v", err)
	}
	if len(store.entries) != 0 {
		t.Errorf("recorded %d transitions, want 0", len(store.entries))
	}
	if len(bus.events) != 0 {
		t.Errorf("published %d events, want 0", len(bus.events))
	}
}

func TestSweepInactivityDemotesIdleContacts(t *testing.T) {
	store := &fakeHistoryStore{}
	bus := &recordingBus{}
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	tenantID := uuid.New()
	warmContact, bookedContact := uuid.New(), uuid.New()

	reader := &fakeActivityReader{
		idle: []activityrepo.IdleContact{
			{ContactID: warmContact, TenantID: tenantID, LastActivityAt: now.Add(-10 * 24 * time.Hour)},
			{ContactID: bookedContact, TenantID: tenantID, LastActivityAt: now.Add(-10 * 24 * time.Hour)},
		},
	}
	cfg := engineCfg{
		windows:   map[string]time.Duration{"warm": 7 * 24 * time.Hour},
		abandoned: 60 * 24 * time.Hour,
	}
	svc := newTestService(store, reader, bus, cfg)
	svc.now = func() time.Time { return now }

	seed := func(contactID uuid.UUID, status domain.Status) {
		store.Append(context.Background(), contactID, tenantID, domain.Transition{
			Previous:   domain.StatusNew,
			Next:       status,
			Reason:     domain.ReasonEngagement,
			OccurredAt: now.Add(-11 * 24 * time.Hour),
		})
	}
	seed(warmContact, domain.StatusWarm)
	seed(bookedContact, domain.StatusBooked)

	demoted, err := svc.SweepInactivity(context.Background())
	if err != nil {
		t.Fatalf("SweepInactivity() error = %v", err)
	}
	if demoted != 1 {
		t.Fatalf("demoted = %d, want 1", demoted)
	}

	got, _ := svc.CurrentStatus(context.Background(), warmContact, tenantID)
	if got != domain.StatusDormant {
		t.Errorf("warm contact = %s, want %s", got, domain.StatusDormant)
	}
	got, _ = svc.CurrentStatus(context.Background(), bookedContact, tenantID)
	if got != domain.StatusBooked {
		t.Errorf("booked contact = %s, want %s", got, domain.StatusBooked)
	}
}

func TestSweepInactivitySkipsNonPositiveWindows(t *testing.T) {
	store := &fakeHistoryStore{}
	bus := &recordingBus{}
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	tenantID := uuid.New()
	warmContact := uuid.New()

	reader := &fakeActivityReader{
		idle: []activityrepo.IdleContact{
			{ContactID: warmContact, TenantID: tenantID, LastActivityAt: now.Add(-10 * 24 * time.Hour)},
		},
	}

	// A typo'd env value parses to 0. The status must be treated as
	// unconfigured, never as "demote immediately".
	cfg := engineCfg{
		windows:   map[string]time.Duration{"warm": 0},
		abandoned: 60 * 24 * time.Hour,
	}
	svc := newTestService(store, reader, bus, cfg)
	svc.now = func() time.Time { return now }

	store.Append(context.Background(), warmContact, tenantID, domain.Transition{
		Previous:   domain.StatusNew,
		Next:       domain.StatusWarm,
		Reason:     domain.ReasonEngagement,
		OccurredAt: now.Add(-11 * 24 * time.Hour),
	})

	demoted, err := svc.SweepInactivity(context.Background())
	if err != nil {
		t.Fatalf("SweepInactivity() error = %v", err)
	}
	if demoted != 0 {
		t.Fatalf("demoted = %d, want 0", demoted)
	}
	got, _ := svc.CurrentStatus(context.Background(), warmContact, tenantID)
	if got != domain.StatusWarm {
		t.Errorf("warm contact = %s, want unchanged %s", got, domain.StatusWarm)
	}
}

func TestRecomputeDetectsAndRepairsDrift(t *testing.T) {
	store := &fakeHistoryStore{}
	contactID, tenantID := uuid.New(), uuid.New()
	activityID := uuid.New()

	reader := &fakeActivityReader{
		activities: []activitydomain.Activity{{
			ID:         activityID,
			ContactID:  contactID,
			TenantID:   tenantID,
			Kind:       activitydomain.KindCallCompleted,
			OccurredAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
			Seq:        1,
		}},
	}
	svc := newTestService(store, reader, &recordingBus{}, engineCfg{})

	// Stored history claims a transition the log does not support.
	store.Append(context.Background(), contactID, tenantID, domain.Transition{
		Previous:    domain.StatusNew,
		Next:        domain.StatusHot,
		Reason:      domain.ReasonEngagement,
		ActivitySeq: 1,
		OccurredAt:  time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	})

	drifted, err := svc.Recompute(context.Background(), contactID, tenantID, false)
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if !drifted {
		t.Fatal("expected drift to be detected")
	}

	// Dry run must not touch the stored history.
	if got, _ := svc.CurrentStatus(context.Background(), contactID, tenantID); got != domain.StatusHot {
		t.Fatalf("dry run modified history, status = %s", got)
	}

	if _, err := svc.Recompute(context.Background(), contactID, tenantID, true); err != nil {
		t.Fatalf("Recompute(repair) error = %v", err)
	}
	if got, _ := svc.CurrentStatus(context.Background(), contactID, tenantID); got != domain.StatusNurturing {
		t.Errorf("repaired status = %s, want %s", got, domain.StatusNurturing)
	}

	drifted, err = svc.Recompute(context.Background(), contactID, tenantID, false)
	if err != nil {
		t.Fatalf("Recompute() after repair error = %v", err)
	}
	if drifted {
		t.Error("repaired history still reports drift")
	}
}

type fakeAppender struct {
	requested string
	actor     string
	calls     int
}

func (f *fakeAppender) AppendOverride(_ context.Context, _, _ uuid.UUID, requested, actor string, _ time.Time) error {
	f.calls++
	f.requested = requested
	f.actor = actor
	return nil
}

func TestOverrideValidatesAndRoutesThroughIngestion(t *testing.T) {
	svc := newTestService(&fakeHistoryStore{}, &fakeActivityReader{}, &recordingBus{}, engineCfg{})
	appender := &fakeAppender{}
	svc.BindAppender(appender)

	err := svc.Override(context.Background(), uuid.New(), uuid.New(), "golden", "user:ana")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown status: got %v, want validation error", err)
	}

	err = svc.Override(context.Background(), uuid.New(), uuid.New(), domain.StatusLost, "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("missing actor: got %v, want validation error", err)
	}

	if err := svc.Override(context.Background(), uuid.New(), uuid.New(), domain.StatusLost, "user:ana"); err != nil {
		t.Fatalf("Override() error = %v", err)
	}
	if appender.calls != 1 || appender.requested != "lost" || appender.actor != "user:ana" {
		t.Errorf("appender = %+v", appender)
	}
}
