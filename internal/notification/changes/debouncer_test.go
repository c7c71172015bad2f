package changes

import (
	"context"
	"sync"
	"testing"
	"time"

	"contactpulse_backend/internal/events"
	platformevents "contactpulse_backend/platform/events"
	"contactpulse_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

type fakeVersionReader struct {
	mu  sync.Mutex
	seq map[uuid.UUID]int64
}

func (f *fakeVersionReader) MaxSeq(_ context.Context, contactID, _ uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq[contactID], nil
}

func (f *fakeVersionReader) set(contactID uuid.UUID, seq int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seq == nil {
		f.seq = make(map[uuid.UUID]int64)
	}
	f.seq[contactID] = seq
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

func (b *recordingBus) cardChanges() []events.ContactCardChanged {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.ContactCardChanged
	for _, e := range b.events {
		if changed, ok := e.(events.ContactCardChanged); ok {
			out = append(out, changed)
		}
	}
	return out
}

type notifierCfg time.Duration

func (c notifierCfg) GetChangeDebounceWindow() time.Duration { return time.Duration(c) }

func (c notifierCfg) GetRedisURL() string { return "" }

func waitForCardChanges(t *testing.T, bus *recordingBus, want int) []events.ContactCardChanged {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := bus.cardChanges(); len(got) >= want {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	return bus.cardChanges()
}

func TestDebouncerCoalescesBurstIntoOneAnnouncement(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	contactID, tenantID := uuid.New(), uuid.New()
	seqs := &fakeVersionReader{}
	seqs.set(contactID, 5)
	bus := &recordingBus{}

	d := NewDebouncer(NewRedisVersionStore(client), seqs, bus, notifierCfg(30*time.Millisecond), logger.New("test"))
	defer d.Close()

	// A burst: appended activity, its status transition, a signal refresh.
	d.touch(contactID, tenantID, false)
	d.touch(contactID, tenantID, false)
	d.touch(contactID, tenantID, true)

	changes := waitForCardChanges(t, bus, 1)
	if len(changes) != 1 {
		t.Fatalf("published %d announcements, want 1", len(changes))
	}
	if changes[0].ContactID != contactID || changes[0].Version != 5 {
		t.Errorf("announcement = %+v", changes[0])
	}
	if changes[0].AsOf.IsZero() {
		t.Error("announcement must carry as_of")
	}
}

func TestDebouncerSuppressesAlreadyPublishedVersion(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	contactID, tenantID := uuid.New(), uuid.New()
	seqs := &fakeVersionReader{}
	seqs.set(contactID, 5)
	bus := &recordingBus{}

	d := NewDebouncer(NewRedisVersionStore(client), seqs, bus, notifierCfg(10*time.Millisecond), logger.New("test"))
	defer d.Close()

	d.touch(contactID, tenantID, false)
	waitForCardChanges(t, bus, 1)

	// Same version again, for example a duplicate delivery that appended
	// nothing. No second announcement.
	d.touch(contactID, tenantID, false)
	time.Sleep(50 * time.Millisecond)
	if got := bus.cardChanges(); len(got) != 1 {
		t.Fatalf("published %d announcements, want 1", len(got))
	}

	// The log advanced: announce the new version.
	seqs.set(contactID, 6)
	d.touch(contactID, tenantID, false)
	changes := waitForCardChanges(t, bus, 2)
	if len(changes) != 2 {
		t.Fatalf("published %d announcements, want 2", len(changes))
	}
	if changes[1].Version != 6 {
		t.Errorf("second announcement version = %d, want 6", changes[1].Version)
	}
}

func TestDebouncerAlwaysAnnouncesOffLogChanges(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	contactID, tenantID := uuid.New(), uuid.New()
	seqs := &fakeVersionReader{}
	seqs.set(contactID, 5)
	bus := &recordingBus{}

	d := NewDebouncer(NewRedisVersionStore(client), seqs, bus, notifierCfg(10*time.Millisecond), logger.New("test"))
	defer d.Close()

	d.touch(contactID, tenantID, false)
	waitForCardChanges(t, bus, 1)

	// A signal resolve does not advance the log but still changes the card.
	d.touch(contactID, tenantID, true)
	changes := waitForCardChanges(t, bus, 2)
	if len(changes) != 2 {
		t.Fatalf("published %d announcements, want 2", len(changes))
	}
}

// cardChangeRecorder collects ContactCardChanged announcements dispatched by
// a real bus.
type cardChangeRecorder struct {
	mu      sync.Mutex
	changes []events.ContactCardChanged
}

func (r *cardChangeRecorder) subscribe(bus events.Bus) {
	bus.Subscribe(events.ContactCardChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if changed, ok := e.(events.ContactCardChanged); ok {
			r.mu.Lock()
			r.changes = append(r.changes, changed)
			r.mu.Unlock()
		}
		return nil
	}))
}

func (r *cardChangeRecorder) wait(want int) []events.ContactCardChanged {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		n := len(r.changes)
		r.mu.Unlock()
		if n >= want {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.ContactCardChanged(nil), r.changes...)
}

func TestDebouncerAnnouncesSweepDemotion(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	contactID, tenantID := uuid.New(), uuid.New()
	seqs := &fakeVersionReader{}
	seqs.set(contactID, 5)

	bus := platformevents.NewInMemoryBus(logger.New("test"))
	recorder := &cardChangeRecorder{}
	recorder.subscribe(bus)

	d := NewDebouncer(NewRedisVersionStore(client), seqs, bus, notifierCfg(10*time.Millisecond), logger.New("test"))
	defer d.Close()
	d.SubscribeToEvents(bus)

	bus.Publish(context.Background(), events.ActivityAppended{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contactID, TenantID: tenantID, Seq: 5,
	})
	if got := recorder.wait(1); len(got) != 1 {
		t.Fatalf("published %d announcements after the activity, want 1", len(got))
	}

	// The sweep demotes without appending an activity: the version stays at
	// 5, but the status change must still be announced.
	bus.Publish(context.Background(), events.ContactStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contactID, TenantID: tenantID,
		PreviousStatus: "warm", NewStatus: "dormant", Seq: 0,
	})
	changes := recorder.wait(2)
	if len(changes) != 2 {
		t.Fatalf("published %d announcements, want 2: the demotion was dropped", len(changes))
	}
	if changes[1].Version != 5 {
		t.Errorf("demotion announcement version = %d, want 5", changes[1].Version)
	}
}

func TestRelayBridgesWorkerEventsToApiBus(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	workerBus := platformevents.NewInMemoryBus(logger.New("test"))
	apiBus := platformevents.NewInMemoryBus(logger.New("test"))

	contactID, tenantID := uuid.New(), uuid.New()
	var mu sync.Mutex
	var received []events.ContactStatusChanged
	apiBus.Subscribe(events.ContactStatusChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if changed, ok := e.(events.ContactStatusChanged); ok {
			mu.Lock()
			received = append(received, changed)
			mu.Unlock()
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewListener(client, apiBus, logger.New("test")).Run(ctx)

	NewRelay(client, logger.New("test")).SubscribeToEvents(workerBus)

	// Publish until the listener's subscription is live and the event comes
	// through; the demotion event is idempotent on the receiving side.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		workerBus.Publish(context.Background(), events.ContactStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			ContactID: contactID, TenantID: tenantID,
			PreviousStatus: "warm", NewStatus: "dormant", Seq: 0,
		})
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) == 0 {
		t.Fatal("worker-side status change never reached the api bus")
	}
	got := received[0]
	if got.ContactID != contactID || got.TenantID != tenantID || got.NewStatus != "dormant" || got.Seq != 0 {
		t.Errorf("relayed event = %+v", got)
	}
}

func TestDebouncerTracksContactsIndependently(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	a, b := uuid.New(), uuid.New()
	tenantID := uuid.New()
	seqs := &fakeVersionReader{}
	seqs.set(a, 1)
	seqs.set(b, 2)
	bus := &recordingBus{}

	d := NewDebouncer(NewRedisVersionStore(client), seqs, bus, notifierCfg(10*time.Millisecond), logger.New("test"))
	defer d.Close()

	d.touch(a, tenantID, false)
	d.touch(b, tenantID, false)

	changes := waitForCardChanges(t, bus, 2)
	if len(changes) != 2 {
		t.Fatalf("published %d announcements, want 2", len(changes))
	}
	seen := map[uuid.UUID]bool{}
	for _, c := range changes {
		seen[c.ContactID] = true
	}
	if !seen[a] || !seen[b] {
		t.Errorf("announcements = %+v", changes)
	}
}
