// Package changes turns the stream of domain events into debounced,
// at-most-once card change announcements.
package changes

import (
	"context"
	"sync"
	"time"

	"contactpulse_backend/internal/events"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"

	"github.com/google/uuid"
)

// VersionReader reads the contact's current card version (the highest
// activity seq). Satisfied by the activity repository.
type VersionReader interface {
	MaxSeq(ctx context.Context, contactID, tenantID uuid.UUID) (int64, error)
}

// pendingChange accumulates events for one contact while its debounce timer
// runs. offLog marks changes that do not advance the card version, such as a
// signal resolve; those always publish.
type pendingChange struct {
	tenantID uuid.UUID
	offLog   bool
	timer    *time.Timer
}

// Debouncer coalesces card-affecting events per contact within a window and
// publishes a single ContactCardChanged per burst. The version store
// suppresses re-announcing a version that was already published, so a burst,
// a duplicate timer or a restart yields at most one announcement per logical
// change.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[uuid.UUID]*pendingChange
	versions VersionStore
	seqs     VersionReader
	eventBus events.Bus
	window   time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewDebouncer(versions VersionStore, seqs VersionReader, eventBus events.Bus, cfg config.NotifierConfig, log *logger.Logger) *Debouncer {
	return &Debouncer{
		pending:  make(map[uuid.UUID]*pendingChange),
		versions: versions,
		seqs:     seqs,
		eventBus: eventBus,
		window:   cfg.GetChangeDebounceWindow(),
		log:      log,
		now:      time.Now,
	}
}

// SubscribeToEvents registers the debouncer on every card-affecting event.
func (d *Debouncer) SubscribeToEvents(bus events.Bus) {
	handler := events.HandlerFunc(func(_ context.Context, e events.Event) error {
		switch typed := e.(type) {
		case events.ActivityAppended:
			d.touch(typed.ContactID, typed.TenantID, false)
		case events.ContactStatusChanged:
			// An inactivity demotion carries no reason activity, so the
			// card version does not advance; it must publish like a
			// signal resolve does.
			d.touch(typed.ContactID, typed.TenantID, typed.Seq == 0)
		case events.ContactSignalsUpdated:
			d.touch(typed.ContactID, typed.TenantID, true)
		}
		return nil
	})
	bus.Subscribe(events.ActivityAppended{}.EventName(), handler)
	bus.Subscribe(events.ContactStatusChanged{}.EventName(), handler)
	bus.Subscribe(events.ContactSignalsUpdated{}.EventName(), handler)
}

// touch records a change for a contact and arms its debounce timer if not
// already running.
func (d *Debouncer) touch(contactID, tenantID uuid.UUID, offLog bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[contactID]; ok {
		p.offLog = p.offLog || offLog
		return
	}

	p := &pendingChange{tenantID: tenantID, offLog: offLog}
	p.timer = time.AfterFunc(d.window, func() {
		d.flush(contactID)
	})
	d.pending[contactID] = p
}

// flush publishes the coalesced change for one contact, unless the card
// version was already announced.
func (d *Debouncer) flush(contactID uuid.UUID) {
	d.mu.Lock()
	p, ok := d.pending[contactID]
	delete(d.pending, contactID)
	d.mu.Unlock()
	if !ok {
		return
	}

	ctx := context.Background()
	version, err := d.seqs.MaxSeq(ctx, contactID, p.tenantID)
	if err != nil {
		d.log.Error("change notifier: version read failed", "error", err, "contactId", contactID)
		return
	}

	last, seen, err := d.versions.LastPublished(ctx, contactID)
	if err != nil {
		d.log.Error("change notifier: version store read failed", "error", err, "contactId", contactID)
		return
	}
	if seen && version <= last && !p.offLog {
		return
	}

	if err := d.versions.SetLastPublished(ctx, contactID, version); err != nil {
		d.log.Error("change notifier: version store write failed", "error", err, "contactId", contactID)
		return
	}

	d.eventBus.Publish(ctx, events.ContactCardChanged{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contactID,
		TenantID:  p.tenantID,
		AsOf:      d.now(),
		Version:   version,
	})
}

// Close cancels all armed timers. Pending, unflushed changes are dropped;
// their versions will be announced by the next change after restart.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, id)
	}
}
