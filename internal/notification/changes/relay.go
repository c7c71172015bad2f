package changes

import (
	"context"
	"encoding/json"

	"contactpulse_backend/internal/events"
	"contactpulse_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// relayChannel carries card-affecting events between processes. The sweep
// demotions and signal expiries originate in the scheduler worker, whose
// event bus is process-local; without the relay they would never reach the
// notifier in the API process.
const relayChannel = "cardchange:relay"

// relayEnvelope wraps a forwarded event with its name so the receiving side
// can decode it.
type relayEnvelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Relay forwards status and signal events from the local bus onto the relay
// channel. Runs in the scheduler worker.
type Relay struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRelay(client *redis.Client, log *logger.Logger) *Relay {
	return &Relay{client: client, log: log}
}

// SubscribeToEvents registers the relay on the events the worker can emit.
func (r *Relay) SubscribeToEvents(bus events.Bus) {
	handler := events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		body, err := json.Marshal(relayEnvelope{Name: e.EventName(), Payload: payload})
		if err != nil {
			return err
		}
		return r.client.Publish(ctx, relayChannel, body).Err()
	})
	bus.Subscribe(events.ContactStatusChanged{}.EventName(), handler)
	bus.Subscribe(events.ContactSignalsUpdated{}.EventName(), handler)
}

// Listener republishes relayed events onto the local bus, where the
// debouncer picks them up. Runs in the API process.
type Listener struct {
	client *redis.Client
	bus    events.Bus
	log    *logger.Logger
}

func NewListener(client *redis.Client, bus events.Bus, log *logger.Logger) *Listener {
	return &Listener{client: client, bus: bus, log: log}
}

// Run consumes the relay channel until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	sub := l.client.Subscribe(ctx, relayChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			l.dispatch(ctx, []byte(msg.Payload))
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, body []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		l.log.Error("change relay: undecodable envelope", "error", err)
		return
	}

	switch env.Name {
	case events.ContactStatusChanged{}.EventName():
		var e events.ContactStatusChanged
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			l.log.Error("change relay: undecodable status event", "error", err)
			return
		}
		l.bus.Publish(ctx, e)
	case events.ContactSignalsUpdated{}.EventName():
		var e events.ContactSignalsUpdated
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			l.log.Error("change relay: undecodable signals event", "error", err)
			return
		}
		l.bus.Publish(ctx, e)
	default:
		l.log.Warn("change relay: unknown event name", "name", env.Name)
	}
}
