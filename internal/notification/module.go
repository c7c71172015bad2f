// Package notification turns domain events into outward announcements: the
// debounced card change notifier and the SSE stream clients subscribe to.
package notification

import (
	"context"

	"contactpulse_backend/internal/events"
	apphttp "contactpulse_backend/internal/http"
	"contactpulse_backend/internal/notification/changes"
	"contactpulse_backend/internal/notification/sse"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/httpkit"
	"contactpulse_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Module is the notification bounded context module implementing
// http.Module.
type Module struct {
	sse          *sse.Service
	debouncer    *changes.Debouncer
	stopListener context.CancelFunc
	log          *logger.Logger
}

// NewModule creates and initializes the notification module: the SSE hub,
// the debounced change notifier, the listener bridging worker-side events
// into this process, and the relay from ContactCardChanged to connected
// clients.
func NewModule(redisClient *redis.Client, eventBus events.Bus, cfg config.NotifierConfig, log *logger.Logger, versions changes.VersionReader) *Module {
	sseService := sse.New()

	debouncer := changes.NewDebouncer(changes.NewRedisVersionStore(redisClient), versions, eventBus, cfg, log)
	debouncer.SubscribeToEvents(eventBus)

	// Sweep demotions and signal expiries happen in the scheduler worker;
	// its bus is process-local, so they arrive here over redis.
	listenCtx, stopListener := context.WithCancel(context.Background())
	go changes.NewListener(redisClient, eventBus, log).Run(listenCtx)

	m := &Module{
		sse:          sseService,
		debouncer:    debouncer,
		stopListener: stopListener,
		log:          log,
	}
	m.subscribeRelay(eventBus)
	return m
}

// subscribeRelay forwards debounced card changes to the org's connected
// clients. The event carries only contact and version; clients re-fetch the
// card.
func (m *Module) subscribeRelay(bus events.Bus) {
	bus.Subscribe(events.ContactCardChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		changed, ok := e.(events.ContactCardChanged)
		if !ok {
			return nil
		}
		m.sse.PublishToOrganization(changed.TenantID, sse.Event{
			Type:      sse.EventCardUpdated,
			ContactID: changed.ContactID,
			Data: map[string]any{
				"version": changed.Version,
				"asOf":    changed.AsOf,
			},
		})
		return nil
	}))
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// SSE returns the SSE hub.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// RegisterRoutes mounts the SSE stream on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/stream", m.sse.Handler(
		func(c *gin.Context) (uuid.UUID, bool) {
			identity := httpkit.GetIdentity(c)
			if !identity.IsAuthenticated() {
				return uuid.Nil, false
			}
			return identity.UserID(), true
		},
		func(c *gin.Context) (uuid.UUID, bool) {
			identity := httpkit.GetIdentity(c)
			if !identity.IsAuthenticated() || identity.TenantID() == nil {
				return uuid.Nil, false
			}
			return *identity.TenantID(), true
		},
	))
}

// Close stops the relay listener and debouncer timers and disconnects SSE
// clients.
func (m *Module) Close() {
	m.stopListener()
	m.debouncer.Close()
	m.sse.Close()
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
