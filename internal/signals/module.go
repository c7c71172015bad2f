// Package signals provides the key signal generator bounded context module.
package signals

import (
	"contactpulse_backend/internal/events"
	apphttp "contactpulse_backend/internal/http"
	"contactpulse_backend/internal/signals/domain"
	"contactpulse_backend/internal/signals/handler"
	"contactpulse_backend/internal/signals/repository"
	"contactpulse_backend/internal/signals/service"
	"contactpulse_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the key signals bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the signals module and subscribes the
// regeneration trigger to the event bus.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger, activities service.ActivityReader) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, activities, domain.MustLoadRules(), eventBus, log)
	svc.SubscribeToEvents(eventBus)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "signals"
}

// Service returns the signals service for external use (card assembly,
// scheduler expiry sweep).
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the signals repository for read-side collaborators.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts signal routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/signals")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
