// Package status provides the lead status engine bounded context module.
package status

import (
	"contactpulse_backend/internal/events"
	apphttp "contactpulse_backend/internal/http"
	"contactpulse_backend/internal/status/handler"
	"contactpulse_backend/internal/status/repository"
	"contactpulse_backend/internal/status/service"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"
	"contactpulse_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the status engine bounded context module implementing
// http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the status module. activities is the
// event log read side wired by the composition root; the override appender
// is bound separately because the activity module depends on this one.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.StatusEngineConfig, log *logger.Logger, activities service.ActivityReader) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, activities, eventBus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "status"
}

// Service returns the status service for external use (ingestion hook,
// contact card reads, scheduler sweep).
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the status history repository for read-side
// collaborators.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts status routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/status")
	m.handler.RegisterRoutes(group)

	admin := ctx.Admin.Group("/status")
	m.handler.RegisterAdminRoutes(admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
