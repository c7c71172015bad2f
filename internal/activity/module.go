// Package activity provides the event log bounded context module.
package activity

import (
	"contactpulse_backend/internal/activity/handler"
	"contactpulse_backend/internal/activity/repository"
	"contactpulse_backend/internal/activity/service"
	"contactpulse_backend/internal/events"
	apphttp "contactpulse_backend/internal/http"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"
	"contactpulse_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the activity bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the activity module.
// contacts and engine are cross-module collaborators wired by the
// composition root.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.IngestionConfig, log *logger.Logger, contacts service.ContactChecker, engine service.StatusEngine) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, contacts, engine, eventBus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "activity"
}

// Service returns the activity service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the activity repository for read-side collaborators
// (assembler, inactivity sweep).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts activity routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/activities")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
