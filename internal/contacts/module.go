// Package contacts provides the contact registry bounded context module.
package contacts

import (
	"contactpulse_backend/internal/contacts/handler"
	"contactpulse_backend/internal/contacts/repository"
	"contactpulse_backend/internal/contacts/service"
	apphttp "contactpulse_backend/internal/http"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"
	"contactpulse_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the contact registry bounded context module implementing
// http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	tasks   *repository.TaskRepository
}

// NewModule creates and initializes the contacts module. The task completion
// recorder is bound separately because the activity module depends on this
// one.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg config.ContactsConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	tasks := repository.NewTasks(pool)
	svc := service.New(repo, tasks, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		tasks:   tasks,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contacts"
}

// Service returns the contacts service for external use (ingestion existence
// check, webhook phone resolution, card assembly).
func (m *Module) Service() *service.Service {
	return m.service
}

// Tasks returns the task repository for read-side collaborators.
func (m *Module) Tasks() *repository.TaskRepository {
	return m.tasks
}

// RegisterRoutes mounts contact routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/contacts")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
