// Package contactcard provides the contact card assembler bounded context
// module.
package contactcard

import (
	"contactpulse_backend/internal/contactcard/handler"
	"contactpulse_backend/internal/contactcard/service"
	apphttp "contactpulse_backend/internal/http"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"
)

// Module is the contact card bounded context module implementing
// http.Module.
type Module struct {
	handler   *handler.Handler
	assembler *service.Assembler
}

// NewModule creates and initializes the card module. All collaborators are
// read-side ports satisfied by the other modules, wired by the composition
// root.
func NewModule(contacts service.ContactReader, activities service.ActivityReader, status service.StatusReader, signals service.SignalReader, tasks service.TaskReader, cfg config.SignalsConfig, log *logger.Logger) (*Module, error) {
	assembler, err := service.NewAssembler(contacts, activities, status, signals, tasks, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Module{
		handler:   handler.New(assembler),
		assembler: assembler,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contactcard"
}

// Assembler returns the assembler for external use.
func (m *Module) Assembler() *service.Assembler {
	return m.assembler
}

// RegisterRoutes mounts card routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/contacts")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
