package webhook

import (
	"contactpulse_backend/internal/events"
	apphttp "contactpulse_backend/internal/http"
	"contactpulse_backend/platform/logger"
	"contactpulse_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
	service *Service
}

// NewModule creates and initializes the webhook module. activities and
// contacts are cross-module collaborators wired by the composition root.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger, activities ActivityAppender, contacts ContactResolver) *Module {
	repo := NewRepository(pool)
	svc := NewService(activities, contacts, eventBus, log)
	h := NewHandler(svc, repo, val)

	return &Module{
		handler: h,
		repo:    repo,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the provider endpoints (API-key authenticated, not
// JWT) and the key management endpoints (admin).
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	inbound := ctx.V1.Group("/webhook", ctx.WebhookRateLimiter.RateLimit(), APIKeyAuthMiddleware(m.repo))
	inbound.POST("/activity", m.handler.HandleActivity)
	inbound.POST("/call-tracking", m.handler.HandleCallTracking)

	admin := ctx.Admin.Group("/webhook/keys")
	admin.POST("", m.handler.HandleCreateAPIKey)
	admin.GET("", m.handler.HandleListAPIKeys)
	admin.DELETE("/:id", m.handler.HandleRevokeAPIKey)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
