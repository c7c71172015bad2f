package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"contactpulse_backend/internal/signals/domain"
	"contactpulse_backend/internal/signals/service"
	"contactpulse_backend/internal/signals/transport"
	"contactpulse_backend/platform/httpkit"
)

// Handler handles HTTP requests for key signals.
type Handler struct {
	svc *service.Service
}

// New creates a new signals handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts signal routes on the provided group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/contacts/:id", h.ListByContact)
	g.POST("/:id/resolve", h.Resolve)
}

// ListByContact returns a contact's active signals.
// GET /api/v1/signals/contacts/:id
func (h *Handler) ListByContact(c *gin.Context) {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid contact ID", nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	signals, err := h.svc.ListActive(c.Request.Context(), contactID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponses(signals))
}

// Resolve marks a signal handled.
// POST /api/v1/signals/:id/resolve
func (h *Handler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid signal ID", nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	resolved, err := h.svc.Resolve(c.Request.Context(), id, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(resolved))
}

func toResponse(s domain.Signal) transport.SignalResponse {
	return transport.SignalResponse{
		ID:               s.ID,
		ContactID:        s.ContactID,
		Category:         string(s.Category),
		Subtype:          s.Subtype,
		Severity:         s.Severity,
		GeneratedAt:      s.GeneratedAt,
		SourceActivityID: s.SourceActivityID,
		ExpiresAt:        s.ExpiresAt,
		ResolvedAt:       s.ResolvedAt,
	}
}

func toResponses(signals []domain.Signal) []transport.SignalResponse {
	out := make([]transport.SignalResponse, 0, len(signals))
	for _, s := range signals {
		out = append(out, toResponse(s))
	}
	return out
}
