package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"contactpulse_backend/internal/status/domain"
	"contactpulse_backend/internal/status/service"
	"contactpulse_backend/internal/status/transport"
	"contactpulse_backend/platform/httpkit"
	"contactpulse_backend/platform/validator"
)

// Handler handles HTTP requests for lead statuses.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid contact ID"
)

// New creates a new status handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts status routes on the provided group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/contacts/:id", h.Current)
	g.GET("/contacts/:id/history", h.History)
	g.POST("/contacts/:id/override", h.Override)
}

// RegisterAdminRoutes mounts operator-only routes.
func (h *Handler) RegisterAdminRoutes(g *gin.RouterGroup) {
	g.POST("/contacts/:id/recompute", h.Recompute)
}

// Current returns the contact's current status.
// GET /api/v1/status/contacts/:id
func (h *Handler) Current(c *gin.Context) {
	contactID, tenantID, ok := h.scope(c)
	if !ok {
		return
	}

	status, err := h.svc.CurrentStatus(c.Request.Context(), contactID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.StatusResponse{ContactID: contactID, Status: string(status)})
}

// History returns the contact's full transition history in chronological
// order.
// GET /api/v1/status/contacts/:id/history
func (h *Handler) History(c *gin.Context) {
	contactID, tenantID, ok := h.scope(c)
	if !ok {
		return
	}

	entries, err := h.svc.History(c.Request.Context(), contactID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.HistoryEntryResponse{
			ID:             e.ID,
			PreviousStatus: string(e.PreviousStatus),
			NextStatus:     string(e.NextStatus),
			Reason:         e.Reason,
			Actor:          e.Actor,
			ActivityID:     e.ActivityID,
			TransitionedAt: e.TransitionedAt,
		})
	}
	httpkit.OK(c, out)
}

// Override explicitly sets a contact's status, recorded with actor
// provenance.
// POST /api/v1/status/contacts/:id/override
func (h *Handler) Override(c *gin.Context) {
	contactID, tenantID, ok := h.scope(c)
	if !ok {
		return
	}

	var req transport.OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	err := h.svc.Override(c.Request.Context(), tenantID, contactID, domain.Status(req.Status), req.Actor)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusAccepted)
}

// Recompute replays the contact's activity log and reports drift against the
// stored history, optionally repairing it.
// POST /api/v1/admin/status/contacts/:id/recompute?repair=true
func (h *Handler) Recompute(c *gin.Context) {
	contactID, tenantID, ok := h.scope(c)
	if !ok {
		return
	}
	repair := c.Query("repair") == "true"

	drifted, err := h.svc.Recompute(c.Request.Context(), contactID, tenantID, repair)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RecomputeResponse{
		ContactID: contactID,
		Drifted:   drifted,
		Repaired:  drifted && repair,
	})
}

func (h *Handler) scope(c *gin.Context) (contactID, tenantID uuid.UUID, ok bool) {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, uuid.Nil, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, uuid.Nil, false
	}
	tenantID, tok := httpkit.MustGetTenantID(c, identity)
	if !tok {
		return uuid.Nil, uuid.Nil, false
	}
	return contactID, tenantID, true
}
