package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"contactpulse_backend/internal/activity/domain"
	"contactpulse_backend/internal/activity/service"
	"contactpulse_backend/internal/activity/transport"
	"contactpulse_backend/platform/httpkit"
	"contactpulse_backend/platform/validator"
)

// Handler handles HTTP requests for the activity event log.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid contact ID"
)

// New creates a new activity handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts activity routes on the provided group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("", h.Append)
	g.GET("/contacts/:id", h.ListByContact)
}

// Append ingests one activity.
// POST /api/v1/activities
func (h *Handler) Append(c *gin.Context) {
	var req transport.AppendActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
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

	stored, duplicate, err := h.svc.Append(c.Request.Context(), tenantID, service.AppendParams{
		ContactID:  req.ContactID,
		Kind:       domain.Kind(req.Kind),
		OccurredAt: req.OccurredAt,
		PayloadRef: req.PayloadRef,
		Source:     req.Source,
		Payload:    req.Payload,
		DedupKey:   req.DedupKey,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, transport.AppendActivityResponse{
		ActivityID: stored.ID,
		Duplicate:  duplicate,
		Seq:        stored.Seq,
	})
}

// ListByContact returns a contact's activity log in canonical order.
// GET /api/v1/activities/contacts/:id?since=RFC3339
func (h *Handler) ListByContact(c *gin.Context) {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
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

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid since timestamp", nil)
			return
		}
	}

	items, err := h.svc.ListSince(c.Request.Context(), contactID, tenantID, since)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.ActivityResponse, 0, len(items))
	for _, a := range items {
		out = append(out, transport.ActivityResponse{
			ID:         a.ID,
			ContactID:  a.ContactID,
			Kind:       string(a.Kind),
			OccurredAt: a.OccurredAt,
			Seq:        a.Seq,
			PayloadRef: a.PayloadRef,
			Source:     a.Source,
			Payload:    a.Payload,
		})
	}
	httpkit.OK(c, out)
}
