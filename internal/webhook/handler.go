package webhook

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"contactpulse_backend/platform/httpkit"
	"contactpulse_backend/platform/validator"
)

// Handler handles inbound provider webhooks and API key management.
type Handler struct {
	svc  *Service
	repo *Repository
	val  *validator.Validator
}

// NewHandler creates a new webhook handler.
func NewHandler(svc *Service, repo *Repository, val *validator.Validator) *Handler {
	return &Handler{svc: svc, repo: repo, val: val}
}

// ActivityWebhookRequest is the generic provider event shape.
type ActivityWebhookRequest struct {
	Provider   string         `json:"provider" validate:"required,max=64"`
	ContactID  *uuid.UUID     `json:"contactId"`
	Phone      string         `json:"phone" validate:"omitempty,max=32"`
	Kind       string         `json:"kind" validate:"required,max=64"`
	OccurredAt *time.Time     `json:"occurredAt"`
	EventID    string         `json:"eventId" validate:"omitempty,max=200"`
	PayloadRef string         `json:"payloadRef" validate:"omitempty,max=500"`
	Payload    map[string]any `json:"payload"`
}

// WebhookActivityResponse acknowledges an accepted provider event.
type WebhookActivityResponse struct {
	ActivityID uuid.UUID `json:"activityId"`
	ContactID  uuid.UUID `json:"contactId"`
	Duplicate  bool      `json:"duplicate"`
}

// HandleActivity ingests a generic provider event.
// POST /api/v1/webhook/activity
func (h *Handler) HandleActivity(c *gin.Context) {
	var req ActivityWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	tenantID, ok := h.getWebhookOrgID(c)
	if !ok {
		return
	}

	stored, duplicate, err := h.svc.HandleActivity(c.Request.Context(), tenantID, InboundActivity{
		Provider:   req.Provider,
		ContactID:  req.ContactID,
		Phone:      req.Phone,
		Kind:       req.Kind,
		OccurredAt: req.OccurredAt,
		EventID:    req.EventID,
		PayloadRef: req.PayloadRef,
		Payload:    req.Payload,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, WebhookActivityResponse{
		ActivityID: stored.ID,
		ContactID:  stored.ContactID,
		Duplicate:  duplicate,
	})
}

// HandleCallTracking ingests a call-tracking provider webhook.
// POST /api/v1/webhook/call-tracking
func (h *Handler) HandleCallTracking(c *gin.Context) {
	var req CallTrackingPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	tenantID, ok := h.getWebhookOrgID(c)
	if !ok {
		return
	}

	stored, duplicate, err := h.svc.HandleCallTracking(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, WebhookActivityResponse{
		ActivityID: stored.ID,
		ContactID:  stored.ContactID,
		Duplicate:  duplicate,
	})
}

// CreateAPIKeyRequest names a new webhook API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// APIKeyResponse is one API key. Key carries the plaintext and is only set
// on creation.
type APIKeyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	KeyPrefix string    `json:"keyPrefix"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	Key       string    `json:"key,omitempty"`
}

// HandleCreateAPIKey mints a webhook API key for the tenant.
// POST /api/v1/admin/webhook/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if httpkit.HandleError(c, err) {
		return
	}
	key, err := h.repo.Create(c.Request.Context(), tenantID, req.Name, hash, prefix)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := toAPIKeyResponse(key)
	resp.Key = plaintext
	httpkit.JSON(c, http.StatusCreated, resp)
}

// HandleListAPIKeys lists the tenant's webhook API keys.
// GET /api/v1/admin/webhook/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	keys, err := h.repo.List(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		out = append(out, toAPIKeyResponse(key))
	}
	httpkit.OK(c, out)
}

// HandleRevokeAPIKey deactivates a webhook API key.
// DELETE /api/v1/admin/webhook/keys/:id
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}
	tenantID, ok := h.getTenantID(c)
	if !ok {
		return
	}

	err = h.repo.Revoke(c.Request.Context(), id, tenantID)
	if err == ErrAPIKeyNotFound {
		httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getWebhookOrgID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get("webhookOrgID")
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	orgID, ok := raw.(uuid.UUID)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return orgID, true
}

func (h *Handler) getTenantID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}
	return httpkit.MustGetTenantID(c, identity)
}

func toAPIKeyResponse(key APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
	}
}
