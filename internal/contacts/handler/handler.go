package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"contactpulse_backend/internal/contacts/domain"
	"contactpulse_backend/internal/contacts/service"
	"contactpulse_backend/internal/contacts/transport"
	"contactpulse_backend/platform/httpkit"
	"contactpulse_backend/platform/validator"
)

// Handler handles HTTP requests for the contact registry.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid ID"
)

// New creates a new contacts handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts contact routes on the provided group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/tasks", h.CreateTask)
	g.GET("/:id/tasks", h.ListTasks)
	g.POST("/tasks/:id/complete", h.CompleteTask)
}

// Create registers a contact.
// POST /api/v1/contacts
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	created, err := h.svc.Create(c.Request.Context(), tenantID, service.CreateParams{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Source: req.Source,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toContactResponse(created))
}

// Get returns one contact.
// GET /api/v1/contacts/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	contact, err := h.svc.Get(c.Request.Context(), id, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toContactResponse(contact))
}

// List returns a page of the tenant's contacts.
// GET /api/v1/contacts?limit=50&offset=0
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	contacts, err := h.svc.List(c.Request.Context(), tenantID, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.ContactResponse, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, toContactResponse(contact))
	}
	httpkit.OK(c, out)
}

// CreateTask opens a follow-up task for a contact.
// POST /api/v1/contacts/:id/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	task, err := h.svc.CreateTask(c.Request.Context(), tenantID, contactID, req.Title, req.DueAt)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toTaskResponse(task))
}

// ListTasks returns a contact's tasks, open first.
// GET /api/v1/contacts/:id/tasks
func (h *Handler) ListTasks(c *gin.Context) {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	tasks, err := h.svc.ListTasks(c.Request.Context(), contactID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	httpkit.OK(c, out)
}

// CompleteTask marks a task done.
// POST /api/v1/contacts/tasks/:id/complete
func (h *Handler) CompleteTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	task, err := h.svc.CompleteTask(c.Request.Context(), id, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toTaskResponse(task))
}

func (h *Handler) tenant(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}
	return httpkit.MustGetTenantID(c, identity)
}

func toContactResponse(c domain.Contact) transport.ContactResponse {
	return transport.ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Source:    c.Source,
		CreatedAt: c.CreatedAt,
	}
}

func toTaskResponse(t domain.Task) transport.TaskResponse {
	return transport.TaskResponse{
		ID:          t.ID,
		ContactID:   t.ContactID,
		Title:       t.Title,
		DueAt:       t.DueAt,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
	}
}
