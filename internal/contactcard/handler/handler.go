package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"contactpulse_backend/internal/contactcard/service"
	"contactpulse_backend/platform/httpkit"
)

// Handler serves assembled contact cards.
type Handler struct {
	assembler *service.Assembler
}

// New creates a new contact card handler.
func New(assembler *service.Assembler) *Handler {
	return &Handler{assembler: assembler}
}

// RegisterRoutes mounts card routes on the provided group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/:id/card", h.GetCard)
}

// GetCard returns a contact's assembled card.
// GET /api/v1/contacts/:id/card
func (h *Handler) GetCard(c *gin.Context) {
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

	view, err := h.assembler.Assemble(c.Request.Context(), contactID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, view)
}
