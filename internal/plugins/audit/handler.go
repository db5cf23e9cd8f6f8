package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// Handler handles HTTP requests for the activity log. Handlers are thin:
// bind request, call service, render response.
type Handler struct {
	service  AuditService
	products products.ProductRepository
}

// NewHandler creates a new audit handler.
func NewHandler(service AuditService, productRepo products.ProductRepository) *Handler {
	return &Handler{service: service, products: productRepo}
}

// Activity returns a product's media activity feed
// (GET /api/v1/productos/:family/:id/actividad).
func (h *Handler) Activity(c echo.Context) error {
	ref, err := products.ParseRef(c.Param("family"), c.Param("id"))
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.products.Find(ctx, ref); err != nil {
		return err
	}

	result, err := h.service.ProductActivity(ctx, ref)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
