package audit

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up the activity feed route on the product API group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("/:family/:id/actividad", h.Activity)
}
