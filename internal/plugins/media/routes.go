package media

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
)

// multipartOverhead is allowed on top of the file limit for boundaries,
// headers and the metadata fields.
const multipartOverhead = 64 << 10

// RegisterRoutes sets up the product media routes on the product API group
// (/api/v1/productos). Upload bodies are capped per media kind before being
// read into memory.
func RegisterRoutes(g *echo.Group, h *Handler, imageMaxBytes, documentMaxBytes int64) {
	imageLimit := bodyLimitMiddleware(imageMaxBytes + imageMaxBytes/10 + multipartOverhead)
	documentLimit := bodyLimitMiddleware(documentMaxBytes + documentMaxBytes/10 + multipartOverhead)

	g.POST("/:family/:id/imagenes", h.UploadImage, imageLimit)
	g.GET("/:family/:id/imagenes", h.ListImages)
	g.POST("/:family/:id/imagenes/reordenar", h.ReorderImages)
	g.DELETE("/:family/imagenes/:imageID", h.DeleteImage)

	g.POST("/:family/:id/documentos", h.UploadDocument, documentLimit)
	g.GET("/:family/:id/documentos", h.ListDocuments)
	g.DELETE("/:family/documentos/:documentID", h.DeleteDocument)
}

// bodyLimitMiddleware rejects request bodies exceeding maxBytes with the
// same validation error the validator uses. Applied before the handler reads
// the body into memory.
func bodyLimitMiddleware(maxBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().ContentLength > maxBytes {
				slog.Debug("upload body over limit",
					slog.Int64("content_length", c.Request().ContentLength),
					slog.Int64("max_bytes", maxBytes),
				)
				return apperror.NewValidation(ReasonTooLarge)
			}
			c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxBytes)
			return next(c)
		}
	}
}
