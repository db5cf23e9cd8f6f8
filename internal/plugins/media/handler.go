package media

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
	"github.com/PROCLCGIT/pandora-sub000/internal/middleware"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// uploadField is the multipart field carrying the file.
const uploadField = "file"

// Handler handles HTTP requests for product media. Handlers are thin: bind
// request, call service, render response.
type Handler struct {
	service MediaService
}

// NewHandler creates a new media handler.
func NewHandler(service MediaService) *Handler {
	return &Handler{service: service}
}

// ReorderRequest is the body of the reorder endpoint.
type ReorderRequest struct {
	IDs []int64 `json:"ids"`
}

// UploadImage handles POST /api/v1/productos/:family/:id/imagenes.
func (h *Handler) UploadImage(c echo.Context) error {
	ref, err := products.ParseRef(c.Param("family"), c.Param("id"))
	if err != nil {
		return err
	}
	u, err := readUpload(c)
	if err != nil {
		return err
	}

	meta := ImageMetadata{
		Title:       c.FormValue("title"),
		AltText:     c.FormValue("alt_text"),
		Description: c.FormValue("description"),
		Tags:        c.FormValue("tags"),
		CreatedBy:   middleware.GetUserID(c),
	}
	if v := c.FormValue("order"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return apperror.NewBadRequest("order debe ser un entero no negativo")
		}
		meta.Order = &n
	}
	if v := c.FormValue("is_primary"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperror.NewBadRequest("is_primary debe ser booleano")
		}
		meta.IsPrimary = &b
	}

	resp, err := h.service.UploadImage(c.Request().Context(), ref, u, meta, requestBase(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// ListImages handles GET /api/v1/productos/:family/:id/imagenes.
func (h *Handler) ListImages(c echo.Context) error {
	ref, err := products.ParseRef(c.Param("family"), c.Param("id"))
	if err != nil {
		return err
	}
	views, err := h.service.ListImages(c.Request().Context(), ref, requestBase(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

// ReorderImages handles POST /api/v1/productos/:family/:id/imagenes/reordenar.
func (h *Handler) ReorderImages(c echo.Context) error {
	ref, err := products.ParseRef(c.Param("family"), c.Param("id"))
	if err != nil {
		return err
	}
	var req ReorderRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("cuerpo inválido: se espera {\"ids\": [...]}")
	}

	if err := h.service.ReorderImages(c.Request().Context(), ref, req.IDs, middleware.GetUserID(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reordered"})
}

// DeleteImage handles DELETE /api/v1/productos/:family/imagenes/:imageID.
func (h *Handler) DeleteImage(c echo.Context) error {
	family, err := products.ParseFamilyParam(c.Param("family"))
	if err != nil {
		return err
	}
	id, err := products.ParseID(c.Param("imageID"), "id de imagen")
	if err != nil {
		return err
	}

	if err := h.service.DeleteImage(c.Request().Context(), family, id, middleware.GetUserID(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// UploadDocument handles POST /api/v1/productos/:family/:id/documentos.
func (h *Handler) UploadDocument(c echo.Context) error {
	ref, err := products.ParseRef(c.Param("family"), c.Param("id"))
	if err != nil {
		return err
	}
	u, err := readUpload(c)
	if err != nil {
		return err
	}

	meta := DocumentMetadata{
		Title:        c.FormValue("title"),
		DocumentKind: c.FormValue("document_kind"),
		Description:  c.FormValue("description"),
		CreatedBy:    middleware.GetUserID(c),
	}
	if v := c.FormValue("is_public"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperror.NewBadRequest("is_public debe ser booleano")
		}
		meta.IsPublic = b
	}

	view, err := h.service.UploadDocument(c.Request().Context(), ref, u, meta, requestBase(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, view)
}

// ListDocuments handles GET /api/v1/productos/:family/:id/documentos.
func (h *Handler) ListDocuments(c echo.Context) error {
	ref, err := products.ParseRef(c.Param("family"), c.Param("id"))
	if err != nil {
		return err
	}
	views, err := h.service.ListDocuments(c.Request().Context(), ref, requestBase(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

// DeleteDocument handles DELETE /api/v1/productos/:family/documentos/:documentID.
func (h *Handler) DeleteDocument(c echo.Context) error {
	family, err := products.ParseFamilyParam(c.Param("family"))
	if err != nil {
		return err
	}
	id, err := products.ParseID(c.Param("documentID"), "id de documento")
	if err != nil {
		return err
	}

	if err := h.service.DeleteDocument(c.Request().Context(), family, id, middleware.GetUserID(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// readUpload reads the multipart file into memory. A missing file yields an
// empty Upload so the validator reports it; a body over the route's limit is
// reported as too large.
func readUpload(c echo.Context) (Upload, error) {
	file, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Upload{}, apperror.NewValidation(ReasonTooLarge)
		}
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return Upload{}, nil
		}
		return Upload{}, apperror.NewBadRequest("formulario multipart inválido")
	}

	src, err := file.Open()
	if err != nil {
		return Upload{}, apperror.NewInternal(err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return Upload{}, apperror.NewInternal(err)
	}
	if data == nil {
		data = []byte{}
	}

	return Upload{
		Filename: file.Filename,
		MimeType: file.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// requestBase is the scheme and host the client used, for absolute URLs.
func requestBase(c echo.Context) string {
	host := c.Request().Host
	if host == "" {
		return ""
	}
	return c.Scheme() + "://" + host
}
