// Package media is the product media pipeline. It ingests uploaded images and
// documents for products of either catalog family, derives normalized image
// artifacts (original, thumbnail, WebP), lays them out on disk under a
// deterministic per-product hierarchy, records one row per logical media item,
// and rebuilds artifact URLs at read time.
package media

import (
	"time"

	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// Kind distinguishes the two media kinds handled by the pipeline.
type Kind string

const (
	KindImage    Kind = "imagen"
	KindDocument Kind = "documento"
)

// DefaultDocumentKind is used when an upload names no document kind.
const DefaultDocumentKind = "otros"

// Well-known document kinds. Any other free-form kind is accepted and
// sanitized into the filename.
const (
	DocumentKindDatasheet  = "ficha_tecnica"
	DocumentKindBrochure   = "catalogo"
	DocumentKindRegulatory = "registro_sanitario"
	DocumentKindOther      = DefaultDocumentKind
)

// Upload is the handle the REST layer passes in for one uploaded file.
type Upload struct {
	// Filename is the client-supplied name; only its extension is used.
	Filename string

	// MimeType is the declared content type. May be empty.
	MimeType string

	Data []byte
}

// Size is the upload's byte length.
func (u Upload) Size() int64 {
	return int64(len(u.Data))
}

// ImageRecord is one logical image attached to exactly one product. Its
// derivative paths are storage-relative and use forward slashes.
type ImageRecord struct {
	ID      int64
	Product products.Ref

	PathPrimary   string
	PathOriginal  string
	PathThumbnail string
	PathWebP      string

	Title       string
	AltText     string
	Description string
	Tags        string

	Order     int
	IsPrimary bool

	Width    int
	Height   int
	Format   string
	FileSize int64

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy *int64
}

// DocumentRecord is one document attached to exactly one product. A document
// has a single stored path; there is no token correlation.
type DocumentRecord struct {
	ID      int64
	Product products.Ref

	Path         string
	Title        string
	DocumentKind string
	Description  string
	IsPublic     bool

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy *int64
}

// ImageMetadata is the optional metadata accepted with an image upload.
// Nil pointers mean "use the default".
type ImageMetadata struct {
	Title       string
	AltText     string
	Description string
	Tags        string

	// Order defaults to the product's current max order + 1.
	Order *int

	// IsPrimary defaults to true iff the product has no images yet.
	IsPrimary *bool

	CreatedBy *int64
}

// DocumentMetadata is the metadata accepted with a document upload.
type DocumentMetadata struct {
	Title        string
	DocumentKind string
	Description  string
	IsPublic     bool
	CreatedBy    *int64
}

// URLs is the per-record URL map emitted for an image.
type URLs struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
	WebP      string `json:"webp"`
	Default   string `json:"default"`
	Timestamp string `json:"timestamp"`
}

// ImageMeta is the metadata block of an upload response.
type ImageMeta struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"`
	Format string `json:"format"`
}

// ImageUploadResponse is returned to the REST layer after a successful image
// upload.
type ImageUploadResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Order         int       `json:"order"`
	IsPrimary     bool      `json:"is_primary"`
	URLs          URLs      `json:"urls"`
	PathOriginal  string    `json:"path_original"`
	PathThumbnail string    `json:"path_thumbnail"`
	PathWebP      string    `json:"path_webp"`
	Timestamp     string    `json:"timestamp"`
	Metadata      ImageMeta `json:"metadata"`
}

// ImageView is one entry of list_images.
type ImageView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	AltText     string    `json:"alt_text"`
	Description string    `json:"description"`
	Tags        string    `json:"tags"`
	Order       int       `json:"order"`
	IsPrimary   bool      `json:"is_primary"`
	URLs        URLs      `json:"urls"`
	Metadata    ImageMeta `json:"metadata"`
	CreatedAt   time.Time `json:"created_at"`
}

// DocumentView is one entry of list_documents and the upload_document
// response.
type DocumentView struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	DocumentKind string    `json:"document_kind"`
	Description  string    `json:"description"`
	IsPublic     bool      `json:"is_public"`
	Path         string    `json:"path"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}
