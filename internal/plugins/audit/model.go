// Package audit records the media activity log. Every mutation of a
// product's images or documents (upload, delete, reorder) is captured as an
// Entry and persisted to the media_activity table, giving catalog managers a
// per-product history of who changed what and when.
//
// This plugin never touches media data; it only records observations made by
// the media plugin.
package audit

import (
	"time"

	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// --- Action Constants ---
// Each action string follows the pattern "resource.verb". The set must match
// the media_activity.action ENUM.

const (
	// ActionImageUploaded is logged when an image and its derivatives are stored.
	ActionImageUploaded = "image.uploaded"

	// ActionImageDeleted is logged when an image record is removed.
	ActionImageDeleted = "image.deleted"

	// ActionImagesReordered is logged when a product's image order changes.
	ActionImagesReordered = "images.reordered"

	// ActionDocumentUploaded is logged when a document is stored.
	ActionDocumentUploaded = "document.uploaded"

	// ActionDocumentDeleted is logged when a document record is removed.
	ActionDocumentDeleted = "document.deleted"
)

// Actions lists every known action.
var Actions = []string{
	ActionImageUploaded,
	ActionImageDeleted,
	ActionImagesReordered,
	ActionDocumentUploaded,
	ActionDocumentDeleted,
}

// ValidAction reports whether a is a known action.
func ValidAction(a string) bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Entry is a single recorded action against one product's media.
// Details holds action-specific metadata (paths, token, new order).
type Entry struct {
	ID        int64          `json:"id"`
	Product   products.Ref   `json:"product"`
	UserID    *int64         `json:"userId,omitempty"`
	Action    string         `json:"action"`
	MediaType string         `json:"mediaType,omitempty"`
	MediaID   *int64         `json:"mediaId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Feed is the recent activity of one product.
type Feed struct {
	Product products.Ref `json:"product"`
	Entries []Entry      `json:"entries"`
	Total   int          `json:"total"`
}
