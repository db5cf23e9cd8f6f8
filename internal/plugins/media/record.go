package media

import (
	"fmt"
	"path"
	"strings"

	"github.com/PROCLCGIT/pandora-sub000/internal/sanitize"
)

// Column limits of the media tables.
const (
	maxTitleLen = 255
	maxAltLen   = 255
	maxTagsLen  = 512
	maxKindLen  = 64
)

// defaultAltSuffix completes the alt text when the image has no description.
const defaultAltSuffix = "Product image"

// applyImageDefaults fills the create-time fields left blank: title from the
// display position, alt text from the product name, and the primary path
// from the best available derivative.
func applyImageDefaults(rec *ImageRecord, productName string) {
	if rec.Title == "" {
		rec.Title = sanitize.Truncate(fmt.Sprintf("Image %d - %s", rec.Order+1, productName), maxTitleLen)
	}
	if rec.AltText == "" {
		desc := rec.Description
		if desc == "" {
			desc = defaultAltSuffix
		}
		rec.AltText = sanitize.Truncate(productName+" - "+desc, maxAltLen)
	}
	if rec.PathPrimary == "" {
		rec.PathPrimary = firstNonEmpty(rec.PathWebP, rec.PathThumbnail, rec.PathOriginal)
	}
}

// cleanImageMetadata strips markup from client-supplied text.
func cleanImageMetadata(m ImageMetadata) ImageMetadata {
	m.Title = sanitize.Truncate(sanitize.Text(m.Title), maxTitleLen)
	m.AltText = sanitize.Truncate(sanitize.Text(m.AltText), maxAltLen)
	m.Description = sanitize.Text(m.Description)
	m.Tags = sanitize.Truncate(sanitize.Tags(m.Tags), maxTagsLen)
	return m
}

func cleanDocumentMetadata(m DocumentMetadata) DocumentMetadata {
	m.Title = sanitize.Truncate(sanitize.Text(m.Title), maxTitleLen)
	m.DocumentKind = sanitize.Truncate(sanitize.Text(m.DocumentKind), maxKindLen)
	if m.DocumentKind == "" {
		m.DocumentKind = DefaultDocumentKind
	}
	m.Description = sanitize.Text(m.Description)
	return m
}

// documentTitle derives a title from the uploaded filename's stem.
func documentTitle(filename, kind string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	stem = sanitize.Truncate(sanitize.Text(stem), maxTitleLen)
	if stem == "" || stem == "." || stem == "/" {
		return kind
	}
	return stem
}

// documentExtension keeps the client's extension when it agrees with the
// resolved MIME type, otherwise picks the table's extension for the MIME.
func documentExtension(filename, mime string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if extensionMimes[ext] == mime {
		return ext
	}
	return ExtensionForMime(mime)
}

func imageMeta(rec *ImageRecord) ImageMeta {
	return ImageMeta{
		Width:  rec.Width,
		Height: rec.Height,
		Size:   rec.FileSize,
		Format: rec.Format,
	}
}
