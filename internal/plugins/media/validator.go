package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
	"github.com/PROCLCGIT/pandora-sub000/internal/config"
)

// Validation reasons. Each names the rule that rejected the upload.
const (
	ReasonMissingFile   = "no se proporcionó ningún archivo"
	ReasonEmptyFile     = "archivo vacío"
	ReasonTooLarge      = "archivo excede tamaño máximo"
	ReasonTooManyPixels = "imagen excede resolución máxima"
	ReasonMimeNotAllow  = "tipo de archivo no permitido"
	ReasonContentDiffer = "el contenido del archivo no corresponde a una imagen"
)

// extensionMimes maps lowercase extensions to MIME types. Used only when the
// upload declares no content type.
var extensionMimes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"txt":  "text/plain",
	"csv":  "text/csv",
}

// mimeAliases folds non-canonical spellings some browsers send.
var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
}

// Validator accepts or rejects uploads against the per-kind policy.
type Validator struct {
	image    config.Policy
	document config.Policy
}

// NewValidator creates a validator for the given image and document policies.
func NewValidator(image, document config.Policy) *Validator {
	return &Validator{image: image, document: document}
}

// Policy returns the policy for a media kind.
func (v *Validator) Policy(kind Kind) config.Policy {
	if kind == KindDocument {
		return v.document
	}
	return v.image
}

// Validate checks the upload against the kind's policy and returns the
// resolved MIME type. Rejections are Validation AppErrors whose message
// names the rule.
func (v *Validator) Validate(kind Kind, u Upload) (string, error) {
	if u.Data == nil && u.Filename == "" {
		return "", apperror.NewValidation(ReasonMissingFile)
	}
	if len(u.Data) == 0 {
		return "", apperror.NewValidation(ReasonEmptyFile)
	}

	policy := v.Policy(kind)
	mime := ResolveMime(u.MimeType, u.Filename)

	if u.Size() > policy.MaxBytes {
		return "", apperror.NewValidation(ReasonTooLarge)
	}
	if mime == "" || !policy.Allows(mime) {
		return "", apperror.NewValidation(fmt.Sprintf("%s: %s", ReasonMimeNotAllow, displayMime(mime)))
	}

	// Images are decoded later; reject bytes that are not an allowed image
	// container at all so a renamed PDF fails validation, not processing.
	if kind == KindImage {
		detected := mimetype.Detect(u.Data)
		if !policy.Allows(detected.String()) {
			return "", apperror.NewValidation(ReasonContentDiffer)
		}
	}

	return mime, nil
}

// ResolveMime normalizes the declared MIME type, falling back to the
// filename extension when nothing useful was declared.
func ResolveMime(declared, filename string) string {
	mime := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if alias, ok := mimeAliases[mime]; ok {
		mime = alias
	}
	if mime == "" || mime == "application/octet-stream" {
		return MimeFromExtension(filename)
	}
	return mime
}

// MimeFromExtension infers a MIME type from the filename's extension using
// the fixed table. Returns "" for unknown or missing extensions.
func MimeFromExtension(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return extensionMimes[ext]
}

// ExtensionForMime returns the preferred extension (without dot) for a
// MIME type from the same table.
func ExtensionForMime(mime string) string {
	if mime == "image/jpeg" {
		return "jpg"
	}
	for ext, m := range extensionMimes {
		if m == mime {
			return ext
		}
	}
	return "bin"
}

func displayMime(mime string) string {
	if mime == "" {
		return "desconocido"
	}
	return mime
}
