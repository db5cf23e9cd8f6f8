package media

import (
	"fmt"
	"path"
	"strings"

	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// Fixed layout segments of the media tree.
const (
	productsRoot = "productos"
	imagesDir    = "imagenes"
	documentsDir = "documentos"

	originalsSubdir  = "originales"
	thumbnailsSubdir = "miniaturas"
	webpSubdir       = "webp"

	originalPrefix  = "original"
	thumbnailPrefix = "miniatura"
	webpPrefix      = "webp"
)

// derivativeDirs pairs each image subdirectory with its filename prefix, in
// the order the URL resolver scans them.
var derivativeDirs = []struct {
	subdir string
	prefix string
}{
	{originalsSubdir, originalPrefix},
	{thumbnailsSubdir, thumbnailPrefix},
	{webpSubdir, webpPrefix},
}

// ImagePaths are the planned storage-relative paths of one image's
// derivatives.
type ImagePaths struct {
	Original  string
	Thumbnail string
	WebP      string
}

// All returns the non-empty planned paths in write order.
func (p ImagePaths) All() []string {
	var out []string
	for _, s := range []string{p.Original, p.Thumbnail, p.WebP} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ImageDir is productos/<family_dir>/imagenes/<code>.
func ImageDir(p products.Product) (string, error) {
	return productDir(p, imagesDir)
}

// DocumentDir is productos/<family_dir>/documentos/<code>.
func DocumentDir(p products.Product) (string, error) {
	return productDir(p, documentsDir)
}

func productDir(p products.Product, kindDir string) (string, error) {
	if !p.Family.Valid() {
		return "", fmt.Errorf("unknown product family %q", p.Family)
	}
	if err := checkSegment(p.Code); err != nil {
		return "", err
	}
	return path.Join(productsRoot, p.Family.Dir(), kindDir, p.Code), nil
}

// checkSegment rejects product codes that would escape or restructure the
// per-product directory.
func checkSegment(code string) error {
	switch {
	case code == "", code == ".", code == "..":
		return fmt.Errorf("invalid product code %q for storage path", code)
	case strings.ContainsAny(code, `/\`), strings.ContainsRune(code, 0):
		return fmt.Errorf("product code %q contains a path separator", code)
	}
	return nil
}

// PlanImage returns the three derivative paths for a token. originalExt is
// the source container's extension without the dot; an empty originalExt
// means the original is not preserved.
func PlanImage(dir, token, originalExt string) ImagePaths {
	p := ImagePaths{
		Thumbnail: path.Join(dir, thumbnailsSubdir, thumbnailPrefix+"_"+token+".jpg"),
		WebP:      path.Join(dir, webpSubdir, webpPrefix+"_"+token+".webp"),
	}
	if originalExt != "" {
		p.Original = path.Join(dir, originalsSubdir, originalPrefix+"_"+token+"."+originalExt)
	}
	return p
}

// PlanDocument returns <dir>/<sanitized_kind>_<token>.<ext>.
func PlanDocument(dir, kind, token, ext string) string {
	return path.Join(dir, SanitizeKind(kind)+"_"+token+"."+ext)
}

// SanitizeKind replaces whitespace with "_" and "/" with "-". No other
// character is altered.
func SanitizeKind(kind string) string {
	var b strings.Builder
	b.Grow(len(kind))
	for _, r := range kind {
		switch {
		case r == '/':
			b.WriteByte('-')
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '\v', r == '\f':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// imageBaseDir recovers productos/<family_dir>/imagenes/<code> from any
// stored derivative path (<base>/<subdir>/<file>).
func imageBaseDir(stored string) string {
	return path.Dir(path.Dir(stored))
}
