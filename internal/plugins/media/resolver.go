package media

import (
	"context"
	"log/slog"
	"path"
	"strings"
)

// Resolver builds the URL map of an image record. By default it trusts the
// stored paths. With scan repair enabled it re-derives each derivative from
// the record's token by scanning the product's image subdirectories, which
// repairs legacy rows that only carried a primary path.
type Resolver struct {
	store      *Store
	prefix     string
	scanRepair bool
	cache      PathCache
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(store *Store, publicURLPrefix string, scanRepair bool, cache PathCache) *Resolver {
	if cache == nil {
		cache = NopPathCache{}
	}
	return &Resolver{
		store:      store,
		prefix:     publicURLPrefix,
		scanRepair: scanRepair,
		cache:      cache,
	}
}

// Resolve returns the URL map for rec. When base is non-empty (scheme and
// host of the current request) the URLs are made absolute.
func (r *Resolver) Resolve(ctx context.Context, rec *ImageRecord, base string) URLs {
	token := ExtractToken(rec)
	paths := ScannedPaths{
		Original:  rec.PathOriginal,
		Thumbnail: rec.PathThumbnail,
		WebP:      rec.PathWebP,
	}

	if r.scanRepair && token != "" {
		paths = r.repair(ctx, rec, token, paths)
	} else {
		r.checkStored(rec, paths)
	}

	urls := URLs{
		Original:  r.URL(paths.Original, base),
		Thumbnail: r.URL(paths.Thumbnail, base),
		WebP:      r.URL(paths.WebP, base),
		Timestamp: token,
	}
	urls.Default = firstNonEmpty(urls.WebP, urls.Thumbnail, urls.Original)
	if urls.Default == "" && rec.PathPrimary != "" {
		urls.Default = r.URL(rec.PathPrimary, base)
	}
	return urls
}

// repair overlays scanned paths onto the stored ones. Derivatives the scan
// misses keep their stored path and are logged as missing.
func (r *Resolver) repair(ctx context.Context, rec *ImageRecord, token string, stored ScannedPaths) ScannedPaths {
	scanned, err := r.cache.Get(ctx, rec.ID)
	if err != nil {
		slog.Warn("media url cache read failed", slog.Int64("image_id", rec.ID), slog.Any("error", err))
	}
	if scanned == nil {
		s := r.scan(rec, token)
		scanned = &s
		if s != (ScannedPaths{}) {
			if err := r.cache.Set(ctx, rec.ID, s); err != nil {
				slog.Warn("media url cache write failed", slog.Int64("image_id", rec.ID), slog.Any("error", err))
			}
		}
	}

	if *scanned == (ScannedPaths{}) {
		slog.Warn("media files missing for image token",
			slog.Int64("image_id", rec.ID),
			slog.String("token", token),
			slog.String("product", rec.Product.String()),
		)
		return stored
	}

	pick := func(derivative, kept, found string) string {
		if found != "" {
			return found
		}
		if kept != "" {
			warnMissing(rec, derivative, kept)
		}
		return kept
	}
	return ScannedPaths{
		Original:  pick("original", stored.Original, scanned.Original),
		Thumbnail: pick("thumbnail", stored.Thumbnail, scanned.Thumbnail),
		WebP:      pick("webp", stored.WebP, scanned.WebP),
	}
}

// checkStored warns about stored derivative paths with no file behind them.
func (r *Resolver) checkStored(rec *ImageRecord, p ScannedPaths) {
	if r.store == nil {
		return
	}
	for _, d := range []struct{ name, path string }{
		{"original", p.Original},
		{"thumbnail", p.Thumbnail},
		{"webp", p.WebP},
	} {
		if d.path != "" && !r.store.Exists(d.path) {
			warnMissing(rec, d.name, d.path)
		}
	}
}

func warnMissing(rec *ImageRecord, derivative, p string) {
	slog.Warn("media file missing",
		slog.Int64("image_id", rec.ID),
		slog.String("derivative", derivative),
		slog.String("path", p),
		slog.String("product", rec.Product.String()),
	)
}

// scan looks up the token in originales/, miniaturas/ and webp/ next to
// whichever path the record carries.
func (r *Resolver) scan(rec *ImageRecord, token string) ScannedPaths {
	anchor := firstNonEmpty(rec.PathWebP, rec.PathThumbnail, rec.PathOriginal, rec.PathPrimary)
	if anchor == "" {
		return ScannedPaths{}
	}
	base := imageBaseDir(anchor)

	var out ScannedPaths
	for _, d := range derivativeDirs {
		found := r.store.FindByToken(path.Join(base, d.subdir), d.prefix, token)
		switch d.subdir {
		case originalsSubdir:
			out.Original = found
		case thumbnailsSubdir:
			out.Thumbnail = found
		case webpSubdir:
			out.WebP = found
		}
	}
	return out
}

// URL turns a storage-relative path into a public URL. Empty paths stay
// empty.
func (r *Resolver) URL(rel, base string) string {
	if rel == "" {
		return ""
	}
	u := strings.TrimSuffix(r.prefix, "/") + "/" + strings.TrimPrefix(rel, "/")
	if base == "" || strings.Contains(r.prefix, "://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return strings.TrimSuffix(base, "/") + u
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
