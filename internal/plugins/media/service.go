package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
	"github.com/PROCLCGIT/pandora-sub000/internal/config"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/audit"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// maxTokenAttempts bounds how often an upload retries with a fresh token
// when its planned filenames are already taken.
const maxTokenAttempts = 5

// MediaService orchestrates the product media pipeline. base is the scheme
// and host of the current request; when non-empty, emitted URLs are absolute.
type MediaService interface {
	UploadImage(ctx context.Context, ref products.Ref, u Upload, meta ImageMetadata, base string) (*ImageUploadResponse, error)
	UploadDocument(ctx context.Context, ref products.Ref, u Upload, meta DocumentMetadata, base string) (*DocumentView, error)
	ListImages(ctx context.Context, ref products.Ref, base string) ([]ImageView, error)
	ListDocuments(ctx context.Context, ref products.Ref, base string) ([]DocumentView, error)
	DeleteImage(ctx context.Context, family products.Family, id int64, userID *int64) error
	DeleteDocument(ctx context.Context, family products.Family, id int64, userID *int64) error
	ReorderImages(ctx context.Context, ref products.Ref, ids []int64, userID *int64) error
}

// mediaService implements MediaService.
type mediaService struct {
	repo        MediaRepository
	products    products.ProductRepository
	validator   *Validator
	transformer *Transformer
	store       *Store
	resolver    *Resolver
	cache       PathCache
	tokens      *TokenSource
	activity    audit.AuditService // optional
}

// NewMediaService creates the media coordinator. cache and activity may be
// nil.
func NewMediaService(
	cfg config.MediaConfig,
	repo MediaRepository,
	productRepo products.ProductRepository,
	store *Store,
	resolver *Resolver,
	cache PathCache,
	activity audit.AuditService,
) MediaService {
	if cache == nil {
		cache = NopPathCache{}
	}
	return &mediaService{
		repo:        repo,
		products:    productRepo,
		validator:   NewValidator(cfg.ImagePolicy, cfg.DocumentPolicy),
		transformer: NewTransformer(cfg),
		store:       store,
		resolver:    resolver,
		cache:       cache,
		tokens:      NewTokenSource(),
		activity:    activity,
	}
}

// UploadImage validates, transforms, stores and records one image. Nothing
// is written to disk before validation and decoding succeed.
func (s *mediaService) UploadImage(ctx context.Context, ref products.Ref, u Upload, meta ImageMetadata, base string) (*ImageUploadResponse, error) {
	product, err := s.products.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if _, err := s.validator.Validate(KindImage, u); err != nil {
		return nil, err
	}
	dir, err := ImageDir(*product)
	if err != nil {
		return nil, apperror.NewBadRequest(err.Error())
	}

	deriv, err := s.transformer.Transform(u.Data)
	if errors.Is(err, ErrTooManyPixels) {
		slog.Debug("image rejected before decode", slog.String("product", ref.String()), slog.Any("error", err))
		return nil, apperror.NewValidation(ReasonTooManyPixels)
	}
	if err != nil {
		return nil, apperror.NewProcessing(err)
	}

	count, maxOrder, err := s.repo.ImageStats(ctx, ref)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	originalExt := ""
	if deriv.Original != nil {
		originalExt = deriv.Original.Ext
	}

	var (
		token string
		paths ImagePaths
	)
	err = s.withFreshToken(func(tok string) ([]string, error) {
		token = tok
		paths = PlanImage(dir, tok, originalExt)
		return s.writeAll([]pendingWrite{
			{paths.Original, deriv.Original},
			{paths.Thumbnail, deriv.Thumbnail},
			{paths.WebP, deriv.WebP},
		})
	})
	if err != nil {
		return nil, err
	}

	meta = cleanImageMetadata(meta)
	rec := &ImageRecord{
		Product:       ref,
		PathOriginal:  paths.Original,
		PathThumbnail: paths.Thumbnail,
		PathWebP:      paths.WebP,
		Title:         meta.Title,
		AltText:       meta.AltText,
		Description:   meta.Description,
		Tags:          meta.Tags,
		Order:         maxOrder + 1,
		IsPrimary:     count == 0,
		Width:         deriv.Width,
		Height:        deriv.Height,
		Format:        deriv.Format,
		FileSize:      deriv.FileSize,
		CreatedBy:     meta.CreatedBy,
	}
	if meta.Order != nil {
		rec.Order = *meta.Order
	}
	if meta.IsPrimary != nil {
		rec.IsPrimary = *meta.IsPrimary
	}
	applyImageDefaults(rec, product.Name)

	if err := s.repo.CreateImage(ctx, rec); err != nil {
		s.discard(paths.All()...)
		return nil, apperror.NewInternal(fmt.Errorf("saving image record: %w", err))
	}

	slog.Info("product image uploaded",
		slog.Int64("id", rec.ID),
		slog.String("product", ref.String()),
		slog.String("token", token),
		slog.String("format", rec.Format),
		slog.Int64("size", rec.FileSize),
	)
	s.record(ctx, &audit.Entry{
		Product:   ref,
		UserID:    meta.CreatedBy,
		Action:    audit.ActionImageUploaded,
		MediaType: string(KindImage),
		MediaID:   &rec.ID,
		Details:   map[string]any{"token": token, "path_primary": rec.PathPrimary, "is_primary": rec.IsPrimary},
	})

	return &ImageUploadResponse{
		ID:            rec.ID,
		Title:         rec.Title,
		Description:   rec.Description,
		Order:         rec.Order,
		IsPrimary:     rec.IsPrimary,
		URLs:          s.resolver.Resolve(ctx, rec, base),
		PathOriginal:  rec.PathOriginal,
		PathThumbnail: rec.PathThumbnail,
		PathWebP:      rec.PathWebP,
		Timestamp:     token,
		Metadata:      imageMeta(rec),
	}, nil
}

// UploadDocument validates, stores and records one document.
func (s *mediaService) UploadDocument(ctx context.Context, ref products.Ref, u Upload, meta DocumentMetadata, base string) (*DocumentView, error) {
	product, err := s.products.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	mime, err := s.validator.Validate(KindDocument, u)
	if err != nil {
		return nil, err
	}
	dir, err := DocumentDir(*product)
	if err != nil {
		return nil, apperror.NewBadRequest(err.Error())
	}

	meta = cleanDocumentMetadata(meta)
	ext := documentExtension(u.Filename, mime)

	var stored string
	err = s.withFreshToken(func(tok string) ([]string, error) {
		stored = PlanDocument(dir, meta.DocumentKind, tok, ext)
		return s.writeAll([]pendingWrite{{stored, &Derivative{Ext: ext, Data: u.Data}}})
	})
	if err != nil {
		return nil, err
	}

	doc := &DocumentRecord{
		Product:      ref,
		Path:         stored,
		Title:        meta.Title,
		DocumentKind: meta.DocumentKind,
		Description:  meta.Description,
		IsPublic:     meta.IsPublic,
		CreatedBy:    meta.CreatedBy,
	}
	if doc.Title == "" {
		doc.Title = documentTitle(u.Filename, meta.DocumentKind)
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		s.discard(stored)
		return nil, apperror.NewInternal(fmt.Errorf("saving document record: %w", err))
	}

	slog.Info("product document uploaded",
		slog.Int64("id", doc.ID),
		slog.String("product", ref.String()),
		slog.String("kind", doc.DocumentKind),
		slog.Int64("size", u.Size()),
	)
	s.record(ctx, &audit.Entry{
		Product:   ref,
		UserID:    meta.CreatedBy,
		Action:    audit.ActionDocumentUploaded,
		MediaType: string(KindDocument),
		MediaID:   &doc.ID,
		Details:   map[string]any{"path": doc.Path, "document_kind": doc.DocumentKind},
	})

	view := s.documentView(doc, base)
	return &view, nil
}

// pendingWrite pairs a planned path with the bytes destined for it. Empty
// paths and nil derivatives are skipped.
type pendingWrite struct {
	path  string
	deriv *Derivative
}

// writeAll writes each planned file in order and returns the paths written
// so far. It stops at the first failure.
func (s *mediaService) writeAll(writes []pendingWrite) ([]string, error) {
	var written []string
	for _, w := range writes {
		if w.path == "" || w.deriv == nil {
			continue
		}
		if err := s.store.WriteNew(w.path, w.deriv.Data); err != nil {
			return written, err
		}
		written = append(written, w.path)
	}
	return written, nil
}

// withFreshToken runs write with a new token, retrying with another token
// when the very first file of the plan already exists. Any other failure is
// a storage error; files written before it stay on disk as orphans.
func (s *mediaService) withFreshToken(write func(token string) ([]string, error)) error {
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token := s.tokens.Next()
		written, err := write(token)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrExists) && len(written) == 0 {
			slog.Warn("media token collision, retrying",
				slog.String("token", token),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if len(written) > 0 {
			slog.Warn("media upload left partial files",
				slog.Any("paths", written),
				slog.Any("error", err),
			)
		}
		return apperror.NewStorage(err)
	}
	return apperror.NewStorage(fmt.Errorf("no free media token after %d attempts", maxTokenAttempts))
}

// discard removes files written for an upload whose record insert failed.
func (s *mediaService) discard(paths ...string) {
	for _, p := range paths {
		if err := s.store.Remove(p); err != nil {
			slog.Warn("failed to remove unrecorded media file", slog.String("path", p), slog.Any("error", err))
		}
	}
}

// record writes an activity entry. Failures are logged by the audit service
// and never fail the media operation.
func (s *mediaService) record(ctx context.Context, entry *audit.Entry) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Log(ctx, entry)
}

// ListImages returns a product's images in display order with their URL maps.
func (s *mediaService) ListImages(ctx context.Context, ref products.Ref, base string) ([]ImageView, error) {
	if _, err := s.products.Find(ctx, ref); err != nil {
		return nil, err
	}
	recs, err := s.repo.ListImages(ctx, ref)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	views := make([]ImageView, 0, len(recs))
	primaries := 0
	for i := range recs {
		rec := &recs[i]
		if rec.IsPrimary {
			primaries++
		}
		views = append(views, ImageView{
			ID:          rec.ID,
			Title:       rec.Title,
			AltText:     rec.AltText,
			Description: rec.Description,
			Tags:        rec.Tags,
			Order:       rec.Order,
			IsPrimary:   rec.IsPrimary,
			URLs:        s.resolver.Resolve(ctx, rec, base),
			Metadata:    imageMeta(rec),
			CreatedAt:   rec.CreatedAt,
		})
	}
	if primaries > 1 {
		slog.Warn("product has more than one primary image",
			slog.String("product", ref.String()),
			slog.Int("primaries", primaries),
		)
	}
	return views, nil
}

// ListDocuments returns a product's documents with their URLs.
func (s *mediaService) ListDocuments(ctx context.Context, ref products.Ref, base string) ([]DocumentView, error) {
	if _, err := s.products.Find(ctx, ref); err != nil {
		return nil, err
	}
	docs, err := s.repo.ListDocuments(ctx, ref)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	views := make([]DocumentView, 0, len(docs))
	for i := range docs {
		views = append(views, s.documentView(&docs[i], base))
	}
	return views, nil
}

func (s *mediaService) documentView(doc *DocumentRecord, base string) DocumentView {
	return DocumentView{
		ID:           doc.ID,
		Title:        doc.Title,
		DocumentKind: doc.DocumentKind,
		Description:  doc.Description,
		IsPublic:     doc.IsPublic,
		Path:         doc.Path,
		URL:          s.resolver.URL(doc.Path, base),
		CreatedAt:    doc.CreatedAt,
	}
}

// DeleteImage removes the record only. Derivative files stay on disk until
// the janitor collects them.
func (s *mediaService) DeleteImage(ctx context.Context, family products.Family, id int64, userID *int64) error {
	rec, err := s.repo.FindImage(ctx, family, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteImage(ctx, family, id); err != nil {
		return wrapRepo(err)
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		slog.Warn("media url cache invalidation failed", slog.Int64("image_id", id), slog.Any("error", err))
	}

	slog.Info("product image deleted", slog.Int64("id", id), slog.String("product", rec.Product.String()))
	s.record(ctx, &audit.Entry{
		Product:   rec.Product,
		UserID:    userID,
		Action:    audit.ActionImageDeleted,
		MediaType: string(KindImage),
		MediaID:   &id,
		Details:   map[string]any{"path_primary": rec.PathPrimary, "was_primary": rec.IsPrimary},
	})
	return nil
}

// DeleteDocument removes the record only; the file stays on disk.
func (s *mediaService) DeleteDocument(ctx context.Context, family products.Family, id int64, userID *int64) error {
	doc, err := s.repo.FindDocument(ctx, family, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDocument(ctx, family, id); err != nil {
		return wrapRepo(err)
	}

	slog.Info("product document deleted", slog.Int64("id", id), slog.String("product", doc.Product.String()))
	s.record(ctx, &audit.Entry{
		Product:   doc.Product,
		UserID:    userID,
		Action:    audit.ActionDocumentDeleted,
		MediaType: string(KindDocument),
		MediaID:   &id,
		Details:   map[string]any{"path": doc.Path},
	})
	return nil
}

// ReorderImages gives each listed image its list index as order. Repeating
// the same call changes nothing.
func (s *mediaService) ReorderImages(ctx context.Context, ref products.Ref, ids []int64, userID *int64) error {
	if _, err := s.products.Find(ctx, ref); err != nil {
		return err
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperror.NewBadRequest(fmt.Sprintf("imagen %d repetida en el nuevo orden", id))
		}
		seen[id] = true
	}
	if len(ids) == 0 {
		return nil
	}

	changed, err := s.repo.ReorderImages(ctx, ref, ids)
	if err != nil {
		return wrapRepo(err)
	}
	if changed == 0 {
		return nil
	}

	slog.Info("product images reordered", slog.String("product", ref.String()), slog.Int("changed", changed))
	s.record(ctx, &audit.Entry{
		Product:   ref,
		UserID:    userID,
		Action:    audit.ActionImagesReordered,
		MediaType: string(KindImage),
		Details:   map[string]any{"ids": ids},
	})
	return nil
}

// wrapRepo passes AppErrors through and hides anything else behind an
// internal error.
func wrapRepo(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.NewInternal(err)
}
