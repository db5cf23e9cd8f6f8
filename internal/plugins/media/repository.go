package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// MediaRepository defines the data access contract for product images and
// documents. Every query is scoped by family through the family's foreign-key
// column, so an id from one catalog never matches a row of the other.
type MediaRepository interface {
	// CreateImage inserts rec. When rec.IsPrimary is set, every other image
	// of the same product is demoted in the same transaction.
	CreateImage(ctx context.Context, rec *ImageRecord) error
	FindImage(ctx context.Context, family products.Family, id int64) (*ImageRecord, error)
	ListImages(ctx context.Context, ref products.Ref) ([]ImageRecord, error)

	// ImageStats returns the product's image count and its highest order
	// (-1 when there are no images).
	ImageStats(ctx context.Context, ref products.Ref) (count int, maxOrder int, err error)
	DeleteImage(ctx context.Context, family products.Family, id int64) error

	// ReorderImages assigns each listed id its list index as order and
	// returns how many rows actually changed.
	ReorderImages(ctx context.Context, ref products.Ref, ids []int64) (int, error)

	CreateDocument(ctx context.Context, doc *DocumentRecord) error
	FindDocument(ctx context.Context, family products.Family, id int64) (*DocumentRecord, error)
	ListDocuments(ctx context.Context, ref products.Ref) ([]DocumentRecord, error)
	DeleteDocument(ctx context.Context, family products.Family, id int64) error

	// ReferencedPaths lists every non-empty stored path of every record.
	ReferencedPaths(ctx context.Context) ([]string, error)
}

// mediaRepository implements MediaRepository with MariaDB queries.
type mediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new media repository.
func NewMediaRepository(db *sql.DB) MediaRepository {
	return &mediaRepository{db: db}
}

const imageColumns = `id, producto_ofertado_id, producto_disponible_id,
	path_primary, path_original, path_thumbnail, path_webp,
	title, alt_text, description, tags, sort_order, is_primary,
	width, height, format, file_size, created_at, updated_at, created_by`

const documentColumns = `id, producto_ofertado_id, producto_disponible_id,
	path, title, document_kind, description, is_public,
	created_at, updated_at, created_by`

// ownerArgs returns the values for the two mutually exclusive product
// columns. Exactly one is non-null.
func ownerArgs(ref products.Ref) (offered, available sql.NullInt64) {
	if ref.Family == products.FamilyAvailable {
		available = sql.NullInt64{Int64: ref.ID, Valid: true}
	} else {
		offered = sql.NullInt64{Int64: ref.ID, Valid: true}
	}
	return offered, available
}

// ownerRef rebuilds the product ref from the scanned owner columns.
func ownerRef(offered, available sql.NullInt64) products.Ref {
	if available.Valid {
		return products.Ref{Family: products.FamilyAvailable, ID: available.Int64}
	}
	return products.Ref{Family: products.FamilyOffered, ID: offered.Int64}
}

func checkFamily(f products.Family) error {
	if !f.Valid() {
		return apperror.NewBadRequest(fmt.Sprintf("familia de producto desconocida: %q", f))
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateImage demotes existing primaries and inserts the row in one
// transaction so two primaries are never visible at once.
func (r *mediaRepository) CreateImage(ctx context.Context, rec *ImageRecord) error {
	if err := checkFamily(rec.Product.Family); err != nil {
		return err
	}
	if rec.PathPrimary == "" {
		rec.PathPrimary = firstNonEmpty(rec.PathWebP, rec.PathThumbnail, rec.PathOriginal)
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	col := rec.Product.Family.MediaColumn()
	if rec.IsPrimary {
		_, err := tx.ExecContext(ctx,
			`UPDATE imagenes_producto SET is_primary = FALSE, updated_at = ?
			 WHERE `+col+` = ? AND is_primary = TRUE`,
			rec.UpdatedAt, rec.Product.ID,
		)
		if err != nil {
			return fmt.Errorf("demoting primary images: %w", err)
		}
	}

	offered, available := ownerArgs(rec.Product)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO imagenes_producto (producto_ofertado_id, producto_disponible_id,
			path_primary, path_original, path_thumbnail, path_webp,
			title, alt_text, description, tags, sort_order, is_primary,
			width, height, format, file_size, created_at, updated_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		offered, available,
		rec.PathPrimary, rec.PathOriginal, rec.PathThumbnail, rec.PathWebP,
		rec.Title, rec.AltText, nullString(rec.Description), rec.Tags, rec.Order, rec.IsPrimary,
		rec.Width, rec.Height, rec.Format, rec.FileSize, rec.CreatedAt, rec.UpdatedAt, rec.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("inserting image: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading image id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing image: %w", err)
	}
	rec.ID = id
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*ImageRecord, error) {
	var (
		rec                ImageRecord
		offered, available sql.NullInt64
		description        sql.NullString
		createdBy          sql.NullInt64
	)
	err := row.Scan(
		&rec.ID, &offered, &available,
		&rec.PathPrimary, &rec.PathOriginal, &rec.PathThumbnail, &rec.PathWebP,
		&rec.Title, &rec.AltText, &description, &rec.Tags, &rec.Order, &rec.IsPrimary,
		&rec.Width, &rec.Height, &rec.Format, &rec.FileSize,
		&rec.CreatedAt, &rec.UpdatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	rec.Product = ownerRef(offered, available)
	rec.Description = description.String
	if createdBy.Valid {
		rec.CreatedBy = &createdBy.Int64
	}
	return &rec, nil
}

// FindImage loads one image that belongs to a product of the given family.
func (r *mediaRepository) FindImage(ctx context.Context, family products.Family, id int64) (*ImageRecord, error) {
	if err := checkFamily(family); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+imageColumns+` FROM imagenes_producto
		 WHERE id = ? AND `+family.MediaColumn()+` IS NOT NULL`, id)

	rec, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(fmt.Sprintf("imagen %d no encontrada", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying image %d: %w", id, err)
	}
	return rec, nil
}

// ListImages returns a product's images by display order, then id.
func (r *mediaRepository) ListImages(ctx context.Context, ref products.Ref) ([]ImageRecord, error) {
	if err := checkFamily(ref.Family); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM imagenes_producto
		 WHERE `+ref.Family.MediaColumn()+` = ?
		 ORDER BY sort_order, id`, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("listing images for %s: %w", ref, err)
	}
	defer rows.Close()

	var out []ImageRecord
	for rows.Next() {
		rec, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *mediaRepository) ImageStats(ctx context.Context, ref products.Ref) (int, int, error) {
	if err := checkFamily(ref.Family); err != nil {
		return 0, 0, err
	}
	var count, maxOrder int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(sort_order), -1) FROM imagenes_producto
		 WHERE `+ref.Family.MediaColumn()+` = ?`, ref.ID,
	).Scan(&count, &maxOrder)
	if err != nil {
		return 0, 0, fmt.Errorf("reading image stats for %s: %w", ref, err)
	}
	return count, maxOrder, nil
}

func (r *mediaRepository) DeleteImage(ctx context.Context, family products.Family, id int64) error {
	if err := checkFamily(family); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM imagenes_producto WHERE id = ? AND `+family.MediaColumn()+` IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("deleting image %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting image %d: %w", id, err)
	}
	if n == 0 {
		return apperror.NewNotFound(fmt.Sprintf("imagen %d no encontrada", id))
	}
	return nil
}

// ReorderImages validates that every id belongs to the product before
// touching anything, then updates only the rows whose order differs.
// Images missing from ids keep their order.
func (r *mediaRepository) ReorderImages(ctx context.Context, ref products.Ref, ids []int64) (int, error) {
	if err := checkFamily(ref.Family); err != nil {
		return 0, err
	}
	col := ref.Family.MediaColumn()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, sort_order FROM imagenes_producto WHERE `+col+` = ?`, ref.ID)
	if err != nil {
		return 0, fmt.Errorf("loading image order for %s: %w", ref, err)
	}
	current := make(map[int64]int)
	for rows.Next() {
		var id int64
		var order int
		if err := rows.Scan(&id, &order); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning image order: %w", err)
		}
		current[id] = order
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("loading image order for %s: %w", ref, err)
	}

	for _, id := range ids {
		if _, ok := current[id]; !ok {
			return 0, apperror.NewNotFound(fmt.Sprintf("imagen %d no encontrada en producto %d", id, ref.ID))
		}
	}

	now := time.Now().UTC()
	changed := 0
	for i, id := range ids {
		if current[id] == i {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE imagenes_producto SET sort_order = ?, updated_at = ? WHERE id = ?`,
			i, now, id,
		); err != nil {
			return 0, fmt.Errorf("updating order of image %d: %w", id, err)
		}
		changed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing reorder: %w", err)
	}
	return changed, nil
}

func (r *mediaRepository) CreateDocument(ctx context.Context, doc *DocumentRecord) error {
	if err := checkFamily(doc.Product.Family); err != nil {
		return err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = doc.CreatedAt

	offered, available := ownerArgs(doc.Product)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO documentos_producto (producto_ofertado_id, producto_disponible_id,
			path, title, document_kind, description, is_public,
			created_at, updated_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		offered, available,
		doc.Path, doc.Title, doc.DocumentKind, nullString(doc.Description), doc.IsPublic,
		doc.CreatedAt, doc.UpdatedAt, doc.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading document id: %w", err)
	}
	doc.ID = id
	return nil
}

func scanDocument(row rowScanner) (*DocumentRecord, error) {
	var (
		doc                DocumentRecord
		offered, available sql.NullInt64
		description        sql.NullString
		createdBy          sql.NullInt64
	)
	err := row.Scan(
		&doc.ID, &offered, &available,
		&doc.Path, &doc.Title, &doc.DocumentKind, &description, &doc.IsPublic,
		&doc.CreatedAt, &doc.UpdatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	doc.Product = ownerRef(offered, available)
	doc.Description = description.String
	if createdBy.Valid {
		doc.CreatedBy = &createdBy.Int64
	}
	return &doc, nil
}

func (r *mediaRepository) FindDocument(ctx context.Context, family products.Family, id int64) (*DocumentRecord, error) {
	if err := checkFamily(family); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documentos_producto
		 WHERE id = ? AND `+family.MediaColumn()+` IS NOT NULL`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(fmt.Sprintf("documento %d no encontrado", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %d: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns a product's documents, newest first.
func (r *mediaRepository) ListDocuments(ctx context.Context, ref products.Ref) ([]DocumentRecord, error) {
	if err := checkFamily(ref.Family); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documentos_producto
		 WHERE `+ref.Family.MediaColumn()+` = ?
		 ORDER BY created_at DESC, id DESC`, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("listing documents for %s: %w", ref, err)
	}
	defer rows.Close()

	var out []DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func (r *mediaRepository) DeleteDocument(ctx context.Context, family products.Family, id int64) error {
	if err := checkFamily(family); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM documentos_producto WHERE id = ? AND `+family.MediaColumn()+` IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	if n == 0 {
		return apperror.NewNotFound(fmt.Sprintf("documento %d no encontrado", id))
	}
	return nil
}

func (r *mediaRepository) ReferencedPaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT path_primary, path_original, path_thumbnail, path_webp FROM imagenes_producto`)
	if err != nil {
		return nil, fmt.Errorf("listing image paths: %w", err)
	}
	var out []string
	for rows.Next() {
		var p [4]string
		if err := rows.Scan(&p[0], &p[1], &p[2], &p[3]); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning image paths: %w", err)
		}
		for _, s := range p {
			if s != "" {
				out = append(out, s)
			}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing image paths: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `SELECT path FROM documentos_producto`)
	if err != nil {
		return nil, fmt.Errorf("listing document paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning document path: %w", err)
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out, rows.Err()
}
