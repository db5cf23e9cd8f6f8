package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
)

// ProductRepository defines the read-only catalog lookup.
type ProductRepository interface {
	// Find resolves a product reference. Returns a NotFound AppError carrying
	// the product id when no row matches.
	Find(ctx context.Context, ref Ref) (*Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a catalog lookup backed by the given pool.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Find loads code and name from the family's catalog table. The table name
// comes from the Family whitelist, never from user input.
func (r *productRepository) Find(ctx context.Context, ref Ref) (*Product, error) {
	if !ref.Family.Valid() {
		return nil, apperror.NewBadRequest(fmt.Sprintf("familia de producto desconocida: %q", ref.Family))
	}

	query := `SELECT codigo, nombre FROM ` + ref.Family.Table() + ` WHERE id = ?`

	p := &Product{Ref: ref}
	err := r.db.QueryRowContext(ctx, query, ref.ID).Scan(&p.Code, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound(fmt.Sprintf("producto %d no encontrado", ref.ID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product %s: %w", ref, err)
	}
	return p, nil
}
