package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// AuditRepository defines the data access contract for the media activity
// log. All SQL lives in the concrete implementation.
type AuditRepository interface {
	// Log inserts a new entry.
	Log(ctx context.Context, entry *Entry) error

	// ListByProduct returns a product's latest entries, most recent first,
	// plus the total number of entries recorded for it.
	ListByProduct(ctx context.Context, ref products.Ref, limit int) ([]Entry, int, error)
}

// auditRepository implements AuditRepository with MariaDB queries.
type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log inserts a new entry. The details map is serialized to JSON before
// storage. Nil details are stored as SQL NULL.
func (r *auditRepository) Log(ctx context.Context, entry *Entry) error {
	query := `INSERT INTO media_activity (family, product_id, user_id, action, media_type, media_id, details, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var detailsJSON sql.NullString
	if entry.Details != nil {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling activity details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		string(entry.Product.Family), entry.Product.ID, entry.UserID,
		entry.Action, entry.MediaType, entry.MediaID,
		detailsJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting activity entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByProduct returns a product's entries ordered by most recent first.
func (r *auditRepository) ListByProduct(ctx context.Context, ref products.Ref, limit int) ([]Entry, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_activity WHERE family = ? AND product_id = ?`,
		string(ref.Family), ref.ID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting activity entries: %w", err)
	}

	query := `SELECT id, family, product_id, user_id, action, media_type, media_id, details, created_at
	          FROM media_activity
	          WHERE family = ? AND product_id = ?
	          ORDER BY created_at DESC, id DESC
	          LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, string(ref.Family), ref.ID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing activity entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			family  string
			userID  sql.NullInt64
			mediaID sql.NullInt64
			details sql.NullString
		)
		if err := rows.Scan(&e.ID, &family, &e.Product.ID, &userID, &e.Action,
			&e.MediaType, &mediaID, &details, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.Product.Family = products.Family(family)
		if userID.Valid {
			e.UserID = &userID.Int64
		}
		if mediaID.Valid {
			e.MediaID = &mediaID.Int64
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, 0, fmt.Errorf("unmarshaling activity details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating activity entries: %w", err)
	}
	return entries, total, nil
}
