package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// maxFeedEntries caps how many entries the activity feed returns.
const maxFeedEntries = 100

// AuditService handles business logic for the media activity log.
type AuditService interface {
	// Log records an entry. Callers treat it as fire-and-forget: failures
	// are logged here and must not fail the media operation.
	Log(ctx context.Context, entry *Entry) error

	// ProductActivity returns the product's most recent entries.
	ProductActivity(ctx context.Context, ref products.Ref) (*Feed, error)
}

// auditService implements AuditService.
type auditService struct {
	repo AuditRepository
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Log validates and persists an entry.
func (s *auditService) Log(ctx context.Context, entry *Entry) error {
	if !entry.Product.Family.Valid() || entry.Product.ID <= 0 {
		return apperror.NewBadRequest("product is required for activity entry")
	}
	if !ValidAction(entry.Action) {
		return apperror.NewBadRequest(fmt.Sprintf("unknown activity action %q", entry.Action))
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write media activity entry",
			slog.String("product", entry.Product.String()),
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing activity entry: %w", err))
	}
	return nil
}

func (s *auditService) ProductActivity(ctx context.Context, ref products.Ref) (*Feed, error) {
	entries, total, err := s.repo.ListByProduct(ctx, ref, maxFeedEntries)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing product activity: %w", err))
	}
	if entries == nil {
		entries = []Entry{}
	}
	return &Feed{Product: ref, Entries: entries, Total: total}, nil
}
