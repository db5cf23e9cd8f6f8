package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

var glove = products.Ref{Family: products.FamilyOffered, ID: 7}

// --- Mock Repository ---

type mockAuditRepo struct {
	logFn  func(ctx context.Context, entry *Entry) error
	listFn func(ctx context.Context, ref products.Ref, limit int) ([]Entry, int, error)
}

func (m *mockAuditRepo) Log(ctx context.Context, entry *Entry) error {
	if m.logFn != nil {
		return m.logFn(ctx, entry)
	}
	return nil
}

func (m *mockAuditRepo) ListByProduct(ctx context.Context, ref products.Ref, limit int) ([]Entry, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ref, limit)
	}
	return nil, 0, nil
}

func TestLog_Validation(t *testing.T) {
	called := false
	svc := NewAuditService(&mockAuditRepo{logFn: func(context.Context, *Entry) error {
		called = true
		return nil
	}})
	ctx := context.Background()

	err := svc.Log(ctx, &Entry{Action: ActionImageUploaded})
	assert.True(t, apperror.Is(err, apperror.TypeBadRequest))

	err = svc.Log(ctx, &Entry{Product: glove, Action: "image.renamed"})
	assert.True(t, apperror.Is(err, apperror.TypeBadRequest))
	assert.False(t, called)

	require.NoError(t, svc.Log(ctx, &Entry{Product: glove, Action: ActionImageDeleted}))
	assert.True(t, called)
}

func TestLog_RepositoryFailure(t *testing.T) {
	svc := NewAuditService(&mockAuditRepo{logFn: func(context.Context, *Entry) error {
		return errors.New("db down")
	}})

	err := svc.Log(context.Background(), &Entry{Product: glove, Action: ActionImageUploaded})
	assert.True(t, apperror.Is(err, apperror.TypeInternal))
}

func TestProductActivity_EmptyFeed(t *testing.T) {
	var gotLimit int
	svc := NewAuditService(&mockAuditRepo{listFn: func(_ context.Context, _ products.Ref, limit int) ([]Entry, int, error) {
		gotLimit = limit
		return nil, 0, nil
	}})

	feed, err := svc.ProductActivity(context.Background(), glove)
	require.NoError(t, err)
	assert.Equal(t, maxFeedEntries, gotLimit)
	assert.NotNil(t, feed.Entries)
	assert.Empty(t, feed.Entries)
	assert.Equal(t, glove, feed.Product)
}

const activitySchema = `
CREATE TABLE media_activity (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	family TEXT NOT NULL,
	product_id INTEGER NOT NULL,
	user_id INTEGER NULL,
	action TEXT NOT NULL,
	media_type TEXT NOT NULL DEFAULT '',
	media_id INTEGER NULL,
	details TEXT NULL,
	created_at DATETIME NOT NULL
);`

func openActivityDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(activitySchema)
	require.NoError(t, err)
	return db
}

func TestRepository_LogAndList(t *testing.T) {
	repo := NewAuditRepository(openActivityDB(t))
	ctx := context.Background()
	user := int64(12)
	mediaID := int64(5)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &Entry{
		Product:   glove,
		UserID:    &user,
		Action:    ActionImageUploaded,
		MediaType: "imagen",
		MediaID:   &mediaID,
		Details:   map[string]any{"token": "20240301_120000_000000"},
		CreatedAt: base,
	}
	require.NoError(t, repo.Log(ctx, first))
	assert.NotZero(t, first.ID)

	require.NoError(t, repo.Log(ctx, &Entry{
		Product:   glove,
		Action:    ActionImagesReordered,
		CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, repo.Log(ctx, &Entry{
		Product:   products.Ref{Family: products.FamilyAvailable, ID: 7},
		Action:    ActionDocumentUploaded,
		CreatedAt: base,
	}))

	entries, total, err := repo.ListByProduct(ctx, glove, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionImagesReordered, entries[0].Action)
	assert.Nil(t, entries[0].UserID)
	assert.Nil(t, entries[0].Details)

	got := entries[1]
	assert.Equal(t, glove, got.Product)
	require.NotNil(t, got.UserID)
	assert.Equal(t, user, *got.UserID)
	require.NotNil(t, got.MediaID)
	assert.Equal(t, mediaID, *got.MediaID)
	assert.Equal(t, "20240301_120000_000000", got.Details["token"])

	entries, total, err = repo.ListByProduct(ctx, glove, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total, "total ignores the limit")
	assert.Len(t, entries, 1)
}
