package products

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
)

func openCatalog(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE productos_ofertados (id INTEGER PRIMARY KEY, codigo TEXT NOT NULL, nombre TEXT NOT NULL);
		CREATE TABLE productos_disponibles (id INTEGER PRIMARY KEY, codigo TEXT NOT NULL, nombre TEXT NOT NULL);
		INSERT INTO productos_ofertados (id, codigo, nombre) VALUES (1, 'OFT-001', 'Guantes de nitrilo');
		INSERT INTO productos_disponibles (id, codigo, nombre) VALUES (1, 'DSP-900', 'Monitor multiparámetro');
	`)
	require.NoError(t, err)
	return db
}

func TestFind_PerFamily(t *testing.T) {
	repo := NewProductRepository(openCatalog(t))
	ctx := context.Background()

	p, err := repo.Find(ctx, Ref{Family: FamilyOffered, ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "OFT-001", p.Code)
	assert.Equal(t, "Guantes de nitrilo", p.Name)

	p, err = repo.Find(ctx, Ref{Family: FamilyAvailable, ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "DSP-900", p.Code)
	assert.Equal(t, FamilyAvailable, p.Family)
}

func TestFind_NotFoundCarriesID(t *testing.T) {
	repo := NewProductRepository(openCatalog(t))

	_, err := repo.Find(context.Background(), Ref{Family: FamilyOffered, ID: 77})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.TypeNotFound))
	assert.Contains(t, apperror.SafeMessage(err), "77")
}

func TestFind_RejectsUnknownFamily(t *testing.T) {
	repo := NewProductRepository(openCatalog(t))

	_, err := repo.Find(context.Background(), Ref{Family: "usuarios; DROP TABLE x", ID: 1})
	assert.True(t, apperror.Is(err, apperror.TypeBadRequest))
}

func TestParseFamily(t *testing.T) {
	for in, want := range map[string]Family{
		"ofertados":            FamilyOffered,
		"productosofertados":   FamilyOffered,
		"Offered":              FamilyOffered,
		"disponibles":          FamilyAvailable,
		"productosdisponibles": FamilyAvailable,
		"available":            FamilyAvailable,
	} {
		got, err := ParseFamily(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFamily("clientes")
	assert.Error(t, err)
}

func TestFamilyNaming(t *testing.T) {
	assert.Equal(t, "productosofertados", FamilyOffered.Dir())
	assert.Equal(t, "productosdisponibles", FamilyAvailable.Dir())
	assert.Equal(t, "producto_ofertado_id", FamilyOffered.MediaColumn())
	assert.Equal(t, "producto_disponible_id", FamilyAvailable.MediaColumn())
}
