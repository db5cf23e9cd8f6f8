package database

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PROCLCGIT/pandora-sub000/db"
)

// validActivityActions must match the ENUM on media_activity.action and the
// action constants in internal/plugins/audit.
var validActivityActions = map[string]bool{
	"image.uploaded":    true,
	"image.deleted":     true,
	"images.reordered":  true,
	"document.uploaded": true,
	"document.deleted":  true,
}

func migrationFiles(t *testing.T, suffix string) []string {
	t.Helper()
	files, err := fs.Glob(db.Migrations, "migrations/*"+suffix)
	require.NoError(t, err)
	require.NotEmpty(t, files, "no %s migration files embedded", suffix)
	return files
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	for _, up := range migrationFiles(t, ".up.sql") {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		_, err := fs.Stat(db.Migrations, down)
		assert.NoError(t, err, "missing down migration for %s", up)
	}
}

// TestMigrations_ActivityEnum keeps the action ENUM in sync with the Go
// constants so inserts never fail with "Data truncated for column".
func TestMigrations_ActivityEnum(t *testing.T) {
	enumPattern := regexp.MustCompile(`(?s)action\s+ENUM\(([^)]*)\)`)
	valuePattern := regexp.MustCompile(`'([^']+)'`)

	found := false
	for _, f := range migrationFiles(t, ".up.sql") {
		data, err := fs.ReadFile(db.Migrations, f)
		require.NoError(t, err)

		m := enumPattern.FindStringSubmatch(string(data))
		if m == nil {
			continue
		}
		found = true

		seen := map[string]bool{}
		for _, v := range valuePattern.FindAllStringSubmatch(m[1], -1) {
			seen[v[1]] = true
			assert.True(t, validActivityActions[v[1]], "%s: unexpected action %q", f, v[1])
		}
		for action := range validActivityActions {
			assert.True(t, seen[action], "%s: ENUM is missing %q", f, action)
		}
	}
	assert.True(t, found, "media_activity.action ENUM not found in any migration")
}

// TestMigrations_OneProductCheck guards invariant: each media row belongs to
// exactly one product family.
func TestMigrations_OneProductCheck(t *testing.T) {
	data, err := fs.ReadFile(db.Migrations, "migrations/000002_product_media.up.sql")
	require.NoError(t, err)

	sql := string(data)
	assert.Contains(t, sql, "chk_imagenes_one_product")
	assert.Contains(t, sql, "chk_documentos_one_product")
}

// TestMigrations_CatalogDownKeepsTables makes sure rolling back never drops
// the catalog tables that 000001 only creates when missing.
func TestMigrations_CatalogDownKeepsTables(t *testing.T) {
	up, err := fs.ReadFile(db.Migrations, "migrations/000001_products.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS productos_ofertados")

	down, err := fs.ReadFile(db.Migrations, "migrations/000001_products.down.sql")
	require.NoError(t, err)
	assert.NotContains(t, strings.ToUpper(string(down)), "DROP")
}
