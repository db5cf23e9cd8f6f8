package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

func product(family products.Family, id int64, code string) products.Product {
	return products.Product{Ref: products.Ref{Family: family, ID: id}, Code: code, Name: "Guante de nitrilo"}
}

func TestImageDirLayout(t *testing.T) {
	dir, err := ImageDir(product(products.FamilyOffered, 12, "OF-0001"))
	require.NoError(t, err)
	assert.Equal(t, "productos/productosofertados/imagenes/OF-0001", dir)

	dir, err = DocumentDir(product(products.FamilyAvailable, 3, "PD-77"))
	require.NoError(t, err)
	assert.Equal(t, "productos/productosdisponibles/documentos/PD-77", dir)
}

func TestProductDirRejectsUnsafeCodes(t *testing.T) {
	for _, code := range []string{"", ".", "..", "a/b", `a\b`, "x\x00y"} {
		_, err := ImageDir(product(products.FamilyOffered, 1, code))
		assert.Error(t, err, "code %q", code)
	}

	_, err := ImageDir(product(products.Family("otros"), 1, "X"))
	assert.Error(t, err)
}

func TestPlanImage(t *testing.T) {
	dir := "productos/productosofertados/imagenes/OF-1"
	tok := "20240115_103045_123456"

	p := PlanImage(dir, tok, "png")
	assert.Equal(t, dir+"/originales/original_"+tok+".png", p.Original)
	assert.Equal(t, dir+"/miniaturas/miniatura_"+tok+".jpg", p.Thumbnail)
	assert.Equal(t, dir+"/webp/webp_"+tok+".webp", p.WebP)
	assert.Len(t, p.All(), 3)

	p = PlanImage(dir, tok, "")
	assert.Empty(t, p.Original)
	assert.Equal(t, []string{p.Thumbnail, p.WebP}, p.All())

	assert.Equal(t, dir, imageBaseDir(p.WebP))
}

func TestPlanDocument(t *testing.T) {
	got := PlanDocument("productos/productosofertados/documentos/OF-1", "ficha técnica/v2", "20240115_103045_000001", "pdf")
	assert.Equal(t, "productos/productosofertados/documentos/OF-1/ficha_técnica-v2_20240115_103045_000001.pdf", got)
}

func TestSanitizeKind(t *testing.T) {
	assert.Equal(t, "registro_sanitario", SanitizeKind("registro sanitario"))
	assert.Equal(t, "a-b-c", SanitizeKind("a/b/c"))
	assert.Equal(t, "a__b", SanitizeKind("a \tb"))
	assert.Equal(t, "ñandú.*?", SanitizeKind("ñandú.*?"), "only whitespace and slashes change")
}
