// Package products exposes the read-only view of the catalog that the media
// pipeline needs: a product's family, code and display name. Products are
// created and edited by the catalog CRUD service; nothing here writes them.
package products

import (
	"fmt"
	"strings"
)

// Family selects one of the two product catalogs. It is the only point where
// the media pipeline specializes between Offered and Available products.
type Family string

const (
	// FamilyOffered is the catalog of products the company may supply.
	FamilyOffered Family = "ofertados"

	// FamilyAvailable is the catalog of sellable SKUs (brand, model, price)
	// backed by an offered product.
	FamilyAvailable Family = "disponibles"
)

// Families lists every known family in a stable order.
var Families = []Family{FamilyOffered, FamilyAvailable}

// ParseFamily accepts the route spelling, the storage directory spelling,
// and the English names.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ofertados", "productosofertados", "ofertado", "offered":
		return FamilyOffered, nil
	case "disponibles", "productosdisponibles", "disponible", "available":
		return FamilyAvailable, nil
	}
	return "", fmt.Errorf("unknown product family %q", s)
}

// Dir is the family directory under productos/ in the media tree.
func (f Family) Dir() string {
	return "productos" + string(f)
}

// Table is the catalog table holding products of this family.
func (f Family) Table() string {
	return "productos_" + string(f)
}

// MediaColumn is the foreign-key column on media tables that points at a
// product of this family.
func (f Family) MediaColumn() string {
	if f == FamilyAvailable {
		return "producto_disponible_id"
	}
	return "producto_ofertado_id"
}

// Valid reports whether f is one of the known families.
func (f Family) Valid() bool {
	return f == FamilyOffered || f == FamilyAvailable
}

// Ref identifies one product: exactly one family and that family's id.
type Ref struct {
	Family Family `json:"family"`
	ID     int64  `json:"id"`
}

// String formats the ref for logs and error messages.
func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Family, r.ID)
}

// Product is the subset of a catalog row the media pipeline reads.
type Product struct {
	Ref
	Code string `json:"code"`
	Name string `json:"name"`
}
