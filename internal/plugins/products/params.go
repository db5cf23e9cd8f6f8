package products

import (
	"fmt"
	"strconv"

	"github.com/PROCLCGIT/pandora-sub000/internal/apperror"
)

// ParseID parses a positive numeric id from a route parameter.
func ParseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest(fmt.Sprintf("%s inválido: %q", what, raw))
	}
	return id, nil
}

// ParseFamilyParam parses the :family route parameter.
func ParseFamilyParam(raw string) (Family, error) {
	f, err := ParseFamily(raw)
	if err != nil {
		return "", apperror.NewBadRequest(fmt.Sprintf("familia de producto desconocida: %q", raw))
	}
	return f, nil
}

// ParseRef builds a Ref from the :family and :id route parameters.
func ParseRef(family, id string) (Ref, error) {
	f, err := ParseFamilyParam(family)
	if err != nil {
		return Ref{}, err
	}
	n, err := ParseID(id, "id de producto")
	if err != nil {
		return Ref{}, err
	}
	return Ref{Family: f, ID: n}, nil
}
