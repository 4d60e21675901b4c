package catalog

import (
	"sort"

	"storefront-service/internal/models"
)

// Sort returns a copy of products ordered by mode. Equal prices keep their
// relative order; SortDefault leaves the order untouched.
func Sort(products []models.Product, mode SortMode) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)

	switch mode {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}
	return out
}
