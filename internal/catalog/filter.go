package catalog

import (
	"strings"

	"storefront-service/internal/models"
)

// Predicate is one filter stage
type Predicate func(models.Product) bool

// Predicates returns the active stages of c in pipeline order:
// newness, discount-only, price range, text search, tag.
// The price range is always active.
func (c Criteria) Predicates() []Predicate {
	stages := make([]Predicate, 0, 5)

	if c.Newness == NewnessNew || c.Newness == NewnessNotNew {
		want := c.Newness == NewnessNew
		stages = append(stages, func(p models.Product) bool { return p.IsNew == want })
	}

	if c.DiscountOnly {
		stages = append(stages, models.Product.HasDiscount)
	}

	min, max := c.MinPrice, c.MaxPrice
	stages = append(stages, func(p models.Product) bool {
		return p.Price >= min && p.Price <= max
	})

	if c.Search != "" {
		needle := strings.ToLower(c.Search)
		stages = append(stages, func(p models.Product) bool {
			return strings.Contains(strings.ToLower(p.Title), needle)
		})
	}

	if c.Tag != "" {
		tag := c.Tag
		stages = append(stages, func(p models.Product) bool { return p.HasTag(tag) })
	}

	return stages
}

// Matches reports whether p passes every active stage
func (c Criteria) Matches(p models.Product) bool {
	for _, keep := range c.Predicates() {
		if !keep(p) {
			return false
		}
	}
	return true
}

// Filter returns a new slice with the products that satisfy c, in input order.
// The input is never modified.
func Filter(products []models.Product, c Criteria) []models.Product {
	stages := c.Predicates()
	out := make([]models.Product, 0, len(products))
next:
	for _, p := range products {
		for _, keep := range stages {
			if !keep(p) {
				continue next
			}
		}
		out = append(out, p)
	}
	return out
}
