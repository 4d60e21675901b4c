package catalog

import (
	"storefront-service/internal/models"
)

// ViewState tells an empty listing apart from one with products.
// A fetch failure never produces a View.
type ViewState string

const (
	StateReady ViewState = "READY"
	StateEmpty ViewState = "EMPTY"
)

// View is the derived listing for one query
type View struct {
	Products    []models.Product      `json:"products"`
	Pagination  models.PaginationInfo `json:"pagination"`
	Criteria    Criteria              `json:"criteria"`
	Fingerprint string                `json:"fingerprint"`
	Tags        []string              `json:"tags"`
	State       ViewState             `json:"state"`
}

// Store holds one fetched product list and the tags found in it.
// It is immutable after construction and safe for concurrent use.
type Store struct {
	products []models.Product
	tags     []string
}

// NewStore copies products and derives the tag set in first-seen order
func NewStore(products []models.Product) *Store {
	s := &Store{
		products: append([]models.Product(nil), products...),
		tags:     []string{},
	}
	seen := make(map[string]struct{})
	for _, p := range s.products {
		for _, tag := range p.Tags {
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			s.tags = append(s.tags, tag)
		}
	}
	return s
}

// Products returns a copy of the full list
func (s *Store) Products() []models.Product {
	return append([]models.Product(nil), s.products...)
}

// Tags returns a copy of the available tags
func (s *Store) Tags() []string {
	return append([]string{}, s.tags...)
}

// Find looks a product up by id
func (s *Store) Find(id string) (models.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// Sequence is the full filtered and sorted list for c, before pagination
func (s *Store) Sequence(c Criteria) []models.Product {
	return Sort(Filter(s.products, c), c.Sort)
}

// View runs filter, sort and paginate for q
func (s *Store) View(q Query) View {
	page := Paginate(s.Sequence(q.Criteria), q.Page, q.PageSize)

	state := StateReady
	if page.Total == 0 {
		state = StateEmpty
	}
	return View{
		Products:    page.Items,
		Pagination:  page.Pagination(),
		Criteria:    q.Criteria,
		Fingerprint: q.Criteria.Fingerprint(),
		Tags:        s.Tags(),
		State:       state,
	}
}
