package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"storefront-service/internal/models"
)

// Newness is the tri-state "new arrivals" criterion
type Newness string

const (
	NewnessAny    Newness = "any"
	NewnessNew    Newness = "true"
	NewnessNotNew Newness = "false"
)

// ParseNewness reads the isNew query parameter. Anything other than true/false is "any".
func ParseNewness(value string) Newness {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return NewnessNew
	case "false":
		return NewnessNotNew
	default:
		return NewnessAny
	}
}

// SortMode orders the filtered sequence
type SortMode string

const (
	SortDefault   SortMode = "default"
	SortPriceAsc  SortMode = "price-asc"
	SortPriceDesc SortMode = "price-desc"
)

// ParseSortMode falls back to SortDefault for unknown values
func ParseSortMode(value string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(value))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	default:
		return SortDefault
	}
}

const (
	DefaultMinPrice models.Price = 0
	DefaultMaxPrice models.Price = 10000

	// ShopPageSize is the page size of the main shop listing
	ShopPageSize = 16
	// CategoryPageSize is the page size of category listings
	CategoryPageSize = 10
)

// Criteria is a snapshot of every filter and sort parameter. It is comparable,
// so two snapshots are equal exactly when the same products would be listed.
type Criteria struct {
	Newness      Newness      `json:"isNew"`
	DiscountOnly bool         `json:"discounted"`
	MinPrice     models.Price `json:"minPrice"`
	MaxPrice     models.Price `json:"maxPrice"`
	Search       string       `json:"q,omitempty"`
	Tag          string       `json:"tag,omitempty"`
	Sort         SortMode     `json:"sort"`
}

// DefaultCriteria returns the criteria a listing starts with
func DefaultCriteria() Criteria {
	return Criteria{
		Newness:  NewnessAny,
		MinPrice: DefaultMinPrice,
		MaxPrice: DefaultMaxPrice,
		Sort:     SortDefault,
	}
}

// Fingerprint is a short stable hash of the criteria. The page is not part of it.
func (c Criteria) Fingerprint() string {
	key := fmt.Sprintf("new=%s|disc=%t|min=%s|max=%s|q=%s|tag=%s|sort=%s",
		c.Newness, c.DiscountOnly, c.MinPrice, c.MaxPrice, c.Search, c.Tag, c.Sort)
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:12]
}

// Query is the serializable input of the listing pipeline: criteria plus
// page position. Setters return a copy and reset the page to 1 when a
// criterion actually changes.
type Query struct {
	Criteria Criteria `json:"criteria"`
	PageSize int      `json:"pageSize"`
	Page     int      `json:"page"`
}

// NewQuery returns a query on page 1 with default criteria
func NewQuery(pageSize int) Query {
	if pageSize <= 0 {
		pageSize = ShopPageSize
	}
	return Query{Criteria: DefaultCriteria(), PageSize: pageSize, Page: 1}
}

func (q Query) withCriteria(c Criteria) Query {
	if c != q.Criteria {
		q.Criteria = c
		q.Page = 1
	}
	return q
}

func (q Query) WithNewness(n Newness) Query {
	c := q.Criteria
	c.Newness = n
	return q.withCriteria(c)
}

func (q Query) WithDiscountOnly(on bool) Query {
	c := q.Criteria
	c.DiscountOnly = on
	return q.withCriteria(c)
}

func (q Query) WithPriceRange(min, max models.Price) Query {
	c := q.Criteria
	c.MinPrice, c.MaxPrice = min, max
	return q.withCriteria(c)
}

func (q Query) WithSearch(text string) Query {
	c := q.Criteria
	c.Search = text
	return q.withCriteria(c)
}

func (q Query) WithTag(tag string) Query {
	c := q.Criteria
	c.Tag = tag
	return q.withCriteria(c)
}

func (q Query) WithSort(mode SortMode) Query {
	c := q.Criteria
	c.Sort = mode
	return q.withCriteria(c)
}

// WithPage moves to another page. Pages below 1 are clamped.
func (q Query) WithPage(page int) Query {
	if page < 1 {
		page = 1
	}
	q.Page = page
	return q
}

// Resume applies the reset rule for a stateless client: when the fingerprint
// the client saw last differs from the current criteria, the page goes back to 1.
// An empty fingerprint means the client has no previous view.
func (q Query) Resume(previous string) Query {
	if previous != "" && previous != q.Criteria.Fingerprint() {
		q.Page = 1
	}
	return q
}
