package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-service/internal/models"
)

// Helper function to build a product list with increasing prices
func makeProducts(n int) []models.Product {
	products := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		products = append(products, models.Product{
			ID:    fmt.Sprintf("p-%02d", i),
			Title: fmt.Sprintf("Product %d", i),
			Price: models.Price(100 + i*200),
		})
	}
	return products
}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func sampleCatalog() []models.Product {
	return []models.Product{
		{ID: "a", Title: "Table Lamp", ShortDescription: "warm light", Price: 120, IsNew: true, DiscountPercentage: "10", Tags: []string{"lighting"}},
		{ID: "b", Title: "lamp-Shade", Price: 45, Tags: []string{"lighting", "Sale"}},
		{ID: "c", Title: "Oak Desk", ShortDescription: "pairs with any lamp", Price: 900, IsNew: true},
		{ID: "d", Title: "Armchair", Price: 450, DiscountPercentage: "25", Tags: []string{"living"}},
		{ID: "e", Title: "Rug", Price: 45},
		{ID: "f", Title: "Chandelier", Price: 12000, Tags: []string{"lighting"}},
	}
}

// ===========================================
// Query Tests
// ===========================================

func TestNewQuery_Defaults(t *testing.T) {
	q := NewQuery(CategoryPageSize)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, CategoryPageSize, q.PageSize)
	assert.Equal(t, NewnessAny, q.Criteria.Newness)
	assert.Equal(t, DefaultMinPrice, q.Criteria.MinPrice)
	assert.Equal(t, DefaultMaxPrice, q.Criteria.MaxPrice)
	assert.Equal(t, SortDefault, q.Criteria.Sort)

	assert.Equal(t, ShopPageSize, NewQuery(0).PageSize)
}

func TestQuery_CriterionChangeResetsPage(t *testing.T) {
	base := NewQuery(ShopPageSize).WithPage(3)

	changes := map[string]Query{
		"newness":  base.WithNewness(NewnessNew),
		"discount": base.WithDiscountOnly(true),
		"price":    base.WithPriceRange(10, 500),
		"search":   base.WithSearch("lamp"),
		"tag":      base.WithTag("sale"),
		"sort":     base.WithSort(SortPriceAsc),
	}
	for name, q := range changes {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, 1, q.Page)
			assert.Equal(t, 3, base.Page, "setters must not modify the receiver")
		})
	}
}

func TestQuery_SameValueKeepsPage(t *testing.T) {
	q := NewQuery(ShopPageSize).WithSearch("lamp").WithPage(2)

	assert.Equal(t, 2, q.WithSearch("lamp").Page)
	assert.Equal(t, 2, q.WithSort(SortDefault).Page)
}

func TestQuery_WithPageClamps(t *testing.T) {
	assert.Equal(t, 1, NewQuery(ShopPageSize).WithPage(0).Page)
	assert.Equal(t, 1, NewQuery(ShopPageSize).WithPage(-4).Page)
}

func TestQuery_ResumeResetsOnChangedFingerprint(t *testing.T) {
	previous := NewQuery(ShopPageSize)
	fingerprint := previous.Criteria.Fingerprint()

	sameCriteria := NewQuery(ShopPageSize).WithPage(4)
	assert.Equal(t, 4, sameCriteria.Resume(fingerprint).Page)
	assert.Equal(t, 4, sameCriteria.Resume("").Page)

	changed := NewQuery(ShopPageSize).WithTag("sale").WithPage(4)
	assert.Equal(t, 1, changed.Resume(fingerprint).Page)
}

func TestCriteria_FingerprintIgnoresPage(t *testing.T) {
	a := NewQuery(ShopPageSize).WithSearch("desk")
	b := a.WithPage(7)

	assert.Equal(t, a.Criteria.Fingerprint(), b.Criteria.Fingerprint())
	assert.Len(t, a.Criteria.Fingerprint(), 12)
	assert.NotEqual(t, a.Criteria.Fingerprint(), a.WithSearch("lamp").Criteria.Fingerprint())
}

func TestParseNewnessAndSortMode(t *testing.T) {
	assert.Equal(t, NewnessNew, ParseNewness("true"))
	assert.Equal(t, NewnessNotNew, ParseNewness("FALSE"))
	assert.Equal(t, NewnessAny, ParseNewness(""))
	assert.Equal(t, NewnessAny, ParseNewness("maybe"))

	assert.Equal(t, SortPriceAsc, ParseSortMode("price-asc"))
	assert.Equal(t, SortPriceDesc, ParseSortMode(" Price-Desc "))
	assert.Equal(t, SortDefault, ParseSortMode("popularity"))
}

// ===========================================
// Filter Tests
// ===========================================

func TestFilter_DiscountOnly(t *testing.T) {
	c := DefaultCriteria()
	c.DiscountOnly = true

	got := Filter(sampleCatalog(), c)

	assert.Equal(t, []string{"a", "d"}, ids(got))
}

func TestFilter_SearchMatchesTitleOnly(t *testing.T) {
	c := DefaultCriteria()
	c.Search = "lamp"

	got := Filter(sampleCatalog(), c)

	// "Oak Desk" mentions lamp only in its description
	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestFilter_UnknownTagIsEmptyNotError(t *testing.T) {
	c := DefaultCriteria()
	c.Tag = "sale"

	got := Filter(sampleCatalog(), c)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilter_TagIsCaseSensitive(t *testing.T) {
	c := DefaultCriteria()
	c.Tag = "Sale"

	assert.Equal(t, []string{"b"}, ids(Filter(sampleCatalog(), c)))
}

func TestFilter_Newness(t *testing.T) {
	c := DefaultCriteria()
	c.Newness = NewnessNew
	assert.Equal(t, []string{"a", "c"}, ids(Filter(sampleCatalog(), c)))

	c.Newness = NewnessNotNew
	assert.Equal(t, []string{"b", "d", "e"}, ids(Filter(sampleCatalog(), c)))
}

func TestFilter_MissingIsNewCountsAsNotNew(t *testing.T) {
	var docs []models.ProductDocument
	require.NoError(t, json.Unmarshal([]byte(`[
		{"_id": "flagged", "price": "5", "isNew": true},
		{"_id": "unflagged", "price": "5"},
		{"_id": "null", "price": "5", "isNew": null}
	]`), &docs))
	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.Normalize()
		require.NoError(t, err)
		products = append(products, p)
	}

	c := DefaultCriteria()
	c.Newness = NewnessNotNew
	assert.Equal(t, []string{"unflagged", "null"}, ids(Filter(products, c)))

	c.Newness = NewnessNew
	assert.Equal(t, []string{"flagged"}, ids(Filter(products, c)))
}

func TestFilter_PriceRangeInclusiveAndAlwaysActive(t *testing.T) {
	// default range drops the 12000 chandelier
	assert.NotContains(t, ids(Filter(sampleCatalog(), DefaultCriteria())), "f")

	c := DefaultCriteria()
	c.MinPrice, c.MaxPrice = 45, 120
	assert.Equal(t, []string{"a", "b", "e"}, ids(Filter(sampleCatalog(), c)))

	c.MinPrice, c.MaxPrice = 500, 100
	assert.Empty(t, Filter(sampleCatalog(), c))
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	products := sampleCatalog()
	before := ids(products)

	c := DefaultCriteria()
	c.Search = "lamp"
	c.Sort = SortPriceAsc
	_ = Sort(Filter(products, c), c.Sort)

	assert.Equal(t, before, ids(products))
}

func TestFilter_SubsetProperty(t *testing.T) {
	products := sampleCatalog()
	criteria := []Criteria{DefaultCriteria()}
	for _, n := range []Newness{NewnessAny, NewnessNew, NewnessNotNew} {
		for _, disc := range []bool{false, true} {
			for _, search := range []string{"", "lamp", "RUG"} {
				for _, tag := range []string{"", "lighting", "sale"} {
					c := DefaultCriteria()
					c.Newness, c.DiscountOnly, c.Search, c.Tag = n, disc, search, tag
					criteria = append(criteria, c)
				}
			}
		}
	}

	for _, c := range criteria {
		kept := map[string]bool{}
		for _, p := range Filter(products, c) {
			kept[p.ID] = true
			assert.True(t, c.Matches(p), "kept %s must satisfy %+v", p.ID, c)
		}
		for _, p := range products {
			if !kept[p.ID] {
				assert.False(t, c.Matches(p), "dropped %s must violate %+v", p.ID, c)
			}
		}
	}
}

// ===========================================
// Sort Tests
// ===========================================

func TestSort_AscDescReversedForDistinctPrices(t *testing.T) {
	products := makeProducts(8)

	asc := ids(Sort(products, SortPriceAsc))
	desc := ids(Sort(products, SortPriceDesc))

	require.Len(t, desc, len(asc))
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}
}

func TestSort_StableForTies(t *testing.T) {
	products := []models.Product{
		{ID: "x1", Price: 50},
		{ID: "y", Price: 10},
		{ID: "x2", Price: 50},
		{ID: "z", Price: 99},
		{ID: "x3", Price: 50},
	}

	assert.Equal(t, []string{"y", "x1", "x2", "x3", "z"}, ids(Sort(products, SortPriceAsc)))
	assert.Equal(t, []string{"z", "x1", "x2", "x3", "y"}, ids(Sort(products, SortPriceDesc)))
	assert.Equal(t, ids(products), ids(Sort(products, SortDefault)))
}

// ===========================================
// Pagination Tests
// ===========================================

func TestPaginate_TwentyFiveItemsPageSizeTen(t *testing.T) {
	products := makeProducts(25)

	first := Paginate(products, 1, 10)
	last := Paginate(products, 3, 10)

	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, ids(products[0:10]), ids(first.Items))
	assert.Equal(t, ids(products[20:25]), ids(last.Items))
	assert.Len(t, last.Items, 5)
	assert.False(t, last.Pagination().HasNext)
	assert.True(t, last.Pagination().HasPrevious)
}

func TestPaginate_ConcatenationReproducesSequence(t *testing.T) {
	for _, size := range []int{1, 3, 7, 10, 16, 40} {
		products := makeProducts(23)
		first := Paginate(products, 1, size)

		var all []models.Product
		for page := 1; page <= first.TotalPages; page++ {
			p := Paginate(products, page, size)
			if page == first.TotalPages {
				assert.GreaterOrEqual(t, len(p.Items), 1)
				assert.LessOrEqual(t, len(p.Items), size)
			}
			all = append(all, p.Items...)
		}
		assert.Equal(t, ids(products), ids(all), "page size %d", size)
	}
}

func TestPaginate_EmptyList(t *testing.T) {
	p := Paginate(nil, 5, 10)

	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, 1, p.Page)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.False(t, p.Pagination().HasNext)
	assert.False(t, p.Pagination().HasPrevious)
}

func TestPaginate_PastTheEnd(t *testing.T) {
	p := Paginate(makeProducts(5), 4, 10)

	assert.Equal(t, 4, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
}

func TestPaginate_HugePageNumbers(t *testing.T) {
	products := makeProducts(25)

	for _, page := range []int{math.MaxInt, 1<<60 + 1} {
		p := Paginate(products, page, 16)

		assert.Equal(t, page, p.Page)
		assert.Equal(t, 2, p.TotalPages)
		assert.Empty(t, p.Items, "page %d", page)
	}

	view := NewStore(products).View(NewQuery(16).WithPage(math.MaxInt))
	assert.Empty(t, view.Products)
	assert.Equal(t, math.MaxInt, view.Pagination.Page)
	assert.False(t, view.Pagination.HasNext)
}

// ===========================================
// Store Tests
// ===========================================

func TestStore_TagsInFirstSeenOrder(t *testing.T) {
	store := NewStore(sampleCatalog())

	assert.Equal(t, []string{"lighting", "Sale", "living"}, store.Tags())
}

func TestStore_ViewStates(t *testing.T) {
	store := NewStore(sampleCatalog())

	ready := store.View(NewQuery(CategoryPageSize))
	assert.Equal(t, StateReady, ready.State)
	assert.Len(t, ready.Products, 5)
	assert.Equal(t, ready.Criteria.Fingerprint(), ready.Fingerprint)

	empty := store.View(NewQuery(CategoryPageSize).WithTag("sale"))
	assert.Equal(t, StateEmpty, empty.State)
	assert.Empty(t, empty.Products)
	assert.Equal(t, 0, empty.Pagination.TotalPages)
}

func TestStore_ViewResetsPageWhenCriteriaChange(t *testing.T) {
	store := NewStore(makeProducts(40))
	q := NewQuery(CategoryPageSize).WithPage(3)

	assert.Equal(t, 3, store.View(q).Pagination.Page)

	// a wider range still has 4 pages, but the page returns to 1
	q = q.WithPriceRange(0, 100000)
	view := store.View(q)
	assert.Equal(t, 1, view.Pagination.Page)
	assert.Equal(t, 4, view.Pagination.TotalPages)
}

func TestStore_Find(t *testing.T) {
	store := NewStore(sampleCatalog())

	p, ok := store.Find("d")
	assert.True(t, ok)
	assert.Equal(t, "Armchair", p.Title)

	_, ok = store.Find("missing")
	assert.False(t, ok)
}
