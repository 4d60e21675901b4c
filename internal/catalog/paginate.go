package catalog

import (
	"storefront-service/internal/models"
)

// Page is one fixed-size window of a sequence
type Page struct {
	Items      []models.Product
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// Paginate returns the window at offset (page-1)*pageSize.
// An empty sequence has zero pages and page is clamped to 1. A page past the
// end keeps its number and has no items.
func Paginate(products []models.Product, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = ShopPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(products)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		page = 1
	}

	result := Page{
		Items:      []models.Product{},
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}

	// Compare page numbers before multiplying so huge pages cannot overflow.
	if page > totalPages {
		return result
	}
	offset := (page - 1) * pageSize
	end := offset + pageSize
	if end > total {
		end = total
	}
	result.Items = append(result.Items, products[offset:end]...)
	return result
}

// Pagination renders the page position in the shared response shape
func (p Page) Pagination() models.PaginationInfo {
	return models.PaginationInfo{
		Page:        p.Page,
		Limit:       p.PageSize,
		Total:       int64(p.Total),
		TotalPages:  p.TotalPages,
		HasNext:     p.Page < p.TotalPages,
		HasPrevious: p.Page > 1,
	}
}
