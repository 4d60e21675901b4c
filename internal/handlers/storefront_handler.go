package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"storefront-service/internal/catalog"
	"storefront-service/internal/clients"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
	"storefront-service/internal/services"
)

const maxPageSize = 100

// CatalogSource provides the product lists and details behind the storefront
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListCategoryProducts(ctx context.Context, category string) ([]models.Product, error)
	GetProductDetail(ctx context.Context, id string) (*models.ProductDetail, error)
}

// StorefrontHandler serves the public catalog endpoints
type StorefrontHandler struct {
	catalog CatalogSource
	images  clients.ImageResolver
	carts   *services.CartService
	logger  *logrus.Entry
}

func NewStorefrontHandler(source CatalogSource, images clients.ImageResolver, carts *services.CartService, logger *logrus.Entry) *StorefrontHandler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &StorefrontHandler{
		catalog: source,
		images:  images,
		carts:   carts,
		logger:  logger,
	}
}

// parseListingQuery reads the criteria from the query string. Invalid values
// fall back to their defaults.
func parseListingQuery(c *gin.Context, pageSize int) catalog.Query {
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit >= 1 && limit <= maxPageSize {
		pageSize = limit
	}

	q := catalog.NewQuery(pageSize).
		WithNewness(catalog.ParseNewness(c.Query("isNew"))).
		WithSearch(strings.TrimSpace(c.Query("q"))).
		WithTag(c.Query("tag")).
		WithSort(catalog.ParseSortMode(c.Query("sort")))

	if discounted, err := strconv.ParseBool(c.Query("discounted")); err == nil {
		q = q.WithDiscountOnly(discounted)
	}

	minPrice, maxPrice := catalog.DefaultMinPrice, catalog.DefaultMaxPrice
	if v, ok := models.ParsePrice(c.Query("minPrice")); ok {
		minPrice = v
	}
	if v, ok := models.ParsePrice(c.Query("maxPrice")); ok {
		maxPrice = v
	}
	q = q.WithPriceRange(minPrice, maxPrice)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	return q.WithPage(page).Resume(c.Query("fingerprint"))
}

func (h *StorefrontHandler) withImage(p models.Product) models.Product {
	if h.images != nil && p.ProductImage != "" && p.ImageURL == "" {
		if u, err := h.images.Resolve(p.ProductImage, 0, 0); err == nil {
			p.ImageURL = u
		}
	}
	return p
}

func (h *StorefrontHandler) renderListing(c *gin.Context, products []models.Product, q catalog.Query) {
	view := catalog.NewStore(products).View(q)
	for i := range view.Products {
		view.Products[i] = h.withImage(view.Products[i])
	}

	c.JSON(http.StatusOK, ProductListResponse{
		Success:     true,
		Data:        view.Products,
		Pagination:  view.Pagination,
		Criteria:    view.Criteria,
		Fingerprint: view.Fingerprint,
		Tags:        view.Tags,
		State:       view.State,
	})
}

// GetProducts returns the shop listing
// @Summary List storefront products
// @Description Filter, sort and paginate the product catalog (16 per page)
// @Tags Storefront
// @Produce json
// @Param isNew query bool false "New arrivals only / exclude new arrivals"
// @Param discounted query bool false "Discounted products only"
// @Param minPrice query number false "Minimum price" default(0)
// @Param maxPrice query number false "Maximum price" default(10000)
// @Param q query string false "Title search"
// @Param tag query string false "Tag"
// @Param sort query string false "default, price-asc or price-desc"
// @Param page query int false "Page number" default(1)
// @Param fingerprint query string false "Fingerprint of the previous response"
// @Success 200 {object} ProductListResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /storefront/products [get]
func (h *StorefrontHandler) GetProducts(c *gin.Context) {
	q := parseListingQuery(c, catalog.ShopPageSize)

	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch products")
		respondFetchFailed(c, "Failed to retrieve products")
		return
	}

	h.renderListing(c, products, q)
}

// GetCategoryProducts returns the listing of one category
// @Summary List products of a category
// @Description Same filters as the shop listing, 10 per page
// @Tags Storefront
// @Produce json
// @Param category path string true "Category"
// @Success 200 {object} ProductListResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /storefront/categories/{category}/products [get]
func (h *StorefrontHandler) GetCategoryProducts(c *gin.Context) {
	category := c.Param("category")
	q := parseListingQuery(c, catalog.CategoryPageSize)

	products, err := h.catalog.ListCategoryProducts(c.Request.Context(), category)
	if err != nil {
		h.logger.WithError(err).WithField("category", category).Error("Failed to fetch category products")
		respondFetchFailed(c, "Failed to retrieve products")
		return
	}

	h.renderListing(c, products, q)
}

// GetProduct returns the product detail
// @Summary Get product detail
// @Tags Storefront
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.ProductDetailResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /storefront/products/{id} [get]
func (h *StorefrontHandler) GetProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Product ID is missing.")
		return
	}

	detail, err := h.catalog.GetProductDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found.")
			return
		}
		h.logger.WithError(err).WithField("product_id", id).Error("Failed to fetch product")
		respondFetchFailed(c, "Failed to fetch product data.")
		return
	}

	if h.images != nil {
		detail.ImageURLs = clients.ResolveAll(h.images, detail.Images, 0, 0)
		if len(detail.ImageURLs) > 0 {
			detail.ImageURL = detail.ImageURLs[0]
		}
	}

	c.JSON(http.StatusOK, models.ProductDetailResponse{
		Success: true,
		Data:    detail,
	})
}

// ShareProduct returns the share links of a product
// @Summary Share links
// @Tags Storefront
// @Produce json
// @Param id path string true "Product ID"
// @Param platform query string false "facebook, twitter or instagram; anything else falls back to clipboard"
// @Success 200 {object} models.ShareResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/products/{id}/share [get]
func (h *StorefrontHandler) ShareProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	if _, err := h.catalog.GetProductDetail(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found.")
			return
		}
		h.logger.WithError(err).WithField("product_id", id).Error("Failed to fetch product for sharing")
		respondFetchFailed(c, "Failed to share product.")
		return
	}

	c.JSON(http.StatusOK, models.ShareResponse{
		Success: true,
		Data:    h.carts.ShareLinks(id, c.Query("platform")),
	})
}

// ResolveImage maps an image reference to a URL
// @Summary Resolve image
// @Tags Storefront
// @Produce json
// @Param ref path string true "Image reference"
// @Param w query int false "Width"
// @Param h query int false "Height"
// @Success 200 {object} models.ImageResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /storefront/images/{ref} [get]
func (h *StorefrontHandler) ResolveImage(c *gin.Context) {
	width, _ := strconv.Atoi(c.Query("w"))
	height, _ := strconv.Atoi(c.Query("h"))
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	if h.images == nil {
		respondError(c, http.StatusServiceUnavailable, "IMAGES_DISABLED", "Image resolution is not configured")
		return
	}

	resolved, err := h.images.Resolve(models.ImageRef(c.Param("ref")), width, height)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_IMAGE_REF", err.Error())
		return
	}

	c.JSON(http.StatusOK, models.ImageResponse{Success: true, URL: resolved})
}

// ExportProducts writes every filtered and sorted product to an XLSX workbook
// @Summary Export products
// @Description Same filters as the listing; all pages are exported
// @Tags Storefront
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param category query string false "Restrict to a category"
// @Success 200 {file} file
// @Failure 502 {object} models.ErrorResponse
// @Router /storefront/products/export [get]
func (h *StorefrontHandler) ExportProducts(c *gin.Context) {
	q := parseListingQuery(c, catalog.ShopPageSize)
	category := strings.TrimSpace(c.Query("category"))

	var products []models.Product
	var err error
	if category != "" {
		products, err = h.catalog.ListCategoryProducts(c.Request.Context(), category)
	} else {
		products, err = h.catalog.ListProducts(c.Request.Context())
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch products for export")
		respondFetchFailed(c, "Failed to retrieve products")
		return
	}

	sequence := catalog.NewStore(products).Sequence(q.Criteria)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	headers := []string{"ID", "Title", "Price", "Old Price", "Discount", "New", "Free Delivery", "Tags", "Image"}
	widths := []float64{28, 36, 12, 12, 12, 8, 14, 30, 60}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, widths[i])
	}

	for r, p := range sequence {
		p = h.withImage(p)
		var oldPrice interface{}
		if p.OldPrice != nil {
			oldPrice = p.OldPrice.Float64()
		}
		row := []interface{}{
			p.ID, p.Title, p.Price.Float64(), oldPrice, p.DiscountPercentage,
			p.IsNew, p.FreeDelivery, strings.Join(p.Tags, ", "), p.ImageURL,
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			h.logger.WithError(err).Error("Failed to write export row")
			respondError(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to build export")
			return
		}
	}

	filename := "products.xlsx"
	if category != "" {
		filename = fmt.Sprintf("products_%s.xlsx", sanitizeFilename(category))
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("X-Total-Count", strconv.Itoa(len(sequence)))

	if err := f.Write(c.Writer); err != nil {
		h.logger.WithError(err).Error("Failed to write export")
	}
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
