package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-service/internal/catalog"
	"storefront-service/internal/models"
)

// ProductListResponse is the body of the listing endpoints
type ProductListResponse struct {
	Success     bool                  `json:"success"`
	Data        []models.Product      `json:"data"`
	Pagination  models.PaginationInfo `json:"pagination"`
	Criteria    catalog.Criteria      `json:"criteria"`
	Fingerprint string                `json:"fingerprint"`
	Tags        []string              `json:"tags"`
	State       catalog.ViewState     `json:"state"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

// respondFetchFailed reports a CMS failure. The client may retry.
func respondFetchFailed(c *gin.Context, message string) {
	c.JSON(http.StatusBadGateway, models.ErrorResponse{
		Success:   false,
		Retryable: true,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error: models.Error{
			Code:    "FETCH_FAILED",
			Message: message,
		},
	})
}
