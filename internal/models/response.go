package models

// JSON is a free-form object used in error details
type JSON map[string]interface{}

// Response types
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ProductDetailResponse struct {
	Success bool           `json:"success"`
	Data    *ProductDetail `json:"data"`
}

type ImageResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

type ShareResponse struct {
	Success bool       `json:"success"`
	Data    ShareLinks `json:"data"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details *JSON  `json:"details,omitempty"`
}
