package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when a single-document query matches nothing
var ErrNotFound = errors.New("document not found")

// GROQ queries issued by the storefront. The discount field keeps the CMS schema spelling.
const (
	productProjection = `{_id, title, shortDescription, dicountPercentage, price, oldPrice, isNew, productImage, freeDelivery, tags}`

	ProductListQuery     = `*[_type == "product"]` + productProjection
	CategoryProductQuery = `*[_type == "product" && $category in category]` + productProjection
	ProductDetailQuery   = `*[_type == "product" && _id == $id][0]{_id, title, price, oldPrice, dicountPercentage, isNew, freeDelivery, description, tags, SKU, category, rating, customerReview, productImage, productImage1, productImage2, productImage3, availableSizes, availableColors, defaultSize, defaultColor}`
)

// CMSOptions configures the headless CMS query API
type CMSOptions struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool
	// BaseURL overrides the host and version prefix, e.g. for a local proxy
	BaseURL string
	Timeout time.Duration
}

// CMSClient runs GROQ queries against the CMS HTTP API
type CMSClient struct {
	baseURL    string
	dataset    string
	token      string
	httpClient *http.Client
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

type queryError struct {
	Error struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
}

// NewCMSClient creates a new CMS client
func NewCMSClient(opts CMSOptions) *CMSClient {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		host := "api"
		if opts.UseCDN && opts.Token == "" {
			host = "apicdn"
		}
		version := strings.TrimPrefix(opts.APIVersion, "v")
		if version == "" {
			version = "2021-10-21"
		}
		baseURL = fmt.Sprintf("https://%s.%s.sanity.io/v%s", opts.ProjectID, host, version)
	}

	dataset := opts.Dataset
	if dataset == "" {
		dataset = "production"
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &CMSClient{
		baseURL: baseURL,
		dataset: dataset,
		token:   opts.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch runs query with params and returns the raw "result" value.
// A null result is returned as ErrNotFound.
func (c *CMSClient) Fetch(ctx context.Context, query string, params map[string]interface{}) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
	}

	endpoint := fmt.Sprintf("%s/data/query/%s?%s", c.baseURL, url.PathEscape(c.dataset), values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call cms: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cms response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var qe queryError
		message := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &qe) == nil {
			if qe.Error.Description != "" {
				message = qe.Error.Description
			} else if qe.Message != "" {
				message = qe.Message
			}
		}
		return nil, fmt.Errorf("cms returned status %d: %s", resp.StatusCode, message)
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("failed to decode cms response: %w", err)
	}

	result := bytes.TrimSpace(qr.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrNotFound
	}
	return qr.Result, nil
}
