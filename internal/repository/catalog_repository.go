package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"storefront-service/internal/clients"
	"storefront-service/internal/models"
)

const (
	CatalogCacheTTL   = 2 * time.Minute
	catalogFetchLimit = 15 * time.Second
)

// ErrProductNotFound is returned when the product id matches no CMS document
var ErrProductNotFound = errors.New("product not found")

// Fetcher runs a CMS query. clients.CMSClient implements it.
type Fetcher interface {
	Fetch(ctx context.Context, query string, params map[string]interface{}) (json.RawMessage, error)
}

// CatalogRepository is the request cache in front of the CMS. Entries are
// keyed by query and params. Concurrent identical fetches share one CMS call,
// and failures are never cached.
type CatalogRepository struct {
	fetcher Fetcher
	cache   *cache.CacheLayer
	local   *ttlCache
	group   singleflight.Group
	ttl     time.Duration
	logger  *logrus.Entry
}

// NewCatalogRepository creates the repository. With a nil redis client the
// cache stays in process.
func NewCatalogRepository(fetcher Fetcher, redisClient *redis.Client, ttl time.Duration, logger *logrus.Entry) *CatalogRepository {
	if ttl <= 0 {
		ttl = CatalogCacheTTL
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	repo := &CatalogRepository{
		fetcher: fetcher,
		local:   newTTLCache(),
		ttl:     ttl,
		logger:  logger,
	}

	if redisClient != nil {
		repo.cache = cache.NewCacheLayerFromClient(redisClient, cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 1000,
			L1TTL:      30 * time.Second,
			DefaultTTL: ttl,
			KeyPrefix:  "tesseract:storefront:",
		})
	}

	return repo
}

// generateQueryCacheKey creates a deterministic cache key for a query and its params
func generateQueryCacheKey(query string, params map[string]interface{}) string {
	data, _ := json.Marshal(struct {
		Query  string                 `json:"q"`
		Params map[string]interface{} `json:"p"`
	}{query, params})
	hash := md5.Sum(data)
	return "catalog:" + hex.EncodeToString(hash[:])
}

// fetchRaw returns the raw CMS result for query+params through the cache.
func (r *CatalogRepository) fetchRaw(ctx context.Context, query string, params map[string]interface{}) (json.RawMessage, error) {
	key := generateQueryCacheKey(query, params)

	ch := r.group.DoChan(key, func() (interface{}, error) {
		// The shared fetch outlives any single caller.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogFetchLimit)
		defer cancel()
		return r.load(fetchCtx, key, query, params)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	}
}

func (r *CatalogRepository) load(ctx context.Context, key, query string, params map[string]interface{}) (json.RawMessage, error) {
	if r.cache != nil {
		var raw, fresh json.RawMessage
		var fetchErr error
		err := r.cache.GetOrSetJSON(ctx, key, &raw, r.ttl, func() (any, error) {
			result, err := r.fetcher.Fetch(ctx, query, params)
			if err != nil {
				fetchErr = err
				return nil, err
			}
			fresh = result
			return result, nil
		})
		switch {
		case fetchErr != nil:
			return nil, fetchErr
		case fresh != nil:
			// fetched during this call; a failed cache write does not matter
			if err != nil {
				r.logger.WithError(err).Warn("catalog cache write failed")
			}
			return fresh, nil
		case err == nil && len(raw) > 0:
			return raw, nil
		case err != nil:
			r.logger.WithError(err).Warn("catalog cache unavailable, fetching directly")
		}
	} else if raw, ok := r.local.get(key); ok {
		return raw, nil
	}

	raw, err := r.fetcher.Fetch(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if r.cache == nil {
		r.local.set(key, raw, r.ttl)
	}
	return raw, nil
}

// ListProducts returns every product
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	return r.listProducts(ctx, clients.ProductListQuery, nil)
}

// ListCategoryProducts returns the products whose category includes category
func (r *CatalogRepository) ListCategoryProducts(ctx context.Context, category string) ([]models.Product, error) {
	return r.listProducts(ctx, clients.CategoryProductQuery, map[string]interface{}{"category": category})
}

func (r *CatalogRepository) listProducts(ctx context.Context, query string, params map[string]interface{}) ([]models.Product, error) {
	raw, err := r.fetchRaw(ctx, query, params)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return []models.Product{}, nil
		}
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	var docs []models.ProductDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		product, err := doc.Normalize()
		if err != nil {
			r.logger.WithError(err).WithField("product_id", doc.ID).Warn("Ingesting product with price 0")
		}
		products = append(products, product)
	}
	return products, nil
}

// GetProductDetail returns one product with its detail fields
func (r *CatalogRepository) GetProductDetail(ctx context.Context, id string) (*models.ProductDetail, error) {
	raw, err := r.fetchRaw(ctx, clients.ProductDetailQuery, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}

	var doc models.ProductDetailDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", id, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}

	detail, err := doc.Normalize()
	if err != nil {
		r.logger.WithError(err).WithField("product_id", id).Warn("Ingesting product with price 0")
	}
	return &detail, nil
}

type ttlEntry struct {
	value     json.RawMessage
	expiresAt time.Time
}

// ttlCache is the in-process fallback used when Redis is not configured
type ttlCache struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry
}

func newTTLCache() *ttlCache {
	return &ttlCache{entries: make(map[string]ttlEntry)}
}

func (c *ttlCache) get(key string) (json.RawMessage, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (c *ttlCache) set(key string, value json.RawMessage, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = ttlEntry{value: value, expiresAt: now.Add(ttl)}
}
