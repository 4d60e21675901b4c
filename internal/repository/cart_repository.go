package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-service/internal/models"
)

// CartStore persists a whole cart or wishlist under one key.
// Every write replaces the stored array.
type CartStore interface {
	Load(ctx context.Context, key string) ([]models.LineItem, error)
	Save(ctx context.Context, key string, items []models.LineItem) error
	Delete(ctx context.Context, key string) error
}

// CartKey is the storage key of an owner's cart
func CartKey(owner string) string {
	return "cart:" + owner
}

// WishlistKey is the storage key of an owner's wishlist
func WishlistKey(owner string) string {
	return "wishlist:" + owner
}

func summarize(items []models.LineItem) (int, float64) {
	count := 0
	subtotal := 0.0
	for _, item := range items {
		count += item.Quantity
		subtotal += item.Subtotal()
	}
	return count, subtotal
}

// GormCartStore keeps snapshots in the cart_snapshots table
type GormCartStore struct {
	db *gorm.DB
}

func NewGormCartStore(db *gorm.DB) *GormCartStore {
	return &GormCartStore{db: db}
}

// Load returns the stored items, or an empty list when the key has none
func (s *GormCartStore) Load(ctx context.Context, key string) ([]models.LineItem, error) {
	var snapshot models.CartSnapshot
	err := s.db.WithContext(ctx).Where("cart_key = ?", key).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.LineItem{}, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}

	items := []models.LineItem{}
	if len(snapshot.Items) > 0 {
		if err := json.Unmarshal(snapshot.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
	}
	return items, nil
}

// Save upserts the snapshot for key
func (s *GormCartStore) Save(ctx context.Context, key string, items []models.LineItem) error {
	if items == nil {
		items = []models.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	count, subtotal := summarize(items)
	snapshot := &models.CartSnapshot{
		CartKey:   key,
		Items:     models.JSONB(data),
		ItemCount: count,
		Subtotal:  subtotal,
		UpdatedAt: time.Now(),
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "item_count", "subtotal", "updated_at"}),
	}).Create(snapshot).Error
}

// Delete removes the snapshot for key
func (s *GormCartStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("cart_key = ?", key).Delete(&models.CartSnapshot{}).Error
}

// MemoryCartStore keeps serialized snapshots in process. Used when no
// database is configured and in tests.
type MemoryCartStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{data: make(map[string][]byte)}
}

func (s *MemoryCartStore) Load(ctx context.Context, key string) ([]models.LineItem, error) {
	s.mu.RLock()
	data, ok := s.data[key]
	s.mu.RUnlock()

	items := []models.LineItem{}
	if !ok {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return items, nil
}

func (s *MemoryCartStore) Save(ctx context.Context, key string, items []models.LineItem) error {
	if items == nil {
		items = []models.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	s.mu.Lock()
	s.data[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryCartStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
