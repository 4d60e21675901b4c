package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSONB is a custom type for PostgreSQL JSONB fields
type JSONB json.RawMessage

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = JSONB(append([]byte(nil), v...))
		return nil
	case string:
		*j = JSONB([]byte(v))
		return nil
	default:
		return nil
	}
}

// LineItem is a cart or wishlist entry: a product with quantity and the selected variant
type LineItem struct {
	ID            uuid.UUID `json:"id"`
	ProductID     string    `json:"productId" binding:"required"`
	Title         string    `json:"title"`
	Price         Price     `json:"price"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Quantity      int       `json:"quantity"`
	SelectedSize  string    `json:"selectedSize,omitempty"`
	SelectedColor string    `json:"selectedColor,omitempty"`
	ClickID       string    `json:"clickId,omitempty"`
	AddedAt       time.Time `json:"addedAt"`
}

// Subtotal returns price times quantity
func (i LineItem) Subtotal() float64 {
	return i.Price.Float64() * float64(i.Quantity)
}

// CartSnapshot is the durable whole-value record of one cart or wishlist.
// Items are always read and written as a single array.
type CartSnapshot struct {
	CartKey   string    `json:"cartKey" gorm:"column:cart_key;type:varchar(255);primaryKey"`
	Items     JSONB     `json:"items" gorm:"type:jsonb;default:'[]'"`
	ItemCount int       `json:"itemCount" gorm:"default:0"`
	Subtotal  float64   `json:"subtotal" gorm:"type:decimal(12,2);default:0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the CartSnapshot model
func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}

// NotificationType classifies a transient user-facing notification
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
)

// Notification is the transient message every cart and wishlist side effect reports
type Notification struct {
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
}

// AddToCartRequest is the body of POST /cart/items
type AddToCartRequest struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	SelectedSize  string `json:"selectedSize,omitempty"`
	SelectedColor string `json:"selectedColor,omitempty"`
	ClickID       string `json:"clickId,omitempty"`
	ReturnURL     string `json:"returnUrl,omitempty"`
}

// AddToWishlistRequest is the body of POST /wishlist/items
type AddToWishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
	ClickID   string `json:"clickId,omitempty"`
}

// ReplaceCartRequest replaces the whole cart
type ReplaceCartRequest struct {
	Items []LineItem `json:"items" binding:"required,dive"`
}

// CartResponse is returned by every cart and wishlist endpoint
type CartResponse struct {
	Success      bool          `json:"success"`
	Items        []LineItem    `json:"items"`
	ItemCount    int           `json:"itemCount"`
	Subtotal     float64       `json:"subtotal"`
	Notification *Notification `json:"notification,omitempty"`
	RedirectURL  string        `json:"redirectUrl,omitempty"`
}

// ShareLinks holds the product URL and an optional platform share URL
type ShareLinks struct {
	ProductURL string `json:"productUrl"`
	Platform   string `json:"platform"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	ShareURL   string `json:"shareUrl,omitempty"`
	Fallback   string `json:"fallback,omitempty"`
}
