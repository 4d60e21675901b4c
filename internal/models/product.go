package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPrice is returned when a CMS price cannot be read as a non-negative number.
var ErrInvalidPrice = errors.New("invalid price")

// Price is a validated, non-negative product price.
type Price float64

// ParsePrice converts CMS price text into a Price. Text that is empty, not a
// number, or negative yields 0 and false.
func ParsePrice(text string) (Price, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, false
	}
	return Price(value), true
}

// Float64 returns the price as a float64
func (p Price) Float64() float64 {
	return float64(p)
}

// String formats the price without trailing zeros
func (p Price) String() string {
	return strconv.FormatFloat(float64(p), 'f', -1, 64)
}

// RawText holds a CMS scalar that may arrive as a JSON string, a number or null.
// Numbers keep their literal text. Arrays and objects decode as empty text so one
// malformed document cannot fail a whole listing.
type RawText string

func (t *RawText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = RawText(s)
		return nil
	}
	if data[0] == 't' || data[0] == 'f' {
		*t = RawText(data)
		return nil
	}
	if data[0] == '[' || data[0] == '{' {
		*t = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unsupported value %s: %w", string(data), err)
	}
	*t = RawText(n.String())
	return nil
}

// ImageRef is an opaque CMS image reference. It decodes from a plain string or
// from an image object carrying an asset reference.
type ImageRef string

func (r *ImageRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ImageRef(s)
		return nil
	}

	var obj struct {
		Ref   string `json:"_ref"`
		URL   string `json:"url"`
		Asset *struct {
			Ref string `json:"_ref"`
			URL string `json:"url"`
		} `json:"asset"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.Asset != nil && obj.Asset.Ref != "":
		*r = ImageRef(obj.Asset.Ref)
	case obj.Asset != nil && obj.Asset.URL != "":
		*r = ImageRef(obj.Asset.URL)
	case obj.Ref != "":
		*r = ImageRef(obj.Ref)
	default:
		*r = ImageRef(obj.URL)
	}
	return nil
}

// StringList decodes either a single string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// ProductDocument is a product as projected by the CMS listing query.
// The discount field keeps the CMS schema spelling.
type ProductDocument struct {
	ID                 string     `json:"_id"`
	Title              string     `json:"title"`
	ShortDescription   string     `json:"shortDescription"`
	Price              RawText    `json:"price"`
	OldPrice           RawText    `json:"oldPrice"`
	DiscountPercentage RawText    `json:"dicountPercentage"`
	IsNew              *bool      `json:"isNew"`
	ProductImage       ImageRef   `json:"productImage"`
	FreeDelivery       *bool      `json:"freeDelivery"`
	Tags               StringList `json:"tags"`
}

// Product is a catalog record after ingestion. Price is numeric from here on.
type Product struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	ShortDescription   string   `json:"shortDescription"`
	Price              Price    `json:"price"`
	OldPrice           *Price   `json:"oldPrice,omitempty"`
	DiscountPercentage string   `json:"discountPercentage,omitempty"`
	IsNew              bool     `json:"isNew"`
	ProductImage       ImageRef `json:"productImage"`
	ImageURL           string   `json:"imageUrl,omitempty"`
	FreeDelivery       bool     `json:"freeDelivery,omitempty"`
	Tags               []string `json:"tags,omitempty"`
}

// HasDiscount reports whether the CMS carried any discount value
func (p Product) HasDiscount() bool {
	return p.DiscountPercentage != ""
}

// HasTag reports whether the product carries exactly this tag
func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Normalize converts the document into a Product. An unreadable price is
// ingested as 0 and reported through ErrInvalidPrice; the product is still usable.
func (d ProductDocument) Normalize() (Product, error) {
	product := Product{
		ID:                 d.ID,
		Title:              d.Title,
		ShortDescription:   d.ShortDescription,
		DiscountPercentage: strings.TrimSpace(string(d.DiscountPercentage)),
		ProductImage:       d.ProductImage,
	}
	if d.IsNew != nil {
		product.IsNew = *d.IsNew
	}
	if d.FreeDelivery != nil {
		product.FreeDelivery = *d.FreeDelivery
	}
	if len(d.Tags) > 0 {
		product.Tags = append([]string(nil), d.Tags...)
	}
	if d.OldPrice != "" {
		if old, ok := ParsePrice(string(d.OldPrice)); ok {
			product.OldPrice = &old
		}
	}

	price, ok := ParsePrice(string(d.Price))
	product.Price = price
	if !ok {
		return product, fmt.Errorf("product %s price %q: %w", d.ID, string(d.Price), ErrInvalidPrice)
	}
	return product, nil
}

// ProductDetailDocument is a product as projected by the CMS detail query.
type ProductDetailDocument struct {
	ProductDocument
	Description     *string    `json:"description"`
	SKU             string     `json:"SKU"`
	Category        StringList `json:"category"`
	Rating          *float64   `json:"rating"`
	CustomerReview  *int       `json:"customerReview"`
	ProductImage1   ImageRef   `json:"productImage1"`
	ProductImage2   ImageRef   `json:"productImage2"`
	ProductImage3   ImageRef   `json:"productImage3"`
	AvailableSizes  []string   `json:"availableSizes"`
	AvailableColors []string   `json:"availableColors"`
	DefaultSize     string     `json:"defaultSize"`
	DefaultColor    string     `json:"defaultColor"`
}

// ProductDetail is the product detail page payload
type ProductDetail struct {
	Product
	Description     *string    `json:"description,omitempty"`
	SKU             string     `json:"sku,omitempty"`
	Category        []string   `json:"category,omitempty"`
	Rating          *float64   `json:"rating,omitempty"`
	CustomerReview  *int       `json:"customerReview,omitempty"`
	Images          []ImageRef `json:"images"`
	ImageURLs       []string   `json:"imageUrls,omitempty"`
	AvailableSizes  []string   `json:"availableSizes,omitempty"`
	AvailableColors []string   `json:"availableColors,omitempty"`
	DefaultSize     string     `json:"defaultSize,omitempty"`
	DefaultColor    string     `json:"defaultColor,omitempty"`
}

// Normalize converts the detail document, collecting the non-empty images in order.
func (d ProductDetailDocument) Normalize() (ProductDetail, error) {
	product, err := d.ProductDocument.Normalize()
	detail := ProductDetail{
		Product:         product,
		Description:     d.Description,
		SKU:             d.SKU,
		Category:        []string(d.Category),
		Rating:          d.Rating,
		CustomerReview:  d.CustomerReview,
		AvailableSizes:  d.AvailableSizes,
		AvailableColors: d.AvailableColors,
		DefaultSize:     d.DefaultSize,
		DefaultColor:    d.DefaultColor,
		Images:          make([]ImageRef, 0, 4),
	}
	for _, ref := range []ImageRef{d.ProductImage, d.ProductImage1, d.ProductImage2, d.ProductImage3} {
		if ref != "" {
			detail.Images = append(detail.Images, ref)
		}
	}
	return detail, err
}
