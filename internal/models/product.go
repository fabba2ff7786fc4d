package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPrice = errors.New("price must be a non-negative decimal with at most two fraction digits")

// ProductModel is the catalog entry. Price is stored in cents.
type ProductModel struct {
	ID          int64      `json:"id"`
	BrandID     int64      `json:"brand_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Published   bool       `json:"published"`
	Price       int64      `json:"price"`
	ImagePath   string     `json:"image_path,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// AutoUnpublished marks a model the ledger took off sale for lack of stock.
	// It goes back on sale as soon as stock returns.
	AutoUnpublished bool `json:"-"`
}

// Trashed reports whether the model has been removed from sale.
func (m *ProductModel) Trashed() bool {
	return m.DeletedAt != nil
}

// Product is the sellable view of a model together with the stock observed when it was loaded.
type Product struct {
	model     *ProductModel
	remaining int
}

func NewProduct(model *ProductModel, remaining int) *Product {
	return &Product{model: model, remaining: remaining}
}

func (p *Product) Model() *ProductModel { return p.model }
func (p *Product) ID() int64            { return p.model.ID }
func (p *Product) Name() string         { return p.model.Name }
func (p *Product) Description() string  { return p.model.Description }
func (p *Product) Published() bool      { return p.model.Published }
func (p *Product) BrandID() int64       { return p.model.BrandID }
func (p *Product) Price() int64         { return p.model.Price }
func (p *Product) ItemsRemaining() int  { return p.remaining }

func (p *Product) PriceWithDecimals() string {
	return FormatPrice(p.model.Price)
}

// Available reports whether the product can be sold right now.
func (p *Product) Available() bool {
	return p.model.Published && !p.model.Trashed() && p.remaining > 0
}

func (p *Product) Response() ProductResponse {
	return ProductResponse{
		ID:             p.model.ID,
		BrandID:        p.model.BrandID,
		Name:           p.model.Name,
		Description:    p.model.Description,
		Published:      p.model.Published,
		Price:          p.model.Price,
		PriceFormatted: p.PriceWithDecimals(),
		ItemsRemaining: p.remaining,
	}
}

// FormatPrice renders cents as a decimal string, 6750 -> "67.50".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParsePrice converts a decimal string into cents without going through floating point, "700.50" -> 70050.
func ParsePrice(value string) (int64, error) {
	value = strings.TrimSpace(value)

	whole, frac, hasFrac := strings.Cut(value, ".")
	if whole == "" && !hasFrac {
		return 0, ErrInvalidPrice
	}
	if whole == "" {
		whole = "0"
	}

	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, ErrInvalidPrice
	}

	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, ErrInvalidPrice
	}

	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > (math.MaxInt64-99)/100 {
		return 0, ErrInvalidPrice
	}

	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}

	return units*100 + cents, nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}

type CreateProductRequest struct {
	BrandID      int64  `json:"brand_id" validate:"required"`
	Name         string `json:"name" validate:"required,min=1,max=200"`
	Description  string `json:"description" validate:"required"`
	Price        string `json:"price" validate:"required,numeric"`
	Published    *bool  `json:"published,omitempty"`
	ItemQuantity *int   `json:"item_quantity" validate:"required,gte=0"`
}

type AddItemsRequest struct {
	Count int `json:"count" validate:"required,min=1"`
}

// StockResponse counts unclaimed items whether or not the model is on sale.
type StockResponse struct {
	ProductID      int64 `json:"product_id"`
	ItemsRemaining int   `json:"items_remaining"`
}

type ProductResponse struct {
	ID             int64  `json:"id"`
	BrandID        int64  `json:"brand_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Published      bool   `json:"published"`
	Price          int64  `json:"price"`
	PriceFormatted string `json:"price_formatted"`
	ItemsRemaining int    `json:"items_remaining"`
}
