package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is one physical unit. A non-nil OrderID means the unit belongs to that order.
type Item struct {
	ID        int64      `json:"id"`
	ProductID int64      `json:"product_id"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (i Item) Claimed() bool {
	return i.OrderID != nil
}

// Order owns a set of items. Its quantity is always derived from that set.
type Order struct {
	ID         uuid.UUID  `json:"id"`
	ProductID  int64      `json:"product_id"`
	Email      string     `json:"email"`
	Items      []Item     `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

func (o *Order) Quantity() int {
	return len(o.Items)
}

func (o *Order) ItemIDs() []int64 {
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ID)
	}

	return ids
}

type OrderResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID int64     `json:"product_id"`
	Email     string    `json:"email"`
	Quantity  int       `json:"quantity"`
	ItemIDs   []int64   `json:"item_ids"`
	CreatedAt time.Time `json:"created_at"`
}

func (o *Order) Response() OrderResponse {
	return OrderResponse{
		ID:        o.ID,
		ProductID: o.ProductID,
		Email:     o.Email,
		Quantity:  o.Quantity(),
		ItemIDs:   o.ItemIDs(),
		CreatedAt: o.CreatedAt,
	}
}

type CheckoutRequest struct {
	Email        string `json:"email" validate:"required,email"`
	PaymentToken string `json:"payment_token" validate:"required"`
}

type CheckoutResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int64           `json:"total"`
}
