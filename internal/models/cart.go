package models

import (
	"github.com/google/uuid"
)

// CartContext selects which cart an operation works on: a guest session or an authenticated user.
type CartContext struct {
	SessionID string
	UserID    uuid.UUID
}

func GuestContext(sessionID string) CartContext {
	return CartContext{SessionID: sessionID}
}

func UserContext(userID uuid.UUID) CartContext {
	return CartContext{UserID: userID}
}

func (c CartContext) IsGuest() bool {
	return c.UserID == uuid.Nil
}

func (c CartContext) Key() string {
	if c.IsGuest() {
		return c.SessionID
	}

	return c.UserID.String()
}

type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Cart keeps lines in insertion order with at most one line per product.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func NewCart() *Cart {
	return &Cart{Lines: []CartLine{}}
}

func (c *Cart) index(productID int64) int {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i
		}
	}

	return -1
}

// Add increases the product's quantity by requested and clamps the result to remaining.
// It returns the stored quantity afterwards; zero means the product is not in the cart.
func (c *Cart) Add(productID int64, requested, remaining int) int {
	i := c.index(productID)
	if requested <= 0 {
		if i < 0 {
			return 0
		}
		return c.Lines[i].Quantity
	}

	if i < 0 {
		c.Lines = append(c.Lines, CartLine{ProductID: productID})
		i = len(c.Lines) - 1
	}

	c.Lines[i].Quantity = min(c.Lines[i].Quantity+requested, max(remaining, 0))
	quantity := c.Lines[i].Quantity

	if quantity == 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}

	return quantity
}

func (c *Cart) FindProduct(productID int64) (CartLine, bool) {
	i := c.index(productID)
	if i < 0 {
		return CartLine{}, false
	}

	return c.Lines[i], true
}

// Merge folds other into c by product id, summing quantities, then re-clamps every line.
// Lines already in c keep their position; new products are appended in other's order.
func (c *Cart) Merge(other *Cart, remaining func(productID int64) int) {
	if other != nil {
		for _, line := range other.Lines {
			if line.Quantity <= 0 {
				continue
			}
			if i := c.index(line.ProductID); i >= 0 {
				c.Lines[i].Quantity += line.Quantity
			} else {
				c.Lines = append(c.Lines, line)
			}
		}
	}

	kept := c.Lines[:0]
	for _, line := range c.Lines {
		line.Quantity = min(line.Quantity, max(remaining(line.ProductID), 0))
		if line.Quantity > 0 {
			kept = append(kept, line)
		}
	}
	c.Lines = kept
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}

	return total
}

type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type CartResponse struct {
	Lines         []CartLine `json:"lines"`
	TotalQuantity int        `json:"total_quantity"`
}

func (c *Cart) Response() CartResponse {
	lines := c.Lines
	if lines == nil {
		lines = []CartLine{}
	}

	return CartResponse{Lines: lines, TotalQuantity: c.TotalQuantity()}
}

// AddToCartResponse reports the stored quantity, which is lower than requested when stock ran short.
type AddToCartResponse struct {
	ProductID int64        `json:"product_id"`
	Requested int          `json:"requested"`
	Quantity  int          `json:"quantity"`
	Cart      CartResponse `json:"cart"`
}
