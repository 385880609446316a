package catalog

import "storefront/internal/models"

// Picker is the product page quantity selector. It stays within [1, stock];
// with no stock it can neither grow nor be purchased.
type Picker struct {
	Quantity int `json:"quantity"`
	Stock    int `json:"stock"`
}

// NewPicker starts a picker at quantity 1 for the product
func NewPicker(p models.Product) Picker {
	return Picker{Quantity: 1, Stock: p.Stock}
}

// Clamp bounds quantity to [1, stock]
func Clamp(quantity, stock int) int {
	if quantity > stock {
		quantity = stock
	}
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}

func (q Picker) CanIncrement() bool { return q.Quantity < q.Stock }
func (q Picker) CanDecrement() bool { return q.Quantity > 1 }
func (q Picker) CanPurchase() bool  { return q.Stock > 0 }

// Set jumps to quantity, clamped
func (q Picker) Set(quantity int) Picker {
	q.Quantity = Clamp(quantity, q.Stock)
	return q
}
