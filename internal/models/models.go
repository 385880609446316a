package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ID is an identifier issued by the backend. The API emits numbers but
// identifiers are opaque to the storefront, so both numbers and strings decode.
type ID string

func (id ID) String() string { return string(id) }

// MarshalJSON writes numeric identifiers back as JSON numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if id != "" && json.Valid([]byte(id)) && isDigits(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Category is one of the fixed catalog categories
type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryAccessories Category = "Accessories"
	CategoryStorage     Category = "Storage"
)

// Product represents a catalog entry as returned by the backend
type Product struct {
	ID          ID              `json:"id"`
	OwnerID     ID              `json:"owner_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Rating      float64         `json:"rating"`
	Reviews     int             `json:"reviews"`
	Stock       int             `json:"stock"`
	Category    Category        `json:"category"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

// InStock reports whether at least one unit can be bought.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Purchasable is false when stock is exhausted; increment and buy actions are disabled then.
func (p Product) Purchasable() bool {
	return p.InStock()
}

// DisplayPrice formats the unit price as shown in listings, e.g. "$25.00".
func (p Product) DisplayPrice() string {
	return "$" + p.Price.StringFixed(2)
}

// CartItem is one cart line: a product snapshot and a quantity of at least 1.
type CartItem struct {
	ID       ID      `json:"id"`
	Quantity int     `json:"quantity"`
	Product  Product `json:"product"`
}

// LineTotal is quantity x unit price.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Product.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// ItemCount sums the quantities across lines.
func ItemCount(items []CartItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// Subtotal sums quantity x unit price across lines.
func Subtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderStatus values are assigned by the backend
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// Order represents a placed order. The seller/admin listing carries the
// broader shape (owner name, per-line status, created_at) in the same fields.
type Order struct {
	ID         ID              `json:"id"`
	OwnerID    ID              `json:"owner_id"`
	OwnerName  string          `json:"owner_name"`
	Status     OrderStatus     `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []OrderItem     `json:"items"`
	OrderDate  *time.Time      `json:"order_date,omitempty"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
}

// PlacedAt returns whichever creation timestamp the backend supplied.
func (o Order) PlacedAt() time.Time {
	switch {
	case o.OrderDate != nil:
		return *o.OrderDate
	case o.CreatedAt != nil:
		return *o.CreatedAt
	}
	return time.Time{}
}

// OrderItem represents one line of an order
type OrderItem struct {
	ID          ID              `json:"id"`
	ProductID   ID              `json:"product_id"`
	SellerID    ID              `json:"seller_id,omitempty"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	ProductName string          `json:"product_name"`
	Status      string          `json:"status,omitempty"`
	Image       string          `json:"image,omitempty"`
}

// Address is a shipping address; the backend keeps at most one default per user.
type Address struct {
	ID            ID     `json:"id,omitempty"`
	Label         string `json:"label,omitempty"`
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"address_line1"`
	AddressLine2  string `json:"address_line2,omitempty"`
	City          string `json:"city"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	IsDefault     bool   `json:"is_default"`
}

// DefaultAddress returns the address flagged as default, or nil.
func DefaultAddress(addresses []Address) *Address {
	for i := range addresses {
		if addresses[i].IsDefault {
			return &addresses[i]
		}
	}
	return nil
}

// Role of a user account
type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User as seen by the storefront and the admin tables
type User struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
	IsActive  bool   `json:"is_active"`
	IsSeller  bool   `json:"is_seller,omitempty"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Pending users are inactive and only expose approve/reject.
func (u User) Pending() bool {
	return !u.IsActive
}

// Seller is a seller store profile awaiting or holding admin activation
type Seller struct {
	ID               ID     `json:"id"`
	OwnerID          ID     `json:"owner_id"`
	StoreName        string `json:"store_name"`
	StoreDescription string `json:"store_description,omitempty"`
	StoreCategory    string `json:"store_category"`
	Phone            string `json:"phone"`
	City             string `json:"city"`
	Country          string `json:"country"`
	IsActive         bool   `json:"is_active"`
}
