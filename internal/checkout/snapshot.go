package checkout

import (
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// KeyPrefix namespaces snapshot records in the key-value store
const KeyPrefix = "checkout_data:"

// SnapshotKey is the store key of a session's snapshot
func SnapshotKey(sessionID string) string {
	return KeyPrefix + sessionID
}

// Snapshot is the cart selection carried from the cart page to checkout.
type Snapshot struct {
	Items     []models.CartItem `json:"items"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	Shipping  decimal.Decimal   `json:"shipping"`
	Total     decimal.Decimal   `json:"total"`
	CreatedAt time.Time         `json:"created_at"`
}

// LineIDs returns the cart line ids in snapshot order
func (s *Snapshot) LineIDs() []models.ID {
	ids := make([]models.ID, 0, len(s.Items))
	for _, it := range s.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

// Age is how long ago the snapshot was taken
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

func (s *Snapshot) encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// storedSnapshot is the record as read back; money fields are nullable so
// an absent total is told apart from a zero one.
type storedSnapshot struct {
	Items     []models.CartItem   `json:"items"`
	Subtotal  decimal.NullDecimal `json:"subtotal"`
	Shipping  decimal.NullDecimal `json:"shipping"`
	Total     decimal.NullDecimal `json:"total"`
	CreatedAt time.Time           `json:"created_at"`
}

// decodeSnapshot parses a stored record and checks it carries the fields
// checkout needs.
func decodeSnapshot(data []byte) (*Snapshot, error) {
	var rec storedSnapshot
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.CreatedAt.IsZero() {
		return nil, fmt.Errorf("snapshot has no creation time")
	}
	if len(rec.Items) == 0 {
		return nil, fmt.Errorf("snapshot has no lines")
	}
	if !rec.Subtotal.Valid || !rec.Shipping.Valid || !rec.Total.Valid {
		return nil, fmt.Errorf("snapshot is missing totals")
	}
	if !rec.Total.Decimal.Equal(rec.Subtotal.Decimal.Add(rec.Shipping.Decimal)) {
		return nil, fmt.Errorf("snapshot total %s does not match subtotal plus shipping", rec.Total.Decimal)
	}
	for i, it := range rec.Items {
		if it.ID == "" || it.Product.ID == "" {
			return nil, fmt.Errorf("snapshot line %d has no id", i)
		}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("snapshot line %d has quantity %d", i, it.Quantity)
		}
	}

	return &Snapshot{
		Items:     rec.Items,
		Subtotal:  rec.Subtotal.Decimal,
		Shipping:  rec.Shipping.Decimal,
		Total:     rec.Total.Decimal,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Pricing holds the shipping rule: a flat fee, waived when the subtotal is
// strictly above the threshold.
type Pricing struct {
	FlatShipping     decimal.Decimal
	FreeShippingOver decimal.Decimal
}

// DefaultPricing charges 10.00 shipping up to a 100.00 subtotal
func DefaultPricing() Pricing {
	return Pricing{
		FlatShipping:     decimal.NewFromInt(10),
		FreeShippingOver: decimal.NewFromInt(100),
	}
}

// Quote returns shipping and total for a subtotal
func (p Pricing) Quote(subtotal decimal.Decimal) (shipping, total decimal.Decimal) {
	shipping = p.FlatShipping
	if subtotal.GreaterThan(p.FreeShippingOver) {
		shipping = decimal.Zero
	}
	return shipping, subtotal.Add(shipping)
}
