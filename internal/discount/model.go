package discount

import (
	"time"

	"github.com/gofrs/uuid"
)

// Type selects the amount-calculation rule for a discount.
type Type string

const (
	TypePercentage   Type = "percentage"
	TypeFixed        Type = "fixed"
	TypeItemSpecific Type = "item_specific"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case TypePercentage, TypeFixed, TypeItemSpecific:
		return true
	}
	return false
}

// Discount describes a campaign. Value is a percentage for percentage and
// item_specific types and a currency amount for fixed. MaxUses and
// MaxUsesPerCustomer are nil when unlimited.
type Discount struct {
	ID                 uuid.UUID   `json:"id" db:"id"`
	Name               string      `json:"name" db:"name"`
	Code               string      `json:"code,omitempty" db:"code"` // stored uppercase, empty when code-less
	Description        string      `json:"description" db:"description"`
	Type               Type        `json:"type" db:"type"`
	Value              float64     `json:"value" db:"value"`
	MinOrderValue      float64     `json:"min_order_value" db:"min_order_value"`
	ValidFrom          time.Time   `json:"valid_from" db:"valid_from"`
	ValidTo            time.Time   `json:"valid_to" db:"valid_to"`
	MaxUses            *int        `json:"max_uses" db:"max_uses"`
	MaxUsesPerCustomer *int        `json:"max_uses_per_customer" db:"max_uses_per_customer"`
	IsActive           bool        `json:"is_active" db:"is_active"`
	SpecificItems      []uuid.UUID `json:"specific_items" db:"-"`
	CurrentUses        int         `json:"current_uses" db:"current_uses"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// Line is a priced cart or order line the engine computes against.
type Line struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	UnitPrice  float64   `json:"unit_price"`
	Quantity   int       `json:"quantity"`
}

// TotalOf sums unit price times quantity over the lines. The result is not
// rounded; rounding happens once at the service boundary.
func TotalOf(lines []Line) float64 {
	total := 0.0
	for _, ln := range lines {
		total += ln.UnitPrice * float64(ln.Quantity)
	}
	return total
}
