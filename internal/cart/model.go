package cart

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/a-berezin/coffeeshop/internal/discount"
)

// Item is an unpriced cart entry. At most one entry exists per menu item;
// repeated adds merge quantities.
type Item struct {
	MenuItemID uuid.UUID `json:"menu_item_id" db:"menu_item_id"`
	Quantity   int       `json:"quantity" db:"quantity"`
}

// Cart is keyed by customer: one cart per customer, created lazily on the
// first add. Lines is the priced view of Items at current catalog prices.
type Cart struct {
	CustomerID          uuid.UUID       `json:"customer_id" db:"customer_id"`
	Items               []Item          `json:"items" db:"-"`
	Lines               []discount.Line `json:"lines" db:"-"`
	AppliedDiscountID   *uuid.UUID      `json:"applied_discount_id" db:"applied_discount_id"`
	TotalBeforeDiscount float64         `json:"total_before_discount" db:"total_before_discount"`
	DiscountAmount      float64         `json:"discount_amount" db:"discount_amount"`
	TotalAfterDiscount  float64         `json:"total_after_discount" db:"total_after_discount"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// clearDiscount drops any applied discount and recomputes the totals triad
// from the given lines. Every cart-mutating operation runs this before
// persisting: a discount is never silently carried across a content change.
func clearDiscount(c *Cart, lines []discount.Line) {
	c.AppliedDiscountID = nil
	c.DiscountAmount = 0
	c.TotalBeforeDiscount = discount.Round2(discount.TotalOf(lines))
	c.TotalAfterDiscount = c.TotalBeforeDiscount
}
