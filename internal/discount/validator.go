package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Validation is the outcome of checking a discount against a cart. Denials
// are data, not errors, so callers can branch without exception handling.
type Validation struct {
	Valid  bool   `json:"is_valid"`
	Reason string `json:"reason"`
}

// OrderCounter reports how many prior orders a customer has placed with a
// given discount. Backed by the order store.
type OrderCounter interface {
	CountByCustomerAndDiscount(ctx context.Context, customerID, discountID uuid.UUID) (int, error)
}

// Validator runs the eligibility checks for a discount, in order,
// short-circuiting on the first failure.
type Validator struct {
	orders OrderCounter
	now    func() time.Time
}

func NewValidator(orders OrderCounter) *Validator {
	return &Validator{orders: orders, now: time.Now}
}

func (v *Validator) Validate(ctx context.Context, d *Discount, lines []Line, customerID uuid.UUID, totalBeforeDiscount float64) Validation {
	if !d.IsActive {
		return Validation{Valid: false, Reason: "discount is not active"}
	}

	now := v.now()
	if now.Before(d.ValidFrom) {
		return Validation{Valid: false, Reason: "discount is not yet valid"}
	}
	if now.After(d.ValidTo) {
		return Validation{Valid: false, Reason: "discount has expired"}
	}

	if d.MinOrderValue > 0 && totalBeforeDiscount < d.MinOrderValue {
		return Validation{Valid: false, Reason: fmt.Sprintf("minimum order value of $%.2f required", d.MinOrderValue)}
	}

	if d.MaxUses != nil && d.CurrentUses >= *d.MaxUses {
		return Validation{Valid: false, Reason: "discount usage limit exceeded"}
	}

	if d.MaxUsesPerCustomer != nil {
		used, err := v.orders.CountByCustomerAndDiscount(ctx, customerID, d.ID)
		if err != nil {
			// Favor safe denial over crash: a failed lookup never lets a
			// discount through.
			log.Error().Err(err).Stringer("discount_id", d.ID).Stringer("customer_id", customerID).
				Msg("validator: failed to count customer usage")
			return Validation{Valid: false, Reason: "error validating discount"}
		}
		if used >= *d.MaxUsesPerCustomer {
			return Validation{Valid: false, Reason: "you have already used this discount the maximum number of times"}
		}
	}

	if d.Type == TypeItemSpecific {
		if len(d.SpecificItems) == 0 {
			return Validation{Valid: false, Reason: "no specific items defined for this discount"}
		}

		eligible := make(map[uuid.UUID]struct{}, len(d.SpecificItems))
		for _, id := range d.SpecificItems {
			eligible[id] = struct{}{}
		}

		found := false
		for _, ln := range lines {
			if _, ok := eligible[ln.MenuItemID]; ok {
				found = true
				break
			}
		}
		if !found {
			return Validation{Valid: false, Reason: "cart does not contain items eligible for this discount"}
		}
	}

	return Validation{Valid: true, Reason: "discount is valid"}
}
