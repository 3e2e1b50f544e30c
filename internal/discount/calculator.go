package discount

import (
	"math"

	"github.com/gofrs/uuid"
)

// CalculateAmount computes the monetary discount for an already-validated
// discount. The result is clamped to the order total so a discount can
// never push a total below zero; it is not rounded, intermediate math stays
// exact until the service boundary.
func CalculateAmount(d *Discount, lines []Line, totalBeforeDiscount float64) float64 {
	var amount float64

	switch d.Type {
	case TypePercentage:
		amount = totalBeforeDiscount * d.Value / 100

	case TypeFixed:
		amount = math.Min(d.Value, totalBeforeDiscount)

	case TypeItemSpecific:
		// Value is a percentage applied to matching lines only.
		eligible := make(map[uuid.UUID]struct{}, len(d.SpecificItems))
		for _, id := range d.SpecificItems {
			eligible[id] = struct{}{}
		}
		for _, ln := range lines {
			if _, ok := eligible[ln.MenuItemID]; ok {
				amount += ln.UnitPrice * float64(ln.Quantity) * d.Value / 100
			}
		}
	}

	return math.Min(amount, totalBeforeDiscount)
}

// Round2 rounds a currency amount to two decimal places, half away from
// zero. Applied once, where amounts are surfaced to callers.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
