package discount_test

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/a-berezin/coffeeshop/internal/discount"
)

func cartLines(coffeeID, pastryID uuid.UUID) []discount.Line {
	return []discount.Line{
		{MenuItemID: coffeeID, Name: "Latte", UnitPrice: 4.99, Quantity: 2},
		{MenuItemID: pastryID, Name: "Croissant", UnitPrice: 3.50, Quantity: 1},
	}
}

func TestCalculateAmount_Fixed(t *testing.T) {
	coffeeID := uuid.Must(uuid.NewV4())
	pastryID := uuid.Must(uuid.NewV4())
	lines := cartLines(coffeeID, pastryID)
	total := discount.TotalOf(lines)

	d := &discount.Discount{Type: discount.TypeFixed, Value: 2.00}

	amount := discount.CalculateAmount(d, lines, total)

	assert.InDelta(t, 2.00, amount, 1e-9)
	assert.InDelta(t, 11.48, discount.Round2(total-amount), 1e-9)
}

func TestCalculateAmount_FixedClampedToTotal(t *testing.T) {
	lines := []discount.Line{
		{MenuItemID: uuid.Must(uuid.NewV4()), Name: "Espresso", UnitPrice: 2.50, Quantity: 1},
	}
	total := discount.TotalOf(lines)

	d := &discount.Discount{Type: discount.TypeFixed, Value: 50.00}

	amount := discount.CalculateAmount(d, lines, total)

	assert.InDelta(t, 2.50, amount, 1e-9)
}

func TestCalculateAmount_Percentage(t *testing.T) {
	coffeeID := uuid.Must(uuid.NewV4())
	pastryID := uuid.Must(uuid.NewV4())
	lines := cartLines(coffeeID, pastryID)
	total := discount.TotalOf(lines)

	d := &discount.Discount{Type: discount.TypePercentage, Value: 10}

	amount := discount.CalculateAmount(d, lines, total)

	// 13.48 * 10% = 1.348, surfaced as 1.35
	assert.InDelta(t, 1.35, discount.Round2(amount), 1e-9)
	assert.InDelta(t, 12.13, discount.Round2(total-amount), 1e-9)
}

func TestCalculateAmount_PercentageOverHundredClamped(t *testing.T) {
	lines := []discount.Line{
		{MenuItemID: uuid.Must(uuid.NewV4()), Name: "Latte", UnitPrice: 4.00, Quantity: 1},
	}
	total := discount.TotalOf(lines)

	d := &discount.Discount{Type: discount.TypePercentage, Value: 150}

	amount := discount.CalculateAmount(d, lines, total)

	assert.InDelta(t, 4.00, amount, 1e-9)
}

func TestCalculateAmount_ItemSpecific(t *testing.T) {
	coffeeID := uuid.Must(uuid.NewV4())
	pastryID := uuid.Must(uuid.NewV4())
	lines := cartLines(coffeeID, pastryID)
	total := discount.TotalOf(lines)

	d := &discount.Discount{
		Type:          discount.TypeItemSpecific,
		Value:         20,
		SpecificItems: []uuid.UUID{coffeeID},
	}

	amount := discount.CalculateAmount(d, lines, total)

	// 20% off the two lattes only: 4.99 * 2 * 20% = 1.996 -> 2.00.
	// The croissant line is untouched.
	assert.InDelta(t, 2.00, discount.Round2(amount), 1e-9)
	assert.InDelta(t, 11.48, discount.Round2(total-amount), 1e-9)
}

func TestCalculateAmount_ItemSpecificNoEligibleLines(t *testing.T) {
	coffeeID := uuid.Must(uuid.NewV4())
	pastryID := uuid.Must(uuid.NewV4())
	lines := cartLines(coffeeID, pastryID)
	total := discount.TotalOf(lines)

	d := &discount.Discount{
		Type:          discount.TypeItemSpecific,
		Value:         20,
		SpecificItems: []uuid.UUID{uuid.Must(uuid.NewV4())},
	}

	amount := discount.CalculateAmount(d, lines, total)

	assert.Zero(t, amount)
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 1.35, discount.Round2(1.348), 1e-9)
	assert.InDelta(t, 2.00, discount.Round2(1.996), 1e-9)
	assert.InDelta(t, 12.13, discount.Round2(12.132), 1e-9)
}
