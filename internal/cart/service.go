package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/a-berezin/coffeeshop/internal/discount"
	"github.com/a-berezin/coffeeshop/internal/menu"
)

var (
	ErrCartEmpty       = errors.New("cart is empty")
	ErrItemNotInCart   = errors.New("item is not in the cart")
	ErrItemUnavailable = errors.New("menu item is not available")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Catalog prices cart lines at current menu prices.
type Catalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*menu.Item, error)
}

type Service interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, customerID, menuItemID uuid.UUID, quantity int) (*Cart, error)
	UpdateQuantity(ctx context.Context, customerID, menuItemID uuid.UUID, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, customerID, menuItemID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	ApplyDiscount(ctx context.Context, customerID uuid.UUID, codeOrID string) (*discount.ApplyResult, *Cart, error)
	RemoveDiscount(ctx context.Context, customerID uuid.UUID) (*Cart, error)
}

type service struct {
	repo      Repository
	catalog   Catalog
	discounts discount.Service
}

func NewService(repo Repository, catalog Catalog, discounts discount.Service) Service {
	return &service{repo: repo, catalog: catalog, discounts: discounts}
}

// GetCart returns the customer's cart, repricing it against current
// catalog prices when no discount is applied. A customer without a cart
// gets an empty one (not persisted until the first mutation).
func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	lines, err := s.priceLines(ctx, c.Items)
	if err != nil {
		return nil, err
	}
	c.Lines = lines

	if c.AppliedDiscountID == nil {
		// Catalog prices may have moved since the last write. Compare in
		// cents: stored NUMERIC values round-trip through float64 and may
		// not be bit-identical to freshly computed totals.
		total := discount.Round2(discount.TotalOf(lines))
		if cents(total) != cents(c.TotalBeforeDiscount) || cents(c.TotalAfterDiscount) != cents(total) {
			clearDiscount(c, lines)
			if err := s.repo.Save(ctx, c); err != nil {
				log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to persist repriced cart")
				return nil, fmt.Errorf("service: failed to persist repriced cart: %w", err)
			}
		}
	}

	return c, nil
}

func (s *service) AddItem(ctx context.Context, customerID, menuItemID uuid.UUID, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.catalog.GetByID(ctx, menuItemID)
	if err != nil {
		if errors.Is(err, menu.ErrItemNotFound) {
			return nil, menu.ErrItemNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch menu item: %w", err)
	}
	if !item.IsAvailable {
		return nil, ErrItemUnavailable
	}

	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range c.Items {
		if c.Items[i].MenuItemID == menuItemID {
			c.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, Item{MenuItemID: menuItemID, Quantity: quantity})
	}

	return s.saveMutated(ctx, c)
}

func (s *service) UpdateQuantity(ctx context.Context, customerID, menuItemID uuid.UUID, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range c.Items {
		if c.Items[i].MenuItemID == menuItemID {
			c.Items[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotInCart
	}

	return s.saveMutated(ctx, c)
}

func (s *service) RemoveItem(ctx context.Context, customerID, menuItemID uuid.UUID) (*Cart, error) {
	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	kept := c.Items[:0]
	found := false
	for _, item := range c.Items {
		if item.MenuItemID == menuItemID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return nil, ErrItemNotInCart
	}
	c.Items = kept

	return s.saveMutated(ctx, c)
}

func (s *service) Clear(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	c.Items = nil

	return s.saveMutated(ctx, c)
}

// ApplyDiscount runs the discount engine against the current cart. On a
// validation denial the cart is left untouched and the result carries the
// reason; on success the discount and totals are persisted on the cart.
func (s *service) ApplyDiscount(ctx context.Context, customerID uuid.UUID, codeOrID string) (*discount.ApplyResult, *Cart, error) {
	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, nil, err
	}
	if len(c.Items) == 0 {
		return nil, nil, ErrCartEmpty
	}

	lines, err := s.priceLines(ctx, c.Items)
	if err != nil {
		return nil, nil, err
	}
	c.Lines = lines

	result, err := s.discounts.Apply(ctx, codeOrID, lines, customerID)
	if err != nil {
		return nil, nil, err
	}

	if !result.Valid {
		return result, c, nil
	}

	discountID := result.Discount.ID
	c.AppliedDiscountID = &discountID
	c.TotalBeforeDiscount = result.TotalBeforeDiscount
	c.DiscountAmount = result.DiscountAmount
	c.TotalAfterDiscount = result.TotalAfterDiscount

	if err := s.repo.Save(ctx, c); err != nil {
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to persist cart with discount")
		return nil, nil, fmt.Errorf("service: failed to persist cart: %w", err)
	}

	return result, c, nil
}

func (s *service) RemoveDiscount(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	lines, err := s.priceLines(ctx, c.Items)
	if err != nil {
		return nil, err
	}
	c.Lines = lines

	clearDiscount(c, lines)

	if err := s.repo.Save(ctx, c); err != nil {
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to persist cart after discount removal")
		return nil, fmt.Errorf("service: failed to persist cart: %w", err)
	}

	return c, nil
}

func (s *service) load(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	c, err := s.repo.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return &Cart{CustomerID: customerID, Items: []Item{}}, nil
		}
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to fetch cart")
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}
	return c, nil
}

// saveMutated finishes every content mutation: discount invalidation,
// total recalculation, persist.
func (s *service) saveMutated(ctx context.Context, c *Cart) (*Cart, error) {
	lines, err := s.priceLines(ctx, c.Items)
	if err != nil {
		return nil, err
	}
	c.Lines = lines

	clearDiscount(c, lines)

	if err := s.repo.Save(ctx, c); err != nil {
		log.Error().Err(err).Stringer("customer_id", c.CustomerID).Msg("service: failed to persist cart")
		return nil, fmt.Errorf("service: failed to persist cart: %w", err)
	}

	return c, nil
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func (s *service) priceLines(ctx context.Context, items []Item) ([]discount.Line, error) {
	lines := make([]discount.Line, 0, len(items))
	for _, item := range items {
		menuItem, err := s.catalog.GetByID(ctx, item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to price cart item %s: %w", item.MenuItemID, err)
		}
		lines = append(lines, discount.Line{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			UnitPrice:  menuItem.Price,
			Quantity:   item.Quantity,
		})
	}
	return lines, nil
}
