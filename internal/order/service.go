package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/a-berezin/coffeeshop/internal/cart"
	"github.com/a-berezin/coffeeshop/internal/discount"
)

var (
	ErrCartEmpty     = errors.New("cart is empty")
	ErrInvalidStatus = errors.New("invalid order status")
)

// DiscountInvalidError is returned when the cart's applied discount fails
// revalidation at checkout. The discount has already been stripped from the
// cart when this error is surfaced.
type DiscountInvalidError struct {
	Reason string
}

func (e *DiscountInvalidError) Error() string {
	return "discount is no longer valid: " + e.Reason
}

type Service interface {
	PlaceOrder(ctx context.Context, customerID uuid.UUID) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	ListAllOrders(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) error
}

type service struct {
	repo      Repository
	carts     cart.Service
	discounts discount.Service
}

func NewService(repo Repository, carts cart.Service, discounts discount.Service) Service {
	return &service{repo: repo, carts: carts, discounts: discounts}
}

// PlaceOrder snapshots the customer's cart into an order. An applied
// discount is revalidated first: prices and usage counters may have moved
// since it was applied, and a stale discount must never reach an order.
// On success the cart is emptied; on failure it is left untouched, except
// that a discount failing revalidation is stripped before the error is
// returned.
func (s *service) PlaceOrder(ctx context.Context, customerID uuid.UUID) (*Order, error) {
	c, err := s.carts.GetCart(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}
	if len(c.Items) == 0 {
		return nil, ErrCartEmpty
	}

	lines := c.Lines
	total := discount.TotalOf(lines)

	var appliedDiscount *discount.Discount
	amount := 0.0

	if c.AppliedDiscountID != nil {
		d, err := s.discounts.GetDiscountByID(ctx, *c.AppliedDiscountID)
		if err != nil {
			if errors.Is(err, discount.ErrNotFound) {
				return nil, s.stripDiscount(ctx, customerID, "discount no longer exists")
			}
			return nil, fmt.Errorf("service: failed to fetch applied discount: %w", err)
		}

		validation := s.discounts.Validate(ctx, d, lines, customerID, total)
		if !validation.Valid {
			return nil, s.stripDiscount(ctx, customerID, validation.Reason)
		}

		appliedDiscount = d
		amount = discount.CalculateAmount(d, lines, total)
	}

	o := &Order{
		CustomerID:          customerID,
		Status:              StatusPending,
		Items:               make([]OrderItem, 0, len(lines)),
		TotalBeforeDiscount: discount.Round2(total),
		DiscountAmount:      discount.Round2(amount),
		TotalAfterDiscount:  discount.Round2(total - amount),
	}
	if appliedDiscount != nil {
		discountID := appliedDiscount.ID
		o.DiscountID = &discountID
	}
	for _, ln := range lines {
		o.Items = append(o.Items, OrderItem{
			MenuItemID:   ln.MenuItemID,
			Quantity:     ln.Quantity,
			PricePerUnit: ln.UnitPrice,
		})
	}

	if _, err := s.repo.Create(ctx, o); err != nil {
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	if appliedDiscount != nil {
		// Best-effort; a failed increment is logged inside and never
		// blocks the already-placed order.
		s.discounts.IncrementUsage(ctx, appliedDiscount.ID)
	}

	if _, err := s.carts.Clear(ctx, customerID); err != nil {
		// The order exists; a stale cart is recoverable on the next fetch.
		log.Error().Err(err).Stringer("order_id", o.ID).Stringer("customer_id", customerID).
			Msg("service: failed to empty cart after order placement")
	}

	log.Info().Stringer("order_id", o.ID).Stringer("customer_id", customerID).
		Float64("total_after_discount", o.TotalAfterDiscount).Msg("service: order placed")

	return o, nil
}

// stripDiscount persists the removal of a discount that failed checkout
// revalidation and returns the invalidation as the placement error.
func (s *service) stripDiscount(ctx context.Context, customerID uuid.UUID, reason string) error {
	if _, err := s.carts.RemoveDiscount(ctx, customerID); err != nil {
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to strip invalid discount from cart")
	}
	log.Warn().Stringer("customer_id", customerID).Str("reason", reason).Msg("service: discount failed checkout revalidation")
	return &DiscountInvalidError{Reason: reason}
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		log.Error().Err(err).Stringer("customer_id", customerID).Msg("service: failed to fetch customer orders")
		return nil, fmt.Errorf("service: failed to fetch customer orders: %w", err)
	}
	return orders, nil
}

func (s *service) ListAllOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.repo.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch orders")
		return nil, fmt.Errorf("service: failed to fetch orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus sets any status from the enumerated set. Canceling an
// order does not release discount usage.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) error {
	if !newStatus.IsValid() {
		return ErrInvalidStatus
	}

	err := s.repo.UpdateStatus(ctx, orderID, newStatus)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).
			Msg("service: failed to update order status")
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order status updated")
	return nil
}
