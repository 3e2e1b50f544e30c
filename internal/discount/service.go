package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// ApplyResult carries the outcome of applying a discount to a set of
// lines. All monetary fields are rounded to two decimal places.
type ApplyResult struct {
	Valid               bool      `json:"is_valid"`
	Reason              string    `json:"reason"`
	Discount            *Discount `json:"discount,omitempty"`
	TotalBeforeDiscount float64   `json:"total_before_discount"`
	DiscountAmount      float64   `json:"discount_amount"`
	TotalAfterDiscount  float64   `json:"total_after_discount"`
}

type Service interface {
	// Apply resolves a discount by code (case-insensitive) or id and
	// computes totals for the given lines. Validation denials come back
	// inside the result; only not-found and storage problems are errors.
	Apply(ctx context.Context, codeOrID string, lines []Line, customerID uuid.UUID) (*ApplyResult, error)
	// Validate runs only the eligibility checks against the given lines.
	Validate(ctx context.Context, d *Discount, lines []Line, customerID uuid.UUID, totalBeforeDiscount float64) Validation
	// IncrementUsage bumps the usage counter; failures are logged and
	// swallowed so usage tracking never blocks an order.
	IncrementUsage(ctx context.Context, id uuid.UUID)
	ListAvailable(ctx context.Context, customerID uuid.UUID) ([]Discount, error)

	CreateDiscount(ctx context.Context, d *Discount) (*Discount, error)
	GetDiscountByID(ctx context.Context, id uuid.UUID) (*Discount, error)
	ListDiscounts(ctx context.Context) ([]Discount, error)
	UpdateDiscount(ctx context.Context, d *Discount) error
	DeleteDiscount(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	orders    OrderCounter
	validator *Validator
	now       func() time.Time
}

func NewService(repo Repository, orders OrderCounter) Service {
	return &service{
		repo:      repo,
		orders:    orders,
		validator: NewValidator(orders),
		now:       time.Now,
	}
}

func (s *service) Apply(ctx context.Context, codeOrID string, lines []Line, customerID uuid.UUID) (*ApplyResult, error) {
	d, err := s.resolve(ctx, codeOrID)
	if err != nil {
		return nil, err
	}

	total := TotalOf(lines)

	validation := s.validator.Validate(ctx, d, lines, customerID, total)
	if !validation.Valid {
		log.Warn().Stringer("discount_id", d.ID).Str("reason", validation.Reason).Msg("service: discount rejected")
		return &ApplyResult{
			Valid:               false,
			Reason:              validation.Reason,
			TotalBeforeDiscount: Round2(total),
			DiscountAmount:      0,
			TotalAfterDiscount:  Round2(total),
		}, nil
	}

	amount := CalculateAmount(d, lines, total)

	return &ApplyResult{
		Valid:               true,
		Reason:              "discount applied successfully",
		Discount:            d,
		TotalBeforeDiscount: Round2(total),
		DiscountAmount:      Round2(amount),
		TotalAfterDiscount:  Round2(total - amount),
	}, nil
}

// resolve looks a discount up by id when the key parses as a UUID, by
// code otherwise.
func (s *service) resolve(ctx context.Context, codeOrID string) (*Discount, error) {
	key := strings.TrimSpace(codeOrID)
	if key == "" {
		return nil, ErrNotFound
	}

	if id, err := uuid.FromString(key); err == nil {
		d, err := s.repo.GetByID(ctx, id)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Stringer("discount_id", id).Msg("service: failed to fetch discount by id")
			return nil, fmt.Errorf("service: failed to fetch discount: %w", err)
		}
	}

	d, err := s.repo.GetByCode(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("code", key).Msg("service: failed to fetch discount by code")
		return nil, fmt.Errorf("service: failed to fetch discount: %w", err)
	}

	return d, nil
}

func (s *service) Validate(ctx context.Context, d *Discount, lines []Line, customerID uuid.UUID, totalBeforeDiscount float64) Validation {
	return s.validator.Validate(ctx, d, lines, customerID, totalBeforeDiscount)
}

func (s *service) IncrementUsage(ctx context.Context, id uuid.UUID) {
	if err := s.repo.IncrementUsage(ctx, id); err != nil {
		// Best-effort: usage tracking must never block order placement.
		log.Error().Err(err).Stringer("discount_id", id).Msg("service: failed to increment discount usage")
	}
}

func (s *service) ListAvailable(ctx context.Context, customerID uuid.UUID) ([]Discount, error) {
	candidates, err := s.repo.ListActive(ctx, s.now())
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list active discounts")
		return nil, fmt.Errorf("service: failed to list active discounts: %w", err)
	}

	available := make([]Discount, 0, len(candidates))
	for _, d := range candidates {
		if d.MaxUsesPerCustomer != nil {
			used, err := s.orders.CountByCustomerAndDiscount(ctx, customerID, d.ID)
			if err != nil {
				log.Error().Err(err).Stringer("discount_id", d.ID).Msg("service: failed to count customer usage")
				return nil, fmt.Errorf("service: failed to count customer usage: %w", err)
			}
			if used >= *d.MaxUsesPerCustomer {
				continue
			}
		}
		available = append(available, d)
	}

	return available, nil
}

func (s *service) CreateDiscount(ctx context.Context, d *Discount) (*Discount, error) {
	if err := validateDiscount(d); err != nil {
		return nil, err
	}
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	d.CurrentUses = 0

	if _, err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, ErrCodeExists) {
			return nil, ErrCodeExists
		}
		log.Error().Err(err).Msg("service: failed to create discount in repository")
		return nil, fmt.Errorf("service: failed to create discount: %w", err)
	}

	log.Info().Stringer("discount_id", d.ID).Str("name", d.Name).Msg("service: discount created")

	return d, nil
}

func (s *service) GetDiscountByID(ctx context.Context, id uuid.UUID) (*Discount, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("discount_id", id).Msg("service: failed to fetch discount")
		return nil, fmt.Errorf("service: failed to fetch discount: %w", err)
	}
	return d, nil
}

func (s *service) ListDiscounts(ctx context.Context) ([]Discount, error) {
	discounts, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list discounts")
		return nil, fmt.Errorf("service: failed to list discounts: %w", err)
	}
	return discounts, nil
}

func (s *service) UpdateDiscount(ctx context.Context, d *Discount) error {
	if err := validateDiscount(d); err != nil {
		return err
	}
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))

	err := s.repo.Update(ctx, d)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCodeExists) {
			return err
		}
		log.Error().Err(err).Stringer("discount_id", d.ID).Msg("service: failed to update discount")
		return fmt.Errorf("service: failed to update discount: %w", err)
	}

	return nil
}

func (s *service) DeleteDiscount(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("discount_id", id).Msg("service: failed to delete discount")
		return fmt.Errorf("service: failed to delete discount: %w", err)
	}
	return nil
}

func validateDiscount(d *Discount) error {
	if d.Name == "" {
		return errors.New("name is required")
	}
	if !d.Type.IsValid() {
		return fmt.Errorf("type must be one of %s, %s, %s", TypePercentage, TypeFixed, TypeItemSpecific)
	}
	if d.Value < 0 {
		return errors.New("value must be non-negative")
	}
	if d.MinOrderValue < 0 {
		return errors.New("min_order_value must be non-negative")
	}
	if !d.ValidFrom.Before(d.ValidTo) {
		return errors.New("valid_from must be before valid_to")
	}
	if d.MaxUses != nil && *d.MaxUses < 1 {
		return errors.New("max_uses must be at least 1")
	}
	if d.MaxUsesPerCustomer != nil && *d.MaxUsesPerCustomer < 1 {
		return errors.New("max_uses_per_customer must be at least 1")
	}
	if d.Type == TypeItemSpecific && len(d.SpecificItems) == 0 {
		return errors.New("specific_items are required for item-specific discounts")
	}
	if d.Type != TypeItemSpecific {
		d.SpecificItems = nil
	}
	return nil
}
