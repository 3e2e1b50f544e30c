package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidCategory = errors.New("invalid menu category")
	ErrNegativePrice   = errors.New("price cannot be negative")
)

type Service interface {
	CreateItem(ctx context.Context, item *Item) (*Item, error)
	GetItemByID(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItems(ctx context.Context, category Category) ([]Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	if _, err := s.repo.Create(ctx, item); err != nil {
		log.Error().Err(err).Msg("service: failed to create menu item in repository")
		return nil, fmt.Errorf("service: failed to create menu item: %w", err)
	}

	log.Info().Stringer("menu_item_id", item.ID).Str("name", item.Name).Msg("service: menu item created")

	return item, nil
}

func (s *service) GetItemByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		log.Error().Err(err).Stringer("menu_item_id", id).Msg("service: failed to fetch menu item")
		return nil, fmt.Errorf("service: failed to fetch menu item: %w", err)
	}

	return item, nil
}

func (s *service) ListItems(ctx context.Context, category Category) ([]Item, error) {
	if category != "" && !category.IsValid() {
		return nil, ErrInvalidCategory
	}

	items, err := s.repo.List(ctx, category)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list menu items")
		return nil, fmt.Errorf("service: failed to list menu items: %w", err)
	}

	return items, nil
}

func (s *service) UpdateItem(ctx context.Context, item *Item) error {
	if err := validateItem(item); err != nil {
		return err
	}

	err := s.repo.Update(ctx, item)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		log.Error().Err(err).Stringer("menu_item_id", item.ID).Msg("service: failed to update menu item")
		return fmt.Errorf("service: failed to update menu item: %w", err)
	}

	return nil
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		log.Error().Err(err).Stringer("menu_item_id", id).Msg("service: failed to delete menu item")
		return fmt.Errorf("service: failed to delete menu item: %w", err)
	}

	return nil
}

func validateItem(item *Item) error {
	if item.Name == "" {
		return errors.New("name is required")
	}
	if item.Price < 0 {
		return ErrNegativePrice
	}
	if !item.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}
