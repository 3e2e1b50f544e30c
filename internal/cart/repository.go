package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrCartNotFound = errors.New("cart not found")

type Repository interface {
	Get(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Get(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	query := `
		SELECT customer_id, applied_discount_id, total_before_discount, discount_amount, total_after_discount, created_at, updated_at
		FROM carts
		WHERE customer_id = $1
	`

	var c Cart
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&c.CustomerID,
		&c.AppliedDiscountID,
		&c.TotalBeforeDiscount,
		&c.DiscountAmount,
		&c.TotalAfterDiscount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart for customer %s: %w", customerID, err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT menu_item_id, quantity FROM cart_items WHERE cart_customer_id = $1 ORDER BY position`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.MenuItemID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for customer %s: %w", customerID, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for customer %s: %w", customerID, err)
	}

	c.Items = items

	return &c, nil
}

// Save upserts the cart row and replaces its items in one transaction.
func (r *postgresRepository) Save(ctx context.Context, c *Cart) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("customer_id", c.CustomerID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	now := time.Now().UTC()
	c.UpdatedAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	upsert := `
		INSERT INTO carts (customer_id, applied_discount_id, total_before_discount, discount_amount, total_after_discount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (customer_id) DO UPDATE
		SET applied_discount_id = EXCLUDED.applied_discount_id,
			total_before_discount = EXCLUDED.total_before_discount,
			discount_amount = EXCLUDED.discount_amount,
			total_after_discount = EXCLUDED.total_after_discount,
			updated_at = EXCLUDED.updated_at
	`
	_, err = tx.Exec(ctx, upsert,
		c.CustomerID,
		c.AppliedDiscountID,
		c.TotalBeforeDiscount,
		c.DiscountAmount,
		c.TotalAfterDiscount,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to upsert cart for customer %s: %w", c.CustomerID, err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_customer_id = $1`, c.CustomerID)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart items for customer %s: %w", c.CustomerID, err)
	}

	for i, item := range c.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO cart_items (cart_customer_id, menu_item_id, quantity, position) VALUES ($1, $2, $3, $4)`,
			c.CustomerID, item.MenuItemID, item.Quantity, i,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert cart item for customer %s: %w", c.CustomerID, err)
		}
	}

	return nil
}
