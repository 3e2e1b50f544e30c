package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound   = errors.New("discount not found")
	ErrCodeExists = errors.New("discount code already exists")
)

type Repository interface {
	Create(ctx context.Context, d *Discount) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Discount, error)
	GetByCode(ctx context.Context, code string) (*Discount, error)
	List(ctx context.Context) ([]Discount, error)
	ListActive(ctx context.Context, now time.Time) ([]Discount, error)
	Update(ctx context.Context, d *Discount) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const discountColumns = `id, name, COALESCE(code, ''), description, type, value, min_order_value,
	valid_from, valid_to, max_uses, max_uses_per_customer, is_active, current_uses, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, d *Discount) (discountID uuid.UUID, err error) {
	finalID := d.ID
	if finalID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate discount ID: %w", genErr)
		}
		finalID = genID
	}
	d.ID = finalID

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("discount_id", finalID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("discount_id", finalID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	query := `
		INSERT INTO discounts (id, name, code, description, type, value, min_order_value,
			valid_from, valid_to, max_uses, max_uses_per_customer, is_active, current_uses, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = tx.Exec(ctx, query,
		d.ID,
		d.Name,
		d.Code,
		d.Description,
		string(d.Type),
		d.Value,
		d.MinOrderValue,
		d.ValidFrom,
		d.ValidTo,
		d.MaxUses,
		d.MaxUsesPerCustomer,
		d.IsActive,
		d.CurrentUses,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			err = ErrCodeExists
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("repository: failed to insert discount: %w", err)
	}

	if err = r.replaceSpecificItems(ctx, tx, finalID, d.SpecificItems); err != nil {
		return uuid.Nil, err
	}

	return finalID, nil
}

func (r *postgresRepository) replaceSpecificItems(ctx context.Context, tx pgx.Tx, discountID uuid.UUID, items []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM discount_items WHERE discount_id = $1`, discountID); err != nil {
		return fmt.Errorf("repository: failed to clear specific items for discount %s: %w", discountID, err)
	}
	for _, itemID := range items {
		_, err := tx.Exec(ctx,
			`INSERT INTO discount_items (discount_id, menu_item_id) VALUES ($1, $2)`,
			discountID, itemID,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert specific item for discount %s: %w", discountID, err)
		}
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByCode matches case-insensitively; codes are stored uppercase.
func (r *postgresRepository) GetByCode(ctx context.Context, code string) (*Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE code = UPPER($1)`
	return r.getOne(ctx, query, code)
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg interface{}) (*Discount, error) {
	var d Discount
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&d.ID,
		&d.Name,
		&d.Code,
		&d.Description,
		&d.Type,
		&d.Value,
		&d.MinOrderValue,
		&d.ValidFrom,
		&d.ValidTo,
		&d.MaxUses,
		&d.MaxUsesPerCustomer,
		&d.IsActive,
		&d.CurrentUses,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select discount: %w", err)
	}

	items, err := r.getSpecificItems(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.SpecificItems = items

	return &d, nil
}

func (r *postgresRepository) getSpecificItems(ctx context.Context, discountID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT menu_item_id FROM discount_items WHERE discount_id = $1`, discountID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query specific items for discount %s: %w", discountID, err)
	}
	defer rows.Close()

	items := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository: failed to scan specific item for discount %s: %w", discountID, err)
		}
		items = append(items, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating specific items for discount %s: %w", discountID, err)
	}

	return items, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// ListActive returns discounts that are active, inside their validity
// window, and either uncapped or still under their total usage cap.
// Per-customer filtering is the service's job.
func (r *postgresRepository) ListActive(ctx context.Context, now time.Time) ([]Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts
		WHERE is_active = TRUE
		  AND valid_from <= $1
		  AND valid_to >= $1
		  AND (max_uses IS NULL OR current_uses < max_uses)
		ORDER BY created_at DESC`
	return r.list(ctx, query, now)
}

func (r *postgresRepository) list(ctx context.Context, query string, args ...interface{}) ([]Discount, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query discounts: %w", err)
	}
	defer rows.Close()

	discounts := make([]Discount, 0)
	for rows.Next() {
		var d Discount
		err := rows.Scan(
			&d.ID,
			&d.Name,
			&d.Code,
			&d.Description,
			&d.Type,
			&d.Value,
			&d.MinOrderValue,
			&d.ValidFrom,
			&d.ValidTo,
			&d.MaxUses,
			&d.MaxUsesPerCustomer,
			&d.IsActive,
			&d.CurrentUses,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan discount: %w", err)
		}
		discounts = append(discounts, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating discounts: %w", err)
	}

	for i := range discounts {
		items, err := r.getSpecificItems(ctx, discounts[i].ID)
		if err != nil {
			return nil, err
		}
		discounts[i].SpecificItems = items
	}

	return discounts, nil
}

func (r *postgresRepository) Update(ctx context.Context, d *Discount) (err error) {
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
				log.Error().Err(rbErr).Stringer("discount_id", d.ID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	query := `
		UPDATE discounts
		SET name = $1, code = NULLIF($2, ''), description = $3, type = $4, value = $5,
			min_order_value = $6, valid_from = $7, valid_to = $8, max_uses = $9,
			max_uses_per_customer = $10, is_active = $11, updated_at = $12
		WHERE id = $13
	`
	cmdTag, err := tx.Exec(ctx, query,
		d.Name,
		d.Code,
		d.Description,
		string(d.Type),
		d.Value,
		d.MinOrderValue,
		d.ValidFrom,
		d.ValidTo,
		d.MaxUses,
		d.MaxUsesPerCustomer,
		d.IsActive,
		time.Now().UTC(),
		d.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			err = ErrCodeExists
			return err
		}
		return fmt.Errorf("repository: failed to update discount %s: %w", d.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		err = ErrNotFound
		return err
	}

	if err = r.replaceSpecificItems(ctx, tx, d.ID, d.SpecificItems); err != nil {
		return err
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete discount %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUsage bumps current_uses by one. A plain read-modify-write with
// no optimistic lock: concurrent checkouts near the cap may race past it,
// which is an accepted limitation.
func (r *postgresRepository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE discounts SET current_uses = current_uses + 1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to increment usage for discount %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
