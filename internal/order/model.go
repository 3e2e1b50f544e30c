package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

func (s Status) String() string {
	return string(s)
}

// IsValid reports membership in the status set. Any status may be set from
// any other; there is no transition matrix.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// OrderItem snapshots a line at checkout. PricePerUnit is the catalog
// price at order time, immune to later price changes.
type OrderItem struct {
	ID           uuid.UUID `json:"id" db:"id"`
	OrderID      uuid.UUID `json:"order_id" db:"order_id"`
	MenuItemID   uuid.UUID `json:"menu_item_id" db:"menu_item_id"`
	Quantity     int       `json:"quantity" db:"quantity"`
	PricePerUnit float64   `json:"price_per_unit" db:"price_per_unit"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Order is an immutable pricing snapshot; Status is the only field that
// changes after creation.
type Order struct {
	ID                  uuid.UUID   `json:"id" db:"id"`
	CustomerID          uuid.UUID   `json:"customer_id" db:"customer_id"`
	Status              Status      `json:"status" db:"status"`
	Items               []OrderItem `json:"items" db:"-"`
	TotalBeforeDiscount float64     `json:"total_before_discount" db:"total_before_discount"`
	DiscountID          *uuid.UUID  `json:"discount_id" db:"discount_id"`
	DiscountAmount      float64     `json:"discount_amount" db:"discount_amount"`
	TotalAfterDiscount  float64     `json:"total_after_discount" db:"total_after_discount"`
	OrderDate           time.Time   `json:"order_date" db:"order_date"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at" db:"updated_at"`
}
