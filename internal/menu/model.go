package menu

import (
	"time"

	"github.com/gofrs/uuid"
)

type Category string

const (
	CategoryCoffee Category = "Coffee"
	CategoryPastry Category = "Pastry"
	CategoryDrink  Category = "Drink"
	CategoryOther  Category = "Other"
)

func (c Category) String() string {
	return string(c)
}

// IsValid reports whether the category is one of the known catalog categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryCoffee, CategoryPastry, CategoryDrink, CategoryOther:
		return true
	}
	return false
}

type Item struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"` // float64 for money, same as the rest of the codebase
	Category    Category  `json:"category" db:"category"`
	IsAvailable bool      `json:"is_available" db:"is_available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
