package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uuid.UUID       `json:"id"`
	SellerID    uuid.UUID       `json:"sellerId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *time.Time      `json:"-"`
}

type NewProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// UpdateProductInput carries only the fields to change.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

func (in UpdateProductInput) empty() bool {
	return in.Name == nil && in.Description == nil && in.Price == nil && in.Stock == nil
}
