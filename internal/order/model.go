package order

import (
	"time"

	"marketplace-be/internal/address"
	"marketplace-be/internal/payment"
	"marketplace-be/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	taxPercent  = decimal.NewFromInt(10)
	ShippingFee = decimal.NewFromInt(50)
)

// TaxFor returns 10% of total rounded to cents, the scale the amount columns store.
func TaxFor(total decimal.Decimal) decimal.Decimal {
	return total.Mul(taxPercent).Div(decimal.NewFromInt(100)).Round(2)
}

type ProductSummary struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	SellerID    uuid.UUID       `json:"sellerId"`
}

type Item struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Status    Status          `json:"itemStatus"`
	Product   *ProductSummary `json:"product,omitempty"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	BuyerID         uuid.UUID       `json:"buyerId"`
	Items           []Item          `json:"items"`
	ShippingAddress address.Fields  `json:"shippingAddress"`
	PaymentMethod   payment.Method  `json:"paymentMethod"`
	PaymentStatus   payment.Status  `json:"paymentStatus"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	ShippingFee     decimal.Decimal `json:"shippingFee"`
	Status          Status          `json:"orderStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Buyer           *user.Summary   `json:"buyer,omitempty"`
}

type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput takes either an inline Address or the id of a saved one.
type CreateInput struct {
	Items         []ItemInput
	Address       *address.Fields
	AddressID     *uuid.UUID
	PaymentMethod payment.Method
	Total         decimal.Decimal
}

// EditInput lists every field a buyer may change after checkout.
type EditInput struct {
	ShippingAddress *address.Fields
}
