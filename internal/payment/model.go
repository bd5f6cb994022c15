package payment

import "github.com/shopspring/decimal"

type Method string

const (
	MethodCard Method = "card"
	MethodCOD  Method = "cod"
	MethodUPI  Method = "upi"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCard, MethodCOD, MethodUPI:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

type Charge struct {
	OrderID string
	BuyerID string
	Method  Method
	Amount  decimal.Decimal
}
