package order

import (
	"fmt"

	"marketplace-be/internal/apperror"
)

// Status is shared by orders and their line items.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending: {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

// CanTransition reports whether from may move to to. Staying in the same
// state is not a transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transitionError(from, to Status) error {
	return apperror.Validation(
		"INVALID_STATUS_TRANSITION",
		fmt.Sprintf("cannot change status from %s to %s", from, to),
	)
}
