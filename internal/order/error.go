package order

import "marketplace-be/internal/apperror"

var (
	ErrOrderNotFound    = apperror.NotFound("ORDER_NOT_FOUND", "order not found")
	ErrProductNotFound  = apperror.NotFound("PRODUCT_NOT_FOUND", "one or more products do not exist")
	ErrOrderNotEditable = apperror.Validation("ORDER_NOT_EDITABLE", "only pending orders can be edited")
	ErrItemNotOwned     = apperror.Forbidden("ITEM_NOT_OWNED", "one or more items belong to another seller")
	ErrInvalidStatus    = apperror.Validation("INVALID_STATUS", "status must be one of pending, shipped, delivered, cancelled")
	ErrNoItemIDs        = apperror.Validation("INVALID_ITEMS", "itemIds must not be empty")
	ErrNothingToEdit    = apperror.Validation("NO_FIELDS_TO_UPDATE", "shippingAddress is required")
)

func invalidOrder(msg string) *apperror.Error {
	return apperror.Validation("INVALID_ORDER", msg)
}
