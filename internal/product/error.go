package product

import "marketplace-be/internal/apperror"

var (
	ErrProductNotFound = apperror.NotFound("PRODUCT_NOT_FOUND", "product not found")
	ErrNotOwner        = apperror.Forbidden("PRODUCT_NOT_OWNED", "product belongs to another seller")
	ErrNoFieldsUpdate  = apperror.Validation("NO_FIELDS_TO_UPDATE", "no fields to update")
)

func invalidProduct(msg string) *apperror.Error {
	return apperror.Validation("INVALID_PRODUCT", msg)
}
