package address

import "marketplace-be/internal/apperror"

var ErrAddressNotFound = apperror.NotFound("ADDRESS_NOT_FOUND", "address not found")
