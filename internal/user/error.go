package user

import (
	"errors"

	"marketplace-be/internal/apperror"
)

var (
	ErrUserNotFound = errors.New("user not found")

	ErrEmailTaken         = apperror.Validation("EMAIL_TAKEN", "email already registered")
	ErrInvalidRole        = apperror.Validation("INVALID_ROLE", "role must be buyer or seller")
	ErrInvalidCredentials = apperror.Unauthenticated("INVALID_CREDENTIALS", "invalid email or password")
)
