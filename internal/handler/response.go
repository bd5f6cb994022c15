package handler

import (
	"errors"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/middleware"
	"marketplace-be/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	errMalformedBody = apperror.Validation("INVALID_REQUEST", "malformed request body")
	errInvalidID     = apperror.Validation("INVALID_ID", "id must be a valid uuid")
)

func fail(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

// bindJSON decodes and validates the body into dst, writing the 400 itself
// when that fails.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperror.Validation("INVALID_REQUEST", validation.Describe(verrs[0]))
	}
	return errMalformedBody
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, errInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// caller is set by middleware.Authenticate on every route that uses it.
func caller(c *gin.Context) auth.Caller {
	cl, _ := auth.CallerFrom(c.Request.Context())
	return cl
}
