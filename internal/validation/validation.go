package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"marketplace-be/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var std = New()

// New returns a validator that reports json field names and knows the
// project's custom rules.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	RegisterRules(v)
	return v
}

// RegisterRules adds the custom tags and json field naming to v. The gin
// binding engine gets the same rules at router construction.
func RegisterRules(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("digits", digits)
}

// Struct validates s and converts the first failure into a Validation error
// carrying code.
func Struct(code string, s interface{}) error {
	err := std.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperror.Validation(code, Describe(verrs[0]))
	}
	return apperror.Validation(code, err.Error())
}

// Describe renders a single field error for humans.
func Describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", field, fe.Param())
	case "digits":
		return field + " must contain only digits"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "email":
		return field + " must be a valid email"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func digits(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
