package address

import (
	"strings"
	"time"

	"marketplace-be/internal/validation"

	"github.com/google/uuid"
)

// Fields is the postal part of an address. Orders copy it as their shipping
// snapshot.
type Fields struct {
	FullName string `json:"fullName" bson:"full_name" validate:"required,max=100"`
	Line1    string `json:"line1" bson:"line1" validate:"required,max=50"`
	City     string `json:"city" bson:"city" validate:"required,max=100"`
	Pin      string `json:"pin" bson:"pin" validate:"len=6,digits"`
	Phone    string `json:"phone" bson:"phone" validate:"len=10,digits"`
}

func (f Fields) Normalize() Fields {
	return Fields{
		FullName: strings.TrimSpace(f.FullName),
		Line1:    strings.TrimSpace(f.Line1),
		City:     strings.TrimSpace(f.City),
		Pin:      strings.TrimSpace(f.Pin),
		Phone:    strings.TrimSpace(f.Phone),
	}
}

func (f Fields) Validate() error {
	return validation.Struct("INVALID_ADDRESS", f)
}

type Address struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"userId"`
	Fields
	IsActive  bool      `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
