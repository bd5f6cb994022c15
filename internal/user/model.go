package user

import (
	"time"

	"marketplace-be/internal/auth"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	ContactNumber string    `json:"contactNumber"`
	Address       string    `json:"address"`
	Role          auth.Role `json:"role"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Summary is the public slice of a user shown next to orders.
type Summary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type RegisterInput struct {
	Username      string
	Email         string
	Password      string
	ContactNumber string
	Address       string
	Role          auth.Role
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}
