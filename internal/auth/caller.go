package auth

import (
	"context"

	"marketplace-be/internal/apperror"

	"github.com/google/uuid"
)

type Role string

var ErrRoleForbidden = apperror.Forbidden("ROLE_FORBIDDEN", "caller role is not allowed to perform this action")

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// Caller is the authenticated identity every service operation acts on behalf of.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

func (c Caller) IsSeller() bool { return c.Role == RoleSeller }
func (c Caller) IsBuyer() bool  { return c.Role == RoleBuyer }

type ctxKey string

const (
	callerKey ctxKey = "caller"
	claimsKey ctxKey = "claims"
)

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// RequireRole rejects callers whose role differs from role.
func RequireRole(c Caller, role Role) error {
	if c.Role != role {
		return ErrRoleForbidden
	}
	return nil
}
