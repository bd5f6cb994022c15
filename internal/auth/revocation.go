package auth

import (
	"context"
	"errors"
	"time"

	"marketplace-be/internal/cache"
)

// Revocations tracks logged-out token ids until they would have expired anyway.
type Revocations struct {
	store cache.Store
	now   func() time.Time
}

func NewRevocations(store cache.Store) *Revocations {
	return &Revocations{store: store, now: time.Now}
}

func revokedKey(jti string) string { return "revoked:" + jti }

func (r *Revocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.store.SetJSON(ctx, revokedKey(jti), true, ttl)
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.store.GetJSON(ctx, revokedKey(jti), &revoked)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return revoked, nil
}
