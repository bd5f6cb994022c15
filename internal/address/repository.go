package address

import (
	"context"
	"database/sql"
	"errors"

	"marketplace-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Address, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Address, error)

	Create(ctx context.Context, addr *Address) error
	Update(ctx context.Context, addr *Address) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByUserID(
	ctx context.Context,
	userID uuid.UUID,
) ([]*Address, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetByUserID"),
		zap.String("user_id", userID.String()),
	)

	const q = `
		SELECT
			id, user_id,
			full_name, line1, city, pin, phone,
			is_active, created_at, updated_at
		FROM addresses
		WHERE user_id = $1
		  AND is_active = true
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	res := []*Address{}
	for rows.Next() {
		var a Address
		if err := rows.Scan(
			&a.ID, &a.UserID,
			&a.FullName, &a.Line1, &a.City, &a.Pin, &a.Phone,
			&a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, &a)
	}

	return res, rows.Err()
}

func (r *repository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*Address, error) {

	const q = `
		SELECT
			id, user_id,
			full_name, line1, city, pin, phone,
			is_active, created_at, updated_at
		FROM addresses
		WHERE id = $1 AND is_active = true
		LIMIT 1
	`

	var a Address
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&a.ID, &a.UserID,
		&a.FullName, &a.Line1, &a.City, &a.Pin, &a.Phone,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Address"),
			zap.String("method", "GetByID"),
			zap.String("address_id", id.String()),
			zap.Error(err),
		)
		return nil, err
	}

	return &a, nil
}

func (r *repository) Create(
	ctx context.Context,
	addr *Address,
) error {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "Create"),
		zap.String("address_id", addr.ID.String()),
	)

	const q = `
		INSERT INTO addresses (
			id, user_id,
			full_name, line1, city, pin, phone,
			is_active
		) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7,
			$8
		)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx, q,
		addr.ID, addr.UserID,
		addr.FullName, addr.Line1, addr.City, addr.Pin, addr.Phone,
		addr.IsActive,
	).Scan(&addr.CreatedAt, &addr.UpdatedAt)

	if err != nil {
		log.Error("insert failed", zap.Error(err))
		return err
	}

	return nil
}

func (r *repository) Update(
	ctx context.Context,
	addr *Address,
) error {

	const q = `
		UPDATE addresses
		SET full_name = $2,
		    line1 = $3,
		    city = $4,
		    pin = $5,
		    phone = $6,
		    updated_at = NOW()
		WHERE id = $1
		  AND is_active = true
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx, q,
		addr.ID,
		addr.FullName, addr.Line1, addr.City, addr.Pin, addr.Phone,
	).Scan(&addr.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrAddressNotFound
	}
	return err
}

func (r *repository) Deactivate(
	ctx context.Context,
	id uuid.UUID,
) error {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "Deactivate"),
		zap.String("address_id", id.String()),
	)
	log.Debug("start deactivating address")

	const q = `
		UPDATE addresses
		SET is_active = false,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
