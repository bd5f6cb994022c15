package address

import (
	"context"
	"errors"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages a caller's saved addresses. Addresses owned by someone
// else are reported as not found.
type Service interface {
	List(ctx context.Context, caller auth.Caller) ([]*Address, error)
	Get(ctx context.Context, caller auth.Caller, addressID uuid.UUID) (*Address, error)

	Create(ctx context.Context, caller auth.Caller, input Fields) (*Address, error)
	Update(ctx context.Context, caller auth.Caller, addressID uuid.UUID, input Fields) (*Address, error)
	Delete(ctx context.Context, caller auth.Caller, addressID uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(
	ctx context.Context,
	caller auth.Caller,
) ([]*Address, error) {

	addrs, err := s.repo.GetByUserID(ctx, caller.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return addrs, nil
}

func (s *service) Get(
	ctx context.Context,
	caller auth.Caller,
	addressID uuid.UUID,
) (*Address, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Get"),
		zap.String("address_id", addressID.String()),
	)

	addr, err := s.repo.GetByID(ctx, addressID)
	if errors.Is(err, ErrAddressNotFound) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if addr.UserID != caller.ID || !addr.IsActive {
		log.Warn("foreign address access", zap.String("user_id", caller.ID.String()))
		return nil, ErrAddressNotFound
	}

	return addr, nil
}

func (s *service) Create(
	ctx context.Context,
	caller auth.Caller,
	input Fields,
) (*Address, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
	)

	fields := input.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	addr := &Address{
		ID:       uuid.New(),
		UserID:   caller.ID,
		Fields:   fields,
		IsActive: true,
	}

	if err := s.repo.Create(ctx, addr); err != nil {
		log.Error("failed to create address", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	log.Info("address created", zap.String("address_id", addr.ID.String()))
	return addr, nil
}

func (s *service) Update(
	ctx context.Context,
	caller auth.Caller,
	addressID uuid.UUID,
	input Fields,
) (*Address, error) {

	fields := input.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	addr, err := s.Get(ctx, caller, addressID)
	if err != nil {
		return nil, err
	}

	addr.Fields = fields
	err = s.repo.Update(ctx, addr)
	if errors.Is(err, ErrAddressNotFound) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	return addr, nil
}

func (s *service) Delete(
	ctx context.Context,
	caller auth.Caller,
	addressID uuid.UUID,
) error {

	if _, err := s.Get(ctx, caller, addressID); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, addressID); err != nil {
		logger.FromCtx(ctx).Error("failed to deactivate address",
			zap.String("layer", "service"),
			zap.String("method", "Delete"),
			zap.String("address_id", addressID.String()),
			zap.Error(err),
		)
		return apperror.Internal(err)
	}
	return nil
}
