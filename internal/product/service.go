package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/cache"
	"marketplace-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	ListMine(ctx context.Context, caller auth.Caller) ([]Product, error)
	Create(ctx context.Context, caller auth.Caller, in NewProductInput) (*Product, error)
	Update(ctx context.Context, caller auth.Caller, id uuid.UUID, in UpdateProductInput) (*Product, error)
	Delete(ctx context.Context, caller auth.Caller, id uuid.UUID) error

	ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
	SellerProductIDs(ctx context.Context, sellerID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

type service struct {
	repo     Repository
	cache    cache.Store
	cacheTTL time.Duration
}

func NewService(repo Repository, store cache.Store, cacheTTL time.Duration) Service {
	return &service{repo: repo, cache: store, cacheTTL: cacheTTL}
}

func (s *service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return products, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return p, nil
}

func (s *service) ListMine(ctx context.Context, caller auth.Caller) ([]Product, error) {
	if err := auth.RequireRole(caller, auth.RoleSeller); err != nil {
		return nil, err
	}
	products, err := s.repo.ListBySeller(ctx, caller.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return products, nil
}

func (s *service) Create(ctx context.Context, caller auth.Caller, in NewProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
	)

	if err := auth.RequireRole(caller, auth.RoleSeller); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validate(in); err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, caller.ID, in)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	s.invalidateSeller(ctx, caller.ID)
	log.Info("product created", zap.String("product_id", p.ID.String()), zap.String("seller_id", caller.ID.String()))
	return p, nil
}

func (s *service) Update(ctx context.Context, caller auth.Caller, id uuid.UUID, in UpdateProductInput) (*Product, error) {
	if err := auth.RequireRole(caller, auth.RoleSeller); err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, ErrNoFieldsUpdate
	}

	p, err := s.ownedProduct(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if err := validate(NewProductInput{Name: p.Name, Description: p.Description, Price: p.Price, Stock: p.Stock}); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, p)
	if errors.Is(err, ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, caller auth.Caller, id uuid.UUID) error {
	if err := auth.RequireRole(caller, auth.RoleSeller); err != nil {
		return err
	}
	if _, err := s.ownedProduct(ctx, caller, id); err != nil {
		return err
	}

	err := s.repo.SoftDelete(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return apperror.Internal(err)
	}

	s.invalidateSeller(ctx, caller.ID)
	return nil
}

func (s *service) ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	found, err := s.repo.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return toSet(found), nil
}

// SellerProductIDs returns every product id the seller has ever listed.
func (s *service) SellerProductIDs(ctx context.Context, sellerID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SellerProductIDs"),
	)

	var cached []uuid.UUID
	err := s.cache.GetJSON(ctx, sellerKey(sellerID), &cached)
	if err == nil {
		return toSet(cached), nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn("seller product cache read failed", zap.Error(err))
	}

	ids, err := s.repo.IDsBySeller(ctx, sellerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if err := s.cache.SetJSON(ctx, sellerKey(sellerID), ids, s.cacheTTL); err != nil {
		log.Warn("seller product cache write failed", zap.Error(err))
	}
	return toSet(ids), nil
}

func (s *service) ownedProduct(ctx context.Context, caller auth.Caller, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if p.SellerID != caller.ID {
		return nil, ErrNotOwner
	}
	return p, nil
}

func (s *service) invalidateSeller(ctx context.Context, sellerID uuid.UUID) {
	if err := s.cache.Del(ctx, sellerKey(sellerID)); err != nil {
		logger.FromCtx(ctx).Warn("seller product cache invalidation failed",
			zap.String("seller_id", sellerID.String()),
			zap.Error(err),
		)
	}
}

func validate(in NewProductInput) error {
	switch {
	case in.Name == "":
		return invalidProduct("name is required")
	case in.Description == "":
		return invalidProduct("description is required")
	case !in.Price.IsPositive():
		return invalidProduct("price must be greater than 0")
	case in.Stock < 0:
		return invalidProduct("stock must be 0 or more")
	}
	return nil
}

func sellerKey(id uuid.UUID) string {
	return "seller-products:" + id.String()
}

func toSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
