package product

import (
	"context"
	"database/sql"
	"errors"

	"marketplace-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Create(ctx context.Context, sellerID uuid.UUID, in NewProductInput) (*Product, error)
	Update(ctx context.Context, p *Product) (*Product, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	IDsBySeller(ctx context.Context, sellerID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `id, seller_id, name, description, price, stock, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(s scanner) (*Product, error) {
	var p Product
	err := s.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) query(ctx context.Context, q string, args ...interface{}) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *repository) List(ctx context.Context) ([]Product, error) {
	return r.query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]Product, error) {
	return r.query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE seller_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, sellerID)
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND deleted_at IS NULL
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, sellerID uuid.UUID, in NewProductInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
	)

	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		INSERT INTO products (seller_id, name, description, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+productColumns,
		sellerID, in.Name, in.Description, in.Price, in.Stock,
	))
	if err != nil {
		log.Error("failed to insert product", zap.String("seller_id", sellerID.String()), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *repository) Update(ctx context.Context, p *Product) (*Product, error) {
	out, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price, p.Stock,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return out, err
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	return r.ids(ctx,
		`SELECT id FROM products WHERE id = ANY($1) AND deleted_at IS NULL`,
		pq.Array(uuidStrings(ids)),
	)
}

// IDsBySeller includes soft-deleted products so old order lines stay attributable.
func (r *repository) IDsBySeller(ctx context.Context, sellerID uuid.UUID) ([]uuid.UUID, error) {
	return r.ids(ctx, `SELECT id FROM products WHERE seller_id = $1`, sellerID)
}

func (r *repository) ids(ctx context.Context, q string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
