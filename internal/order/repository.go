package order

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
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*Order, error)
	// ListByProducts returns every order holding at least one of productIDs,
	// with all of its items loaded.
	ListByProducts(ctx context.Context, productIDs []uuid.UUID) ([]*Order, error)
	Save(ctx context.Context, o *Order) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	o.id, o.buyer_id,
	o.ship_full_name, o.ship_line1, o.ship_city, o.ship_pin, o.ship_phone,
	o.payment_method, o.payment_status,
	o.total_amount, o.tax_amount, o.shipping_fee,
	o.status, o.created_at, o.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(s rowScanner) (*Order, error) {
	var o Order
	err := s.Scan(
		&o.ID, &o.BuyerID,
		&o.ShippingAddress.FullName, &o.ShippingAddress.Line1, &o.ShippingAddress.City,
		&o.ShippingAddress.Pin, &o.ShippingAddress.Phone,
		&o.PaymentMethod, &o.PaymentStatus,
		&o.TotalAmount, &o.TaxAmount, &o.ShippingFee,
		&o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Items = []Item{}
	return &o, nil
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.String("order_id", o.ID.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, buyer_id,
			ship_full_name, ship_line1, ship_city, ship_pin, ship_phone,
			payment_method, payment_status,
			total_amount, tax_amount, shipping_fee,
			status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at
	`,
		o.ID, o.BuyerID,
		o.ShippingAddress.FullName, o.ShippingAddress.Line1, o.ShippingAddress.City,
		o.ShippingAddress.Pin, o.ShippingAddress.Phone,
		o.PaymentMethod, o.PaymentStatus,
		o.TotalAmount, o.TaxAmount, o.ShippingFee,
		o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		log.Error("insert order failed", zap.Error(err))
		return err
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, status, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, o.ID, item.ProductID, item.Quantity, item.Status, i)
		if err != nil {
			log.Error("insert order item failed", zap.Error(err))
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.buyer_id = $1
		ORDER BY o.created_at ASC, o.id ASC
	`, buyerID)
}

func (r *repository) ListByProducts(ctx context.Context, productIDs []uuid.UUID) ([]*Order, error) {
	if len(productIDs) == 0 {
		return []*Order{}, nil
	}
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_items oi
			WHERE oi.order_id = o.id AND oi.product_id = ANY($1)
		)
		ORDER BY o.created_at ASC, o.id ASC
	`, pq.Array(uuidStrings(productIDs)))
}

func (r *repository) list(ctx context.Context, q string, args ...interface{}) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the line items of all orders in one query, each with a
// summary of its product.
func (r *repository) attachItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			oi.order_id, oi.id, oi.product_id, oi.quantity, oi.status,
			p.name, p.price, p.description, p.seller_id
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			orderID uuid.UUID
			item    Item
			p       ProductSummary
		)
		if err := rows.Scan(
			&orderID, &item.ID, &item.ProductID, &item.Quantity, &item.Status,
			&p.Name, &p.Price, &p.Description, &p.SellerID,
		); err != nil {
			return err
		}
		p.ID = item.ProductID
		item.Product = &p

		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

// Save writes the order status, shipping snapshot and every item status in
// one transaction.
func (r *repository) Save(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Save"),
		zap.String("order_id", o.ID.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $2,
		    ship_full_name = $3, ship_line1 = $4, ship_city = $5, ship_pin = $6, ship_phone = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`,
		o.ID, o.Status,
		o.ShippingAddress.FullName, o.ShippingAddress.Line1, o.ShippingAddress.City,
		o.ShippingAddress.Pin, o.ShippingAddress.Phone,
	).Scan(&o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		log.Error("update order failed", zap.Error(err))
		return err
	}

	for _, item := range o.Items {
		if _, err := tx.ExecContext(ctx,
			`UPDATE order_items SET status = $2 WHERE id = $1 AND order_id = $3`,
			item.ID, item.Status, o.ID,
		); err != nil {
			log.Error("update order item failed", zap.String("item_id", item.ID.String()), zap.Error(err))
			return err
		}
	}

	return tx.Commit()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
