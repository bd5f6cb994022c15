//go:build integration

package order

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"marketplace-be/internal/address"
	"marketplace-be/internal/payment"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(ctx context.Context, t *testing.T) *sql.DB {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("marketplace"),
		postgres.WithUsername("marketplace"),
		postgres.WithPassword("marketplace"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, filename, _, _ := runtime.Caller(0)
	migrations := "file://" + filepath.Join(filepath.Dir(filename), "..", "..", "migrations")

	m, err := migrate.New(migrations, connStr)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("failed to run migrations: %v", err)
	}
	_, _ = m.Close()

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(ctx context.Context, t *testing.T, db *sql.DB, email, role string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, contact_number, role)
		VALUES ($1, $2, 'x', '9876543210', $3) RETURNING id
	`, email, email, role).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedProduct(ctx context.Context, t *testing.T, db *sql.DB, sellerID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRowContext(ctx, `
		INSERT INTO products (seller_id, name, description, price, stock)
		VALUES ($1, $2, 'desc', 10, 5) RETURNING id
	`, sellerID, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestRepository_Postgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := setupPostgres(ctx, t)
	repo := NewRepository(db)

	buyerID := seedUser(ctx, t, db, "buyer@example.com", "buyer")
	sellerA := seedUser(ctx, t, db, "a@example.com", "seller")
	sellerB := seedUser(ctx, t, db, "b@example.com", "seller")
	p1 := seedProduct(ctx, t, db, sellerA, "Mug")
	p2 := seedProduct(ctx, t, db, sellerB, "Cup")

	o := &Order{
		ID:      uuid.New(),
		BuyerID: buyerID,
		Items: []Item{
			{ID: uuid.New(), ProductID: p2, Quantity: 1, Status: StatusPending},
			{ID: uuid.New(), ProductID: p1, Quantity: 2, Status: StatusPending},
		},
		ShippingAddress: address.Fields{FullName: "Jane Doe", Line1: "12 Baker St", City: "Pune", Pin: "411001", Phone: "9876543210"},
		PaymentMethod:   payment.MethodCOD,
		PaymentStatus:   payment.StatusCompleted,
		TotalAmount:     decimal.NewFromInt(200),
		TaxAmount:       TaxFor(decimal.NewFromInt(200)),
		ShippingFee:     ShippingFee,
		Status:          StatusPending,
	}
	require.NoError(t, repo.Create(ctx, o))

	t.Run("GetByIDKeepsItemOrder", func(t *testing.T) {
		got, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		assert.Equal(t, p2, got.Items[0].ProductID)
		assert.Equal(t, p1, got.Items[1].ProductID)
		assert.Equal(t, sellerA, got.Items[1].Product.SellerID)
		assert.True(t, got.TaxAmount.Equal(decimal.NewFromInt(20)))
	})

	t.Run("ListByProducts", func(t *testing.T) {
		orders, err := repo.ListByProducts(ctx, []uuid.UUID{p1})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Len(t, orders[0].Items, 2)

		orders, err = repo.ListByProducts(ctx, []uuid.UUID{uuid.New()})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("Save", func(t *testing.T) {
		got, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		got.Items[1].Status = StatusShipped
		got.ShippingAddress.City = "Mumbai"
		require.NoError(t, repo.Save(ctx, got))

		again, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mumbai", again.ShippingAddress.City)
		assert.Equal(t, StatusPending, again.Items[0].Status)
		assert.Equal(t, StatusShipped, again.Items[1].Status)
	})

	t.Run("ListByBuyer", func(t *testing.T) {
		orders, err := repo.ListByBuyer(ctx, buyerID)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, o.ID, orders[0].ID)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}
