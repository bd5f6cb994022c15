package address

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addressCols = []string{
	"id", "user_id", "full_name", "line1", "city", "pin", "phone",
	"is_active", "created_at", "updated_at",
}

func TestRepository_GetByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	userID := uuid.New()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(addressCols).AddRow(
			uuid.NewString(), userID.String(), "Jane", "12 Baker St", "Pune", "411001", "9876543210",
			true, now, now,
		)

		mock.ExpectQuery("SELECT .* FROM addresses WHERE user_id = \\$1").
			WithArgs(userID).
			WillReturnRows(rows)

		res, err := repo.GetByUserID(context.Background(), userID)
		assert.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "Jane", res[0].FullName)
		assert.Equal(t, userID, res[0].UserID)
	})

	t.Run("QueryError", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM addresses").
			WithArgs(userID).
			WillReturnError(errors.New("db error"))

		res, err := repo.GetByUserID(context.Background(), userID)
		assert.Error(t, err)
		assert.Nil(t, res)
	})
}

func TestRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	id := uuid.New()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(addressCols).AddRow(
			id.String(), uuid.NewString(), "Jane", "12 Baker St", "Pune", "411001", "9876543210",
			true, now, now,
		)

		mock.ExpectQuery("SELECT .* FROM addresses WHERE id = \\$1 AND is_active = true").
			WithArgs(id).
			WillReturnRows(rows)

		res, err := repo.GetByID(context.Background(), id)
		assert.NoError(t, err)
		assert.Equal(t, id, res.ID)
		assert.Equal(t, "411001", res.Pin)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM addresses WHERE id = \\$1").
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		res, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, ErrAddressNotFound)
		assert.Nil(t, res)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM addresses").
			WithArgs(id).
			WillReturnError(errors.New("db error"))

		_, err := repo.GetByID(context.Background(), id)
		assert.EqualError(t, err, "db error")
	})
}

func TestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()
	addr := &Address{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Fields:   Fields{FullName: "Jane", Line1: "12 Baker St", City: "Pune", Pin: "411001", Phone: "9876543210"},
		IsActive: true,
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO addresses").
			WithArgs(addr.ID, addr.UserID, "Jane", "12 Baker St", "Pune", "411001", "9876543210", true).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		require.NoError(t, repo.Create(context.Background(), addr))
		assert.Equal(t, now, addr.CreatedAt)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO addresses").WillReturnError(errors.New("db error"))

		assert.Error(t, repo.Create(context.Background(), addr))
	})
}

func TestRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	addr := &Address{ID: uuid.New(), Fields: Fields{FullName: "Jane", Line1: "1", City: "Pune", Pin: "411001", Phone: "9876543210"}}

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("UPDATE addresses SET full_name = \\$2").
			WithArgs(addr.ID, "Jane", "1", "Pune", "411001", "9876543210").
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

		require.NoError(t, repo.Update(context.Background(), addr))
		assert.Equal(t, now, addr.UpdatedAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("UPDATE addresses").WillReturnError(sql.ErrNoRows)

		assert.ErrorIs(t, repo.Update(context.Background(), addr), ErrAddressNotFound)
	})
}

func TestRepository_Deactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	id := uuid.New()

	mock.ExpectExec("UPDATE addresses SET is_active = false").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Deactivate(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}
