package repository_test

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lockActiveModelSQL = regexp.QuoteMeta(`SELECT id FROM product_models WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`)
	selectUnclaimedSQL = regexp.QuoteMeta(`SELECT id, created_at FROM items WHERE product_id = $1 AND order_id IS NULL ORDER BY id LIMIT $2 FOR UPDATE`)
	insertOrderSQL     = regexp.QuoteMeta(`INSERT INTO orders (id, product_id, email) VALUES ($1, $2, $3) RETURNING created_at`)
	assignItemsSQL     = regexp.QuoteMeta(`UPDATE items SET order_id = $1 WHERE id = ANY($2) AND order_id IS NULL`)
	unpublishSQL       = regexp.QuoteMeta(`UPDATE product_models SET published = FALSE, auto_unpublished = TRUE, updated_at = NOW() WHERE id = $1 AND published`)
	republishSQL       = regexp.QuoteMeta(`UPDATE product_models SET published = TRUE, auto_unpublished = FALSE, updated_at = NOW() WHERE id = $1 AND auto_unpublished AND deleted_at IS NULL`)
)

func TestNewItemRepo(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewItemRepo(db)
	assert.NotNil(t, repo, "NewItemRepo should return a non-nil repository")
}

func TestItemRepository_CountRemaining(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewItemRepo(db)
	ctx := t.Context()

	expectedSQL := regexp.QuoteMeta(`SELECT COUNT(*) FROM items WHERE product_id = $1 AND order_id IS NULL`)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mock.ExpectQuery(expectedSQL).WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

		// Act
		count, err := repo.CountRemaining(ctx, 7)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 4, count)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error", func(t *testing.T) {
		// Arrange
		dbError := errors.New("connection reset")
		mock.ExpectQuery(expectedSQL).WithArgs(int64(7)).WillReturnError(dbError)

		// Act
		count, err := repo.CountRemaining(ctx, 7)

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, dbError)
		assert.Zero(t, count)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestItemRepository_AddItems(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewItemRepo(db)
	ctx := t.Context()

	insertSQL := regexp.QuoteMeta(`INSERT INTO items (product_id) SELECT $1 FROM generate_series(1, $2)`)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockActiveModelSQL).WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectExec(insertSQL).WithArgs(int64(3), 5).WillReturnResult(sqlmock.NewResult(0, 5))
		mock.ExpectExec(republishSQL).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// Act
		err := repo.AddItems(ctx, 3, 5)

		// Assert
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Republish failure rolls back the new items", func(t *testing.T) {
		// Arrange
		dbError := errors.New("deadlock detected")
		mock.ExpectBegin()
		mock.ExpectQuery(lockActiveModelSQL).WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectExec(insertSQL).WithArgs(int64(3), 5).WillReturnResult(sqlmock.NewResult(0, 5))
		mock.ExpectExec(republishSQL).WithArgs(int64(3)).WillReturnError(dbError)
		mock.ExpectRollback()

		// Act
		err := repo.AddItems(ctx, 3, 5)

		// Assert
		require.ErrorIs(t, err, dbError)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Zero count touches nothing", func(t *testing.T) {
		// Act
		err := repo.AddItems(ctx, 3, 0)

		// Assert
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Trashed or missing model", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockActiveModelSQL).WithArgs(int64(3)).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		// Act
		err := repo.AddItems(ctx, 3, 5)

		// Assert
		require.ErrorIs(t, err, repository.ErrProductNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestItemRepository_RemoveAll(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewItemRepo(db)
	ctx := t.Context()

	lockSQL := regexp.QuoteMeta(`SELECT id FROM product_models WHERE id = $1 FOR UPDATE`)
	trashSQL := regexp.QuoteMeta(`UPDATE product_models SET published = FALSE, auto_unpublished = FALSE, deleted_at = COALESCE(deleted_at, NOW())`)
	deleteSQL := regexp.QuoteMeta(`DELETE FROM items WHERE product_id = $1 AND order_id IS NULL`)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
		mock.ExpectExec(trashSQL).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(deleteSQL).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectCommit()

		// Act
		removed, err := repo.RemoveAll(ctx, 9)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 4, removed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		// Act
		removed, err := repo.RemoveAll(ctx, 9)

		// Assert
		require.ErrorIs(t, err, repository.ErrProductNotFound)
		assert.Zero(t, removed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete fails rolls back", func(t *testing.T) {
		// Arrange
		dbError := errors.New("lock timeout")
		mock.ExpectBegin()
		mock.ExpectQuery(lockSQL).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
		mock.ExpectExec(trashSQL).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(deleteSQL).WithArgs(int64(9)).WillReturnError(dbError)
		mock.ExpectRollback()

		// Act
		_, err := repo.RemoveAll(ctx, 9)

		// Assert
		require.ErrorIs(t, err, dbError)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestItemRepository_Allocate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewItemRepo(db)
	ctx := t.Context()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockActiveModelSQL).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(selectUnclaimedSQL).WithArgs(int64(1), 2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(10, now).AddRow(11, now))
		mock.ExpectQuery(insertOrderSQL).WithArgs(sqlmock.AnyArg(), int64(1), "buyer@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectExec(assignItemsSQL).WithArgs(sqlmock.AnyArg(), pq.Array([]int64{10, 11})).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(unpublishSQL).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		// Act
		order, err := repo.Allocate(ctx, 1, 2, "buyer@example.com")

		// Assert
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.NotEqual(t, uuid.Nil, order.ID)
		assert.Equal(t, int64(1), order.ProductID)
		assert.Equal(t, "buyer@example.com", order.Email)
		assert.Equal(t, 2, order.Quantity())
		assert.Equal(t, []int64{10, 11}, order.ItemIDs())
		for _, item := range order.Items {
			require.NotNil(t, item.OrderID)
			assert.Equal(t, order.ID, *item.OrderID)
		}
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not enough items leaves ledger untouched", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockActiveModelSQL).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(selectUnclaimedSQL).WithArgs(int64(1), 3).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(10, now).AddRow(11, now))
		mock.ExpectRollback()

		// Act
		order, err := repo.Allocate(ctx, 1, 3, "buyer@example.com")

		// Assert
		require.ErrorIs(t, err, repository.ErrNotEnoughItems)
		assert.Nil(t, order)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing model", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockActiveModelSQL).WithArgs(int64(404)).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		// Act
		order, err := repo.Allocate(ctx, 404, 1, "buyer@example.com")

		// Assert
		require.ErrorIs(t, err, repository.ErrProductNotFound)
		assert.Nil(t, order)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Partial assignment rolls back", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockActiveModelSQL).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(selectUnclaimedSQL).WithArgs(int64(1), 2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(10, now).AddRow(11, now))
		mock.ExpectQuery(insertOrderSQL).WithArgs(sqlmock.AnyArg(), int64(1), "buyer@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectExec(assignItemsSQL).WithArgs(sqlmock.AnyArg(), pq.Array([]int64{10, 11})).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		// Act
		order, err := repo.Allocate(ctx, 1, 2, "buyer@example.com")

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "claimed 1 of 2")
		assert.Nil(t, order)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Commit failure", func(t *testing.T) {
		// Arrange
		commitErr := errors.New("serialization failure")
		mock.ExpectBegin()
		mock.ExpectQuery(lockActiveModelSQL).WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(selectUnclaimedSQL).WithArgs(int64(1), 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(10, now))
		mock.ExpectQuery(insertOrderSQL).WithArgs(sqlmock.AnyArg(), int64(1), "buyer@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectExec(assignItemsSQL).WithArgs(sqlmock.AnyArg(), pq.Array([]int64{10})).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(unpublishSQL).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(commitErr)

		// Act
		order, err := repo.Allocate(ctx, 1, 1, "buyer@example.com")

		// Assert
		require.ErrorIs(t, err, commitErr)
		assert.Nil(t, order)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestItemRepository_Release(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewItemRepo(db)
	ctx := t.Context()
	orderID := uuid.New()

	lockOrderSQL := regexp.QuoteMeta(`SELECT product_id, released_at FROM orders WHERE id = $1 FOR UPDATE`)
	lockModelSQL := regexp.QuoteMeta(`SELECT id FROM product_models WHERE id = $1 FOR UPDATE`)
	releaseSQL := regexp.QuoteMeta(`UPDATE items SET order_id = NULL WHERE order_id = $1`)
	markSQL := regexp.QuoteMeta(`UPDATE orders SET released_at = NOW() WHERE id = $1`)
	purgeSQL := regexp.QuoteMeta(`DELETE FROM items WHERE product_id = $1 AND order_id IS NULL AND EXISTS`)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockOrderSQL).WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "released_at"}).AddRow(5, nil))
		mock.ExpectQuery(lockModelSQL).WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
		mock.ExpectExec(releaseSQL).WithArgs(orderID).WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(markSQL).WithArgs(orderID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(purgeSQL).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(republishSQL).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// Act
		released, err := repo.Release(ctx, orderID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 3, released)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already released", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockOrderSQL).WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "released_at"}).AddRow(5, time.Now()))
		mock.ExpectCommit()

		// Act
		released, err := repo.Release(ctx, orderID)

		// Assert
		require.NoError(t, err)
		assert.Zero(t, released)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown order", func(t *testing.T) {
		// Arrange
		mock.ExpectBegin()
		mock.ExpectQuery(lockOrderSQL).WithArgs(orderID).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		// Act
		released, err := repo.Release(ctx, orderID)

		// Assert
		require.ErrorIs(t, err, repository.ErrOrderNotFound)
		assert.Zero(t, released)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
