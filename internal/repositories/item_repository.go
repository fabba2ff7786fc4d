package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/itemstore/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ItemRepository is the item ledger: it owns every unit of every model and
// is the only place where units change hands.
type ItemRepository interface {
	CountRemaining(ctx context.Context, productID int64) (int, error)
	AddItems(ctx context.Context, productID int64, count int) error
	RemoveAll(ctx context.Context, productID int64) (int, error)
	Allocate(ctx context.Context, productID int64, quantity int, email string) (*models.Order, error)
	Release(ctx context.Context, orderID uuid.UUID) (int, error)
}

type itemRepository struct {
	DB *sql.DB
}

func NewItemRepo(db *sql.DB) ItemRepository {
	return &itemRepository{DB: db}
}

const (
	lockActiveModelQuery = `SELECT id FROM product_models WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	// a sold-out model remembers it was taken off sale by the ledger, not by its owner
	unpublishIfEmptyQuery = `
		UPDATE product_models SET published = FALSE, auto_unpublished = TRUE, updated_at = NOW()
		WHERE id = $1 AND published
		  AND NOT EXISTS (SELECT 1 FROM items WHERE product_id = $1 AND order_id IS NULL)
	`

	republishIfStockedQuery = `
		UPDATE product_models SET published = TRUE, auto_unpublished = FALSE, updated_at = NOW()
		WHERE id = $1 AND auto_unpublished AND deleted_at IS NULL
		  AND EXISTS (SELECT 1 FROM items WHERE product_id = $1 AND order_id IS NULL)
	`
)

// republishIfStocked puts a model the ledger took off sale back on sale once it has stock again.
func republishIfStocked(ctx context.Context, tx *sql.Tx, productID int64) error {
	if _, err := tx.ExecContext(ctx, republishIfStockedQuery, productID); err != nil {
		return fmt.Errorf("failed to update published flag: %w", err)
	}

	return nil
}

// lockActiveModel takes the row lock that serializes every ledger mutation of one model.
func lockActiveModel(ctx context.Context, tx *sql.Tx, productID int64) error {
	var id int64

	err := tx.QueryRowContext(ctx, lockActiveModelQuery, productID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to lock product model: %w", err)
	}

	return nil
}

func (r *itemRepository) CountRemaining(ctx context.Context, productID int64) (int, error) {
	dbCtx, cancel := withDBTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM items WHERE product_id = $1 AND order_id IS NULL`

	var count int
	if err := r.DB.QueryRowContext(dbCtx, query, productID).Scan(&count); err != nil {
		return 0, fmt.Errorf("querying database: %w", err)
	}

	return count, nil
}

func (r *itemRepository) AddItems(ctx context.Context, productID int64, count int) error {
	if count <= 0 {
		return nil
	}

	return withTx(ctx, r.DB, func(ctx context.Context, tx *sql.Tx) error {
		if err := lockActiveModel(ctx, tx, productID); err != nil {
			return err
		}

		if err := insertItems(ctx, tx, productID, count); err != nil {
			return err
		}

		return republishIfStocked(ctx, tx, productID)
	})
}

// RemoveAll trashes the model and hard-deletes its unclaimed items.
// Items that belong to orders are kept. It returns the number of deleted items.
func (r *itemRepository) RemoveAll(ctx context.Context, productID int64) (int, error) {
	var removed int64

	err := withTx(ctx, r.DB, func(ctx context.Context, tx *sql.Tx) error {
		var id int64

		err := tx.QueryRowContext(ctx, `SELECT id FROM product_models WHERE id = $1 FOR UPDATE`, productID).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to lock product model: %w", err)
		}

		query := `
			UPDATE product_models
			SET published = FALSE, auto_unpublished = FALSE, deleted_at = COALESCE(deleted_at, NOW()), updated_at = NOW()
			WHERE id = $1
		`
		if _, err := tx.ExecContext(ctx, query, productID); err != nil {
			return fmt.Errorf("failed to trash product model: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE product_id = $1 AND order_id IS NULL`, productID)
		if err != nil {
			return fmt.Errorf("failed to delete unclaimed items: %w", err)
		}

		removed, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to count deleted items: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return int(removed), nil
}

// Allocate claims exactly quantity unclaimed items, lowest id first, for a new order.
// Either every item is assigned and committed or the ledger is left untouched.
func (r *itemRepository) Allocate(ctx context.Context, productID int64, quantity int, email string) (*models.Order, error) {
	order := &models.Order{
		ID:        uuid.New(),
		ProductID: productID,
		Email:     email,
	}

	err := withTx(ctx, r.DB, func(ctx context.Context, tx *sql.Tx) error {
		if err := lockActiveModel(ctx, tx, productID); err != nil {
			return err
		}

		query := `
			SELECT id, created_at FROM items
			WHERE product_id = $1 AND order_id IS NULL
			ORDER BY id
			LIMIT $2
			FOR UPDATE
		`

		rows, err := tx.QueryContext(ctx, query, productID, quantity)
		if err != nil {
			return fmt.Errorf("failed to select unclaimed items: %w", err)
		}
		defer rows.Close()

		items := make([]models.Item, 0, quantity)
		for rows.Next() {
			item := models.Item{ProductID: productID}
			if err := rows.Scan(&item.ID, &item.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan item: %w", err)
			}
			items = append(items, item)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate items: %w", err)
		}

		if len(items) < quantity {
			return ErrNotEnoughItems
		}

		err = tx.QueryRowContext(ctx, `INSERT INTO orders (id, product_id, email) VALUES ($1, $2, $3) RETURNING created_at`, order.ID, productID, email).
			Scan(&order.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range items {
			items[i].OrderID = &order.ID
		}
		order.Items = items

		result, err := tx.ExecContext(ctx, `UPDATE items SET order_id = $1 WHERE id = ANY($2) AND order_id IS NULL`, order.ID, pq.Array(order.ItemIDs()))
		if err != nil {
			return fmt.Errorf("failed to assign items: %w", err)
		}

		claimed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to count assigned items: %w", err)
		}

		if claimed != int64(quantity) {
			return fmt.Errorf("failed to assign items: claimed %d of %d", claimed, quantity)
		}

		if _, err := tx.ExecContext(ctx, unpublishIfEmptyQuery, productID); err != nil {
			return fmt.Errorf("failed to update published flag: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// Release returns an order's items to the unclaimed pool. Releasing twice is a no-op.
// Items of a trashed model are deleted instead of becoming sellable again.
func (r *itemRepository) Release(ctx context.Context, orderID uuid.UUID) (int, error) {
	var released int64

	err := withTx(ctx, r.DB, func(ctx context.Context, tx *sql.Tx) error {
		var productID int64
		var releasedAt *time.Time

		err := tx.QueryRowContext(ctx, `SELECT product_id, released_at FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&productID, &releasedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if releasedAt != nil {
			return nil
		}

		var id int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM product_models WHERE id = $1 FOR UPDATE`, productID).Scan(&id); err != nil {
			return fmt.Errorf("failed to lock product model: %w", err)
		}

		result, err := tx.ExecContext(ctx, `UPDATE items SET order_id = NULL WHERE order_id = $1`, orderID)
		if err != nil {
			return fmt.Errorf("failed to release items: %w", err)
		}

		if released, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to count released items: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE orders SET released_at = NOW() WHERE id = $1`, orderID); err != nil {
			return fmt.Errorf("failed to mark order released: %w", err)
		}

		query := `
			DELETE FROM items
			WHERE product_id = $1 AND order_id IS NULL
			  AND EXISTS (SELECT 1 FROM product_models WHERE id = $1 AND deleted_at IS NOT NULL)
		`
		if _, err := tx.ExecContext(ctx, query, productID); err != nil {
			return fmt.Errorf("failed to purge items of trashed model: %w", err)
		}

		return republishIfStocked(ctx, tx, productID)
	})
	if err != nil {
		return 0, err
	}

	return int(released), nil
}
