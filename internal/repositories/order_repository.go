package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/itemstore/internal/models"
	"github.com/google/uuid"
)

type OrderRepository interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

/*
Get the order
Get the items it currently owns
*/
func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := withDBTimeout(ctx)
	defer cancel()

	order := &models.Order{ID: id}

	query := `
		SELECT product_id, email, created_at, released_at
		FROM orders
		WHERE id = $1
	`

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&order.ProductID, &order.Email, &order.CreatedAt, &order.ReleasedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	query = `
		SELECT id, created_at
		FROM items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.DB.QueryContext(dbCtx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}
	defer rows.Close()

	order.Items = []models.Item{}

	for rows.Next() {
		item := models.Item{ProductID: order.ProductID, OrderID: &order.ID}

		if err := rows.Scan(&item.ID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}

	return order, nil
}
