package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/itemstore/internal/models"
	"github.com/google/uuid"
)

// CartRepository is the durable cart store for authenticated users.
type CartRepository interface {
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	SaveCart(ctx context.Context, userID uuid.UUID, cart *models.Cart) error
	DeleteCart(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	DB *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepository {
	return &cartRepository{DB: db}
}

func (r *cartRepository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	dbCtx, cancel := withDBTimeout(ctx)
	defer cancel()

	query := `SELECT lines FROM carts WHERE user_id = $1`

	var linesJSON []byte

	err := r.DB.QueryRowContext(dbCtx, query, userID).Scan(&linesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	cart := models.NewCart()
	if err := json.Unmarshal(linesJSON, &cart.Lines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart lines: %w", err)
	}

	return cart, nil
}

// SaveCart overwrites the stored lines, so repeating the same save leaves the same state.
func (r *cartRepository) SaveCart(ctx context.Context, userID uuid.UUID, cart *models.Cart) error {
	dbCtx, cancel := withDBTimeout(ctx)
	defer cancel()

	linesJSON, err := json.Marshal(cart.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal cart lines: %w", err)
	}

	query := `
		INSERT INTO carts (user_id, lines, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET lines = EXCLUDED.lines, updated_at = NOW()
	`

	if _, err := r.DB.ExecContext(dbCtx, query, userID, linesJSON); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

func (r *cartRepository) DeleteCart(ctx context.Context, userID uuid.UUID) error {
	dbCtx, cancel := withDBTimeout(ctx)
	defer cancel()

	if _, err := r.DB.ExecContext(dbCtx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	return nil
}
