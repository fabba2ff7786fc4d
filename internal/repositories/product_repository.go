package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/itemstore/internal/models"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, model *models.ProductModel, itemCount int) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

type productRepository struct {
	DB *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepository {
	return &productRepository{DB: db}
}

// CreateProduct inserts the model and its initial stock in one transaction.
func (r *productRepository) CreateProduct(ctx context.Context, model *models.ProductModel, itemCount int) error {
	return withTx(ctx, r.DB, func(ctx context.Context, tx *sql.Tx) error {
		query := `
			INSERT INTO product_models (brand_id, name, description, published, auto_unpublished, price, image_path)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRowContext(ctx, query, model.BrandID, model.Name, model.Description, model.Published, model.AutoUnpublished, model.Price, model.ImagePath).
			Scan(&model.ID, &model.CreatedAt, &model.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert product model: %w", err)
		}

		if itemCount > 0 {
			if err := insertItems(ctx, tx, model.ID, itemCount); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetProduct loads a model, trashed or not, together with its current unclaimed count.
func (r *productRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	dbCtx, cancel := withDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT m.id, m.brand_id, m.name, m.description, m.published, m.auto_unpublished, m.price, m.image_path,
		       m.created_at, m.updated_at, m.deleted_at,
		       (SELECT COUNT(*) FROM items i WHERE i.product_id = m.id AND i.order_id IS NULL)
		FROM product_models m
		WHERE m.id = $1
	`

	model := &models.ProductModel{}
	var remaining int

	err := r.DB.QueryRowContext(dbCtx, query, id).Scan(&model.ID, &model.BrandID, &model.Name, &model.Description, &model.Published, &model.AutoUnpublished, &model.Price, &model.ImagePath, &model.CreatedAt, &model.UpdatedAt, &model.DeletedAt, &remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("querying database: %w", err)
	}

	return models.NewProduct(model, remaining), nil
}

func insertItems(ctx context.Context, tx *sql.Tx, productID int64, count int) error {
	query := `INSERT INTO items (product_id) SELECT $1 FROM generate_series(1, $2)`

	if _, err := tx.ExecContext(ctx, query, productID, count); err != nil {
		return fmt.Errorf("failed to insert items: %w", err)
	}

	return nil
}
