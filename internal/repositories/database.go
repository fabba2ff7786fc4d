package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/aaravmahajanofficial/itemstore/internal/config"
	"go.opentelemetry.io/otel/attribute"

	_ "github.com/lib/pq"
)

type Repository struct {
	DB       *sql.DB
	Products ProductRepository
	Items    ItemRepository
	Orders   OrderRepository
	Carts    CartRepository
}

func New(ctx context.Context, cfg *config.Config) (*Repository, error) {

	db, err := otelsql.Open("postgres", cfg.Database.GetDSN(),
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	pingCtx, cancel := withDBTimeout(ctx)
	defer cancel()

	// Test the connection to make sure DB is reachable
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewFromDB(db), nil
}

// NewFromDB wires every repository onto an already opened handle.
func NewFromDB(db *sql.DB) *Repository {
	return &Repository{
		DB:       db,
		Products: NewProductRepo(db),
		Items:    NewItemRepo(db),
		Orders:   NewOrderRepo(db),
		Carts:    NewCartRepo(db),
	}
}

func (p *Repository) Close() error {
	return p.DB.Close()
}
