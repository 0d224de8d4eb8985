package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/postgres"
	apperrors "github.com/seanokelly/analogmarket/pkg/errors"
)

var productColumns = []interface{}{
	"id", "name", "description", "images", "metadata",
	"is_active", "created_at", "updated_at",
}

// ProductAdapter implements ProductRepository on Postgres. Metadata lives in
// a jsonb column so enrichment writes can merge-update it server-side.
type ProductAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProductAdapter creates a new product adapter
func NewProductAdapter(client *postgres.Client) repositories.ProductRepository {
	return &ProductAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new product
func (a *ProductAdapter) Create(ctx context.Context, product *entities.Product) error {
	metadata, err := marshalMetadata(product.Metadata)
	if err != nil {
		return apperrors.NewInternalError("failed to encode product metadata", err)
	}

	record := goqu.Record{
		"id":          product.ID,
		"name":        product.Name,
		"description": product.Description,
		"images":      pq.Array(product.Images),
		"metadata":    metadata,
		"is_active":   product.IsActive,
		"created_at":  product.CreatedAt,
		"updated_at":  product.UpdatedAt,
	}

	query, args, err := a.db.Insert("products").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create product", err)
	}

	return nil
}

// GetByID retrieves a product by ID
func (a *ProductAdapter) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	query, args, err := a.db.Select(productColumns...).
		From("products").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	product, err := scanProduct(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get product", err)
	}

	return product, nil
}

// List retrieves products with filters
func (a *ProductAdapter) List(ctx context.Context, filter repositories.ProductFilter) ([]*entities.Product, error) {
	ds := a.db.Select(productColumns...).From("products")

	if filter.Category != "" {
		ds = ds.Where(goqu.L("metadata->>'category'").Eq(filter.Category))
	}
	if filter.IsActive != nil {
		ds = ds.Where(goqu.Ex{"is_active": *filter.IsActive})
	}

	ds = ds.Order(goqu.I("created_at").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryProducts(ctx, query, args)
}

// ListActive retrieves up to limit active products in insertion order
func (a *ProductAdapter) ListActive(ctx context.Context, limit int) ([]*entities.Product, error) {
	query, args, err := a.db.Select(productColumns...).
		From("products").
		Where(goqu.Ex{"is_active": true}).
		Order(goqu.I("created_at").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryProducts(ctx, query, args)
}

// UpdateMetadata merge-updates the product's metadata. The merge happens in
// the database (jsonb ||), so keys outside the patch are never rewritten.
func (a *ProductAdapter) UpdateMetadata(ctx context.Context, id string, patch map[string]string) error {
	if len(patch) == 0 {
		return nil
	}

	encoded, err := marshalMetadata(patch)
	if err != nil {
		return apperrors.NewInternalError("failed to encode metadata patch", err)
	}

	query := `
		UPDATE products
		SET metadata = COALESCE(metadata, '{}'::jsonb) || $2::jsonb, updated_at = $3
		WHERE id = $1
	`

	result, err := a.client.DB().ExecContext(ctx, query, id, encoded, time.Now())
	if err != nil {
		return apperrors.NewInternalError("failed to update product metadata", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to check update result", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
	}

	return nil
}

func (a *ProductAdapter) queryProducts(ctx context.Context, query string, args []interface{}) ([]*entities.Product, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list products", err)
	}
	defer rows.Close()

	products := []*entities.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan product", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read products", err)
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*entities.Product, error) {
	product := &entities.Product{}
	var metadata []byte

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		pq.Array(&product.Images),
		&metadata,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.Metadata = map[string]string{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &product.Metadata); err != nil {
			return nil, err
		}
	}

	return product, nil
}

func marshalMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return json.Marshal(metadata)
}
