package repositories

import (
	"context"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
)

// ProductRepository defines the interface for product data operations
type ProductRepository interface {
	// Create creates a new product
	Create(ctx context.Context, product *entities.Product) error

	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id string) (*entities.Product, error)

	// List retrieves products with filters
	List(ctx context.Context, filter ProductFilter) ([]*entities.Product, error)

	// ListActive retrieves up to limit active products in insertion order.
	// This is the candidate set for a catalog-wide pipeline run.
	ListActive(ctx context.Context, limit int) ([]*entities.Product, error)

	// UpdateMetadata merge-updates the product's metadata map: keys present
	// in patch are written, all other keys are preserved.
	UpdateMetadata(ctx context.Context, id string, patch map[string]string) error
}

// ProductFilter defines filters for listing products
type ProductFilter struct {
	Category string
	IsActive *bool
	Limit    int
	Offset   int
}
