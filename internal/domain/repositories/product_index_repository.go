package repositories

import (
	"context"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
)

// ProductSearchParams are the storefront search inputs.
type ProductSearchParams struct {
	Query    string
	Category string
	Limit    int
	Offset   int
}

// ProductIndexRepository keeps the storefront search index in sync with the
// product store. Indexing failures are non-fatal to the pipeline.
type ProductIndexRepository interface {
	// IndexProduct upserts the product's search document
	IndexProduct(ctx context.Context, product *entities.Product) error

	// Search returns IDs of matching products, best match first
	Search(ctx context.Context, params ProductSearchParams) ([]string, error)

	// DeleteProduct removes a product's search document
	DeleteProduct(ctx context.Context, id string) error
}
