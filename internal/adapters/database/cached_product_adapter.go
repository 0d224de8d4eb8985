package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/providers"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
)

// CachedProductAdapter wraps a ProductRepository with caching
type CachedProductAdapter struct {
	adapter repositories.ProductRepository
	cache   providers.CacheProvider
}

// NewCachedProductAdapter creates a new cached product adapter
func NewCachedProductAdapter(adapter repositories.ProductRepository, cache providers.CacheProvider) repositories.ProductRepository {
	return &CachedProductAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Cache TTLs (in seconds)
const (
	productByIDTTL = 300 // 5 minutes for single product
)

func productCacheKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

// GetByID retrieves a product by ID with caching
func (a *CachedProductAdapter) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	cacheKey := productCacheKey(id)

	// Try to get from cache first
	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var product entities.Product
		if err := json.Unmarshal(cached, &product); err == nil {
			return &product, nil
		}
		// If unmarshal fails, continue to fetch from DB
		log.Printf("Failed to unmarshal cached product %s: %v", id, err)
	}

	// Cache miss - fetch from database
	product, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Update cache asynchronously to avoid blocking the response
	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(product); err == nil {
			if err := a.cache.Set(bgCtx, cacheKey, data, productByIDTTL); err != nil {
				log.Printf("Failed to cache product %s: %v", id, err)
			}
		}
	}()

	return product, nil
}

// List passes through uncached: filtered pages are cheap and callers expect
// them to reflect the latest writes.
func (a *CachedProductAdapter) List(ctx context.Context, filter repositories.ProductFilter) ([]*entities.Product, error) {
	return a.adapter.List(ctx, filter)
}

// ListActive passes through uncached. It feeds batch runs, and a stale page
// would make a re-run re-enrich products that were already completed.
func (a *CachedProductAdapter) ListActive(ctx context.Context, limit int) ([]*entities.Product, error) {
	return a.adapter.ListActive(ctx, limit)
}

// Create creates a product
func (a *CachedProductAdapter) Create(ctx context.Context, product *entities.Product) error {
	return a.adapter.Create(ctx, product)
}

// UpdateMetadata merge-updates metadata and invalidates the product's cache
// entry. Invalidation is synchronous so a reload immediately after the write
// sees the fresh row.
func (a *CachedProductAdapter) UpdateMetadata(ctx context.Context, id string, patch map[string]string) error {
	if err := a.adapter.UpdateMetadata(ctx, id, patch); err != nil {
		return err
	}

	if err := a.cache.Delete(ctx, productCacheKey(id)); err != nil {
		log.Printf("Failed to invalidate product cache %s: %v", id, err)
	}

	return nil
}
