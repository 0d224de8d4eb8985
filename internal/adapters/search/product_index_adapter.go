package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
	tsclient "github.com/seanokelly/analogmarket/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const collectionName = tsclient.ProductsCollection

// ProductIndexAdapter implements product search indexing using Typesense
type ProductIndexAdapter struct {
	client *tsclient.Client
}

var _ repositories.ProductIndexRepository = (*ProductIndexAdapter)(nil)

// NewProductIndexAdapter creates a new Typesense product index adapter
func NewProductIndexAdapter(client *tsclient.Client) *ProductIndexAdapter {
	return &ProductIndexAdapter{client: client}
}

// buildProductDocument flattens enriched metadata into facetable fields so
// the storefront can filter on them. Missing values are omitted entirely so
// they never match filters.
func buildProductDocument(product *entities.Product) map[string]interface{} {
	document := map[string]interface{}{
		"id":          product.ID,
		"name":        product.Name,
		"description": product.Description,
		"is_active":   product.IsActive,
		"created_at":  product.CreatedAt.Unix(),
	}

	for docField, metaKey := range map[string]string{
		"brand":       entities.MetaBrand,
		"year":        entities.MetaYear,
		"category":    entities.MetaCategory,
		"subcategory": entities.MetaSubcategory,
		"condition":   entities.MetaCondition,
	} {
		if value := product.Meta(metaKey); !entities.IsMissingValue(value) {
			document[docField] = value
		}
	}

	return document
}

// IndexProduct upserts a product's search document
func (a *ProductIndexAdapter) IndexProduct(ctx context.Context, product *entities.Product) error {
	_, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, buildProductDocument(product))
	if err != nil {
		return fmt.Errorf("failed to index product: %w", err)
	}

	return nil
}

// Search returns the IDs of products matching the params
func (a *ProductIndexAdapter) Search(ctx context.Context, params repositories.ProductSearchParams) ([]string, error) {
	if params.Limit <= 0 {
		params.Limit = 20
	}

	query := strings.TrimSpace(params.Query)
	if query == "" {
		query = "*"
	}

	filters := []string{"is_active:=true"}
	if params.Category != "" {
		filters = append(filters, fmt.Sprintf("category:=%s", params.Category))
	}

	searchParams := &api.SearchCollectionParams{
		Q:        pointer.String(query),
		QueryBy:  pointer.String("name,description,brand"),
		FilterBy: pointer.String(strings.Join(filters, " && ")),
		Page:     pointer.Int(params.Offset/params.Limit + 1),
		PerPage:  pointer.Int(params.Limit),
	}

	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	ids := []string{}
	if result.Hits == nil {
		return ids, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		if id, ok := doc["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// DeleteProduct removes a product from the index
func (a *ProductIndexAdapter) DeleteProduct(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(collectionName).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete product from index: %w", err)
	}
	return nil
}
