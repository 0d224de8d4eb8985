package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seanokelly/analogmarket/internal/api/handlers"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
	"github.com/stretchr/testify/assert"
	apperrors "github.com/seanokelly/analogmarket/pkg/errors"
)

type stubProductRepo struct {
	products map[string]*entities.Product
	updates  []map[string]string
}

func newStubProductRepo(products ...*entities.Product) *stubProductRepo {
	repo := &stubProductRepo{products: map[string]*entities.Product{}}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *stubProductRepo) Create(ctx context.Context, product *entities.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *stubProductRepo) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	if product, ok := r.products[id]; ok {
		return product, nil
	}
	return nil, apperrors.NewNotFoundError("product with id " + id + " not found")
}

func (r *stubProductRepo) List(ctx context.Context, filter repositories.ProductFilter) ([]*entities.Product, error) {
	out := []*entities.Product{}
	for _, p := range r.products {
		if filter.Category != "" && p.Meta(entities.MetaCategory) != filter.Category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *stubProductRepo) ListActive(ctx context.Context, limit int) ([]*entities.Product, error) {
	out := []*entities.Product{}
	for _, p := range r.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) UpdateMetadata(ctx context.Context, id string, patch map[string]string) error {
	product, ok := r.products[id]
	if !ok {
		return apperrors.NewNotFoundError("product with id " + id + " not found")
	}
	for k, v := range patch {
		product.Metadata[k] = v
	}
	r.updates = append(r.updates, patch)
	return nil
}

func testProduct(id string) *entities.Product {
	return &entities.Product{
		ID:       id,
		Name:     "Nikon F3",
		IsActive: true,
		Metadata: map[string]string{
			entities.MetaCategory: entities.CategoryCamera,
		},
	}
}

func TestProductHandler_GetProduct(t *testing.T) {
	repo := newStubProductRepo(testProduct("p1"))
	handler := handlers.NewProductHandler(repo, nil)

	req := httptest.NewRequest("GET", "/api/products/p1", nil)
	req.SetPathValue("id", "p1")
	w := httptest.NewRecorder()

	handler.GetProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got entities.Product
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Nikon F3", got.Name)
}

func TestProductHandler_GetProduct_NotFound(t *testing.T) {
	handler := handlers.NewProductHandler(newStubProductRepo(), nil)

	req := httptest.NewRequest("GET", "/api/products/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	handler.GetProduct(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_ListProducts(t *testing.T) {
	repo := newStubProductRepo(testProduct("p1"), testProduct("p2"))
	handler := handlers.NewProductHandler(repo, nil)

	req := httptest.NewRequest("GET", "/api/products?category=camera", nil)
	w := httptest.NewRecorder()

	handler.ListProducts(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Products []*entities.Product `json:"products"`
		Count    int                 `json:"count"`
	}
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 2, response.Count)
}
