package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seanokelly/analogmarket/internal/api/handlers"
	"github.com/seanokelly/analogmarket/internal/application/services"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/stretchr/testify/assert"
)

type ruleOnlyEnricher struct{}

func (ruleOnlyEnricher) Enrich(ctx context.Context, product *entities.Product, style string) *entities.ProductEnrichment {
	return &entities.ProductEnrichment{
		Brand:      "Nikon",
		Year:       "1980",
		Category:   entities.CategoryCamera,
		Condition:  entities.ConditionGood,
		Confidence: 0.9,
		Source:     entities.EnrichmentSourceOpenAI,
	}
}

func newTestHandler(repo *stubProductRepo) *handlers.RationalizationHandler {
	settings := services.PipelineSettings{}
	return handlers.NewRationalizationHandler(
		services.NewRationalizationService(repo, ruleOnlyEnricher{}, nil, nil, settings),
		services.NewCategorizationService(repo, ruleOnlyEnricher{}, nil, nil, settings),
		services.NewCatalogStatusService(repo, settings),
		nil,
		0,
	)
}

func TestRationalizationHandler_RationalizeProduct(t *testing.T) {
	product := testProduct("p1")
	product.Metadata[entities.MetaBrand] = "unknown"
	repo := newStubProductRepo(product)
	handler := newTestHandler(repo)

	req := httptest.NewRequest("POST", "/api/admin/products/p1/rationalize", nil)
	req.SetPathValue("id", "p1")
	w := httptest.NewRecorder()

	handler.RationalizeProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var report entities.RunReport
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, 1, report.Summary.Updated)
	assert.Len(t, repo.updates, 1)
	assert.Equal(t, "Nikon", product.Meta(entities.MetaBrand))
}

func TestRationalizationHandler_RationalizeProduct_NotFound(t *testing.T) {
	handler := newTestHandler(newStubProductRepo())

	req := httptest.NewRequest("POST", "/api/admin/products/missing/rationalize", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	handler.RationalizeProduct(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRationalizationHandler_DryRunQueryFlag(t *testing.T) {
	product := testProduct("p1")
	product.Metadata[entities.MetaBrand] = ""
	repo := newStubProductRepo(product)
	handler := newTestHandler(repo)

	req := httptest.NewRequest("POST", "/api/admin/products/p1/rationalize?dryRun=true", nil)
	req.SetPathValue("id", "p1")
	w := httptest.NewRecorder()

	handler.RationalizeProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var report entities.RunReport
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.True(t, report.Summary.DryRun)
	assert.Empty(t, repo.updates, "dry run must not write")
}

func TestRationalizationHandler_CategorizeCatalogForce(t *testing.T) {
	product := testProduct("p1")
	repo := newStubProductRepo(product)
	handler := newTestHandler(repo)

	req := httptest.NewRequest("POST", "/api/admin/products/categorize?force=true", nil)
	w := httptest.NewRecorder()

	handler.CategorizeCatalog(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var report entities.RunReport
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, 1, report.Summary.Total)
}

func TestRationalizationHandler_CategorizeProduct(t *testing.T) {
	product := testProduct("p1")
	delete(product.Metadata, entities.MetaCategory)
	repo := newStubProductRepo(product)
	handler := newTestHandler(repo)

	req := httptest.NewRequest("POST", "/api/admin/products/p1/categorize", nil)
	req.SetPathValue("id", "p1")
	w := httptest.NewRecorder()

	handler.CategorizeProduct(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var report entities.RunReport
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, 1, report.Summary.Categorized)
	assert.Equal(t, entities.CategoryCamera, product.Meta(entities.MetaCategory))
}

func TestRationalizationHandler_GetCatalogStatus(t *testing.T) {
	product := testProduct("p1")
	product.Metadata = map[string]string{}
	repo := newStubProductRepo(product)
	handler := newTestHandler(repo)

	req := httptest.NewRequest("GET", "/api/admin/products/rationalize/status", nil)
	w := httptest.NewRecorder()

	handler.GetCatalogStatus(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status services.CatalogStatus
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, 1, status.TotalProducts)
	assert.Equal(t, 1, status.NeedingAttention)
}
