package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/seanokelly/analogmarket/internal/application/services"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockEnrichmentProvider struct {
	mock.Mock
}

func (m *MockEnrichmentProvider) EnrichProduct(ctx context.Context, product *entities.Product, style string) (*entities.ProductEnrichment, error) {
	args := m.Called(ctx, product, style)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProductEnrichment), args.Error(1)
}

func TestFallbackEnricher_UsesProviderResult(t *testing.T) {
	provider := new(MockEnrichmentProvider)
	enricher := services.NewFallbackEnricher(provider)

	product := uncategorizedProduct("p1")
	want := categorization(0.85)
	provider.On("EnrichProduct", mock.Anything, product, "practical").Return(want, nil)

	got := enricher.Enrich(context.Background(), product, "practical")

	assert.Equal(t, want, got)
	provider.AssertExpectations(t)
}

func TestFallbackEnricher_FallsBackToRulesOnError(t *testing.T) {
	provider := new(MockEnrichmentProvider)
	enricher := services.NewFallbackEnricher(provider)

	product := uncategorizedProduct("p1")
	provider.On("EnrichProduct", mock.Anything, product, "").Return(nil, errors.New("upstream 502"))

	got := enricher.Enrich(context.Background(), product, "")

	assert.Equal(t, entities.EnrichmentSourceRules, got.Source)
	assert.Equal(t, entities.CategoryAccessory, got.Category)
	assert.Equal(t, "tripod", got.Subcategory)
	assert.LessOrEqual(t, got.Confidence, 0.5, "heuristic results must sit below the acceptance threshold")
}

func TestFallbackEnricher_NilProviderUsesRules(t *testing.T) {
	enricher := services.NewFallbackEnricher(nil)

	got := enricher.Enrich(context.Background(), uncategorizedProduct("p1"), "")

	assert.Equal(t, entities.EnrichmentSourceRules, got.Source)
	assert.NotEmpty(t, got.Category)
}
