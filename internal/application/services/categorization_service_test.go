package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/seanokelly/analogmarket/internal/application/services"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func uncategorizedProduct(id string) *entities.Product {
	return &entities.Product{
		ID:          id,
		Name:        "Manfrotto 190X Tripod",
		Description: "Sturdy aluminum tripod with three leg sections",
		Metadata:    map[string]string{entities.MetaBrand: "Manfrotto"},
		IsActive:    true,
	}
}

func categorization(confidence float64) *entities.ProductEnrichment {
	return &entities.ProductEnrichment{
		Brand:       "Manfrotto",
		Category:    entities.CategoryAccessory,
		Subcategory: "tripod",
		Confidence:  confidence,
		Source:      entities.EnrichmentSourceOpenAI,
	}
}

func TestCategorizationService_ThresholdBoundary(t *testing.T) {
	t.Run("confidence just below threshold is not written", func(t *testing.T) {
		repo := new(MockProductRepository)
		enricher := &stubEnricher{result: categorization(0.69)}
		service := services.NewCategorizationService(repo, enricher, nil, nil, services.PipelineSettings{})

		repo.On("GetByID", mock.Anything, "p1").Return(uncategorizedProduct("p1"), nil)

		report, err := service.CategorizeProduct(context.Background(), "p1", services.RunOptions{})

		assert.NoError(t, err)
		assert.Equal(t, 0, report.Summary.Categorized)
		// The rejected candidate stays visible in the record
		assert.Equal(t, entities.CategoryAccessory, report.Results[0].Category)
		assert.Empty(t, report.Results[0].Changes)
		repo.AssertNotCalled(t, "UpdateMetadata", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("confidence exactly at threshold is written", func(t *testing.T) {
		repo := new(MockProductRepository)
		enricher := &stubEnricher{result: categorization(0.70)}
		service := services.NewCategorizationService(repo, enricher, nil, nil, services.PipelineSettings{})

		repo.On("GetByID", mock.Anything, "p1").Return(uncategorizedProduct("p1"), nil)
		repo.On("UpdateMetadata", mock.Anything, "p1", mock.MatchedBy(func(patch map[string]string) bool {
			return patch[entities.MetaCategory] == entities.CategoryAccessory &&
				patch[entities.MetaSubcategory] == "tripod" &&
				patch[entities.MetaCategorizedByLLM] == entities.EnrichmentSourceOpenAI &&
				patch[entities.MetaCategorizedAt] != ""
		})).Return(nil)

		report, err := service.CategorizeProduct(context.Background(), "p1", services.RunOptions{})

		assert.NoError(t, err)
		assert.Equal(t, 1, report.Summary.Categorized)
		assert.Equal(t, 1, report.Summary.Accessories)
		repo.AssertExpectations(t)
	})
}

func TestCategorizationService_SkipsCategorizedUnlessForced(t *testing.T) {
	product := uncategorizedProduct("p1")
	product.Metadata[entities.MetaCategory] = entities.CategoryCamera

	t.Run("without force", func(t *testing.T) {
		repo := new(MockProductRepository)
		enricher := &stubEnricher{result: categorization(0.95)}
		service := services.NewCategorizationService(repo, enricher, nil, nil, services.PipelineSettings{})

		repo.On("GetByID", mock.Anything, "p1").Return(product, nil)

		report, err := service.CategorizeProduct(context.Background(), "p1", services.RunOptions{})

		assert.NoError(t, err)
		assert.Equal(t, 0, enricher.calls)
		assert.Equal(t, 0, report.Summary.Categorized)
		assert.Equal(t, 1, report.Summary.Cameras, "existing category still tallied")
	})

	t.Run("with force", func(t *testing.T) {
		repo := new(MockProductRepository)
		enricher := &stubEnricher{result: categorization(0.95)}
		service := services.NewCategorizationService(repo, enricher, nil, nil, services.PipelineSettings{})

		repo.On("GetByID", mock.Anything, "p1").Return(product, nil)
		repo.On("UpdateMetadata", mock.Anything, "p1", mock.Anything).Return(nil)

		report, err := service.CategorizeProduct(context.Background(), "p1", services.RunOptions{Force: true})

		assert.NoError(t, err)
		assert.Equal(t, 1, enricher.calls)
		assert.Equal(t, 1, report.Summary.Categorized)
		assert.Equal(t, entities.FieldChange{Before: entities.CategoryCamera, After: entities.CategoryAccessory},
			report.Results[0].Changes[entities.MetaCategory])
	})
}

func TestCategorizationService_SubcategoryOnlyForAccessories(t *testing.T) {
	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: &entities.ProductEnrichment{
		Category:    entities.CategoryCamera,
		Subcategory: "tripod",
		Confidence:  0.9,
		Source:      entities.EnrichmentSourceOpenAI,
	}}
	service := services.NewCategorizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	product := uncategorizedProduct("p1")
	repo.On("GetByID", mock.Anything, "p1").Return(product, nil)
	repo.On("UpdateMetadata", mock.Anything, "p1", mock.MatchedBy(func(patch map[string]string) bool {
		_, hasSub := patch[entities.MetaSubcategory]
		return patch[entities.MetaCategory] == entities.CategoryCamera && !hasSub
	})).Return(nil)

	_, err := service.CategorizeProduct(context.Background(), "p1", services.RunOptions{})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCategorizationService_WriteBoundedByItemDeadline(t *testing.T) {
	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: categorization(0.9)}
	service := services.NewCategorizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	repo.On("GetByID", mock.Anything, "p1").Return(uncategorizedProduct("p1"), nil)
	repo.On("UpdateMetadata", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= services.DefaultRunBudget
	}), "p1", mock.Anything).Return(nil)

	_, err := service.CategorizeProduct(context.Background(), "p1", services.RunOptions{})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCategorizationService_DryRun(t *testing.T) {
	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: categorization(0.9)}
	service := services.NewCategorizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	repo.On("ListActive", mock.Anything, services.DefaultPageSize).Return([]*entities.Product{uncategorizedProduct("p1")}, nil)

	report, err := service.CategorizeCatalog(context.Background(), services.RunOptions{DryRun: true})

	assert.NoError(t, err)
	assert.True(t, report.Summary.DryRun)
	assert.Contains(t, report.Results[0].Changes, entities.MetaCategory)
	repo.AssertNotCalled(t, "UpdateMetadata", mock.Anything, mock.Anything, mock.Anything)
}
