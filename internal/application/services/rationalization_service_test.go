package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seanokelly/analogmarket/internal/application/services"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mocks

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *entities.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]*entities.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Product), args.Error(1)
}

func (m *MockProductRepository) ListActive(ctx context.Context, limit int) ([]*entities.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Product), args.Error(1)
}

func (m *MockProductRepository) UpdateMetadata(ctx context.Context, id string, patch map[string]string) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

// stubEnricher satisfies services.ProductEnricher with a canned response and
// counts how many times it was consulted.
type stubEnricher struct {
	result *entities.ProductEnrichment
	calls  int
}

func (e *stubEnricher) Enrich(ctx context.Context, product *entities.Product, style string) *entities.ProductEnrichment {
	e.calls++
	return e.result
}

func completeProduct(id string) *entities.Product {
	return &entities.Product{
		ID:          id,
		Name:        "Canon AE-1 35mm SLR",
		Description: "Classic film camera in working order",
		Metadata: map[string]string{
			entities.MetaBrand:           "Canon",
			entities.MetaYear:            "1976",
			entities.MetaCategory:        entities.CategoryCamera,
			entities.MetaCondition:       entities.ConditionGood,
			entities.MetaLongDescription: "A beloved workhorse of the late seventies.",
			entities.MetaFeatures:        `["Shutter-priority AE","FD mount"]`,
			entities.MetaSellingPoints:   `["Fully tested","Recently serviced"]`,
		},
		IsActive: true,
	}
}

func cannedEnrichment() *entities.ProductEnrichment {
	return &entities.ProductEnrichment{
		Brand:           "Nikon",
		Year:            "1980",
		Category:        entities.CategoryCamera,
		Condition:       entities.ConditionExcellent,
		LongDescription: "The F3 paired electronic precision with a rugged titanium shutter.",
		Features:        []string{"Aperture-priority AE", "Titanium shutter"},
		SellingPoints:   []string{"Pro-grade build"},
		Confidence:      0.9,
		Source:          entities.EnrichmentSourceOpenAI,
	}
}

// Tests

func TestRationalizationService_SkipsCompleteProducts(t *testing.T) {
	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: cannedEnrichment()}
	service := services.NewRationalizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	products := []*entities.Product{completeProduct("p1"), completeProduct("p2")}
	repo.On("ListActive", mock.Anything, services.DefaultPageSize).Return(products, nil)

	report, err := service.RationalizeCatalog(context.Background(), services.RunOptions{})

	assert.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 0, report.Summary.Updated)
	assert.Equal(t, 0, report.Summary.Errors)
	assert.Equal(t, 0, enricher.calls, "complete products must not reach the backend")
	repo.AssertNotCalled(t, "UpdateMetadata", mock.Anything, mock.Anything, mock.Anything)
}

func TestRationalizationService_PerFieldGate(t *testing.T) {
	// brand holds a meaningful value, year holds a placeholder: only year
	// may change, even though the enrichment proposes a different brand.
	product := completeProduct("p1")
	product.Metadata[entities.MetaBrand] = "Sony"
	product.Metadata[entities.MetaYear] = "Unknown"

	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: cannedEnrichment()}
	service := services.NewRationalizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	repo.On("GetByID", mock.Anything, "p1").Return(product, nil)
	repo.On("UpdateMetadata", mock.Anything, "p1", mock.MatchedBy(func(patch map[string]string) bool {
		_, touchesBrand := patch[entities.MetaBrand]
		return !touchesBrand && patch[entities.MetaYear] == "1980"
	})).Return(nil)

	report, err := service.RationalizeProduct(context.Background(), "p1", services.RunOptions{})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Updated)

	record := report.Results[0]
	assert.NotContains(t, record.Changes, entities.MetaBrand)
	assert.Equal(t, entities.FieldChange{Before: "Unknown", After: "1980"}, record.Changes[entities.MetaYear])
	repo.AssertExpectations(t)
}

func TestRationalizationService_DryRunWritesNothing(t *testing.T) {
	product := completeProduct("p1")
	product.Metadata[entities.MetaYear] = ""
	product.Metadata[entities.MetaLongDescription] = "n/a"

	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: cannedEnrichment()}
	service := services.NewRationalizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	repo.On("GetByID", mock.Anything, "p1").Return(product, nil)

	report, err := service.RationalizeProduct(context.Background(), "p1", services.RunOptions{DryRun: true})

	assert.NoError(t, err)
	assert.True(t, report.Summary.DryRun)
	assert.Equal(t, 1, report.Summary.Updated, "dry run still reports what would change")
	assert.Contains(t, report.Results[0].Changes, entities.MetaYear)
	assert.Contains(t, report.Results[0].Changes, entities.MetaLongDescription)
	repo.AssertNotCalled(t, "UpdateMetadata", mock.Anything, mock.Anything, mock.Anything)
}

func TestRationalizationService_CopyWritesStampCopyGeneratedAt(t *testing.T) {
	product := completeProduct("p1")
	product.Metadata[entities.MetaLongDescription] = ""

	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: cannedEnrichment()}
	service := services.NewRationalizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	repo.On("GetByID", mock.Anything, "p1").Return(product, nil)
	repo.On("UpdateMetadata", mock.Anything, "p1", mock.MatchedBy(func(patch map[string]string) bool {
		return patch[entities.MetaCopyGeneratedAt] != "" &&
			patch[entities.MetaRationalizedAt] != "" &&
			patch[entities.MetaRationalizedBy] == entities.EnrichmentSourceOpenAI
	})).Return(nil)

	report, err := service.RationalizeProduct(context.Background(), "p1", services.RunOptions{})

	assert.NoError(t, err)
	assert.Equal(t, 1, report.Summary.CopyGenerated)
	repo.AssertExpectations(t)
}

func TestRationalizationService_BudgetStopsRunEarly(t *testing.T) {
	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: cannedEnrichment()}
	service := services.NewRationalizationService(repo, enricher, nil, nil, services.PipelineSettings{
		Budget: time.Nanosecond,
	})

	products := []*entities.Product{completeProduct("p1"), completeProduct("p2"), completeProduct("p3")}
	repo.On("ListActive", mock.Anything, services.DefaultPageSize).Return(products, nil)

	report, err := service.RationalizeCatalog(context.Background(), services.RunOptions{})

	assert.NoError(t, err)
	assert.True(t, report.Summary.PartialResult)
	assert.Less(t, report.Summary.Total, len(products))
	assert.Len(t, report.Results, report.Summary.Total, "every processed item has a record")
}

func TestRationalizationService_ErrorIsolation(t *testing.T) {
	// A write failure on one product must not stop the run or taint the
	// other records.
	products := make([]*entities.Product, 5)
	for i := range products {
		p := completeProduct("p" + string(rune('1'+i)))
		p.Metadata[entities.MetaYear] = "Unknown"
		products[i] = p
	}

	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: cannedEnrichment()}
	service := services.NewRationalizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	repo.On("ListActive", mock.Anything, services.DefaultPageSize).Return(products, nil)
	repo.On("UpdateMetadata", mock.Anything, "p3", mock.Anything).Return(errors.New("connection reset"))
	repo.On("UpdateMetadata", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	report, err := service.RationalizeCatalog(context.Background(), services.RunOptions{})

	assert.NoError(t, err)
	assert.Equal(t, 5, report.Summary.Total)
	assert.Equal(t, 4, report.Summary.Updated)
	assert.Equal(t, 1, report.Summary.Errors)

	var failed *entities.ChangeRecord
	for i := range report.Results {
		if report.Results[i].ProductID == "p3" {
			failed = &report.Results[i]
		}
	}
	if assert.NotNil(t, failed) {
		assert.False(t, failed.Success)
		assert.Contains(t, failed.Error, "connection reset")
	}
}

func TestRationalizationService_WriteBoundedByItemDeadline(t *testing.T) {
	// The store write runs under the same per-item deadline as the backend
	// call, so a hung write cannot outlive the run budget.
	product := completeProduct("p1")
	product.Metadata[entities.MetaYear] = "Unknown"

	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: cannedEnrichment()}
	service := services.NewRationalizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	repo.On("GetByID", mock.Anything, "p1").Return(product, nil)
	repo.On("UpdateMetadata", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= services.DefaultRunBudget
	}), "p1", mock.Anything).Return(nil)

	_, err := service.RationalizeProduct(context.Background(), "p1", services.RunOptions{})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRationalizationService_RequiresProductID(t *testing.T) {
	service := services.NewRationalizationService(new(MockProductRepository), &stubEnricher{}, nil, nil, services.PipelineSettings{})

	_, err := service.RationalizeProduct(context.Background(), "", services.RunOptions{})

	assert.Error(t, err)
}

func TestRationalizationService_ForceReEnrichesCompleteProduct(t *testing.T) {
	product := completeProduct("p1")

	repo := new(MockProductRepository)
	enricher := &stubEnricher{result: cannedEnrichment()}
	service := services.NewRationalizationService(repo, enricher, nil, nil, services.PipelineSettings{})

	repo.On("GetByID", mock.Anything, "p1").Return(product, nil)
	repo.On("UpdateMetadata", mock.Anything, "p1", mock.Anything).Return(nil)

	report, err := service.RationalizeProduct(context.Background(), "p1", services.RunOptions{Force: true})

	assert.NoError(t, err)
	assert.Equal(t, 1, enricher.calls)
	assert.Equal(t, 1, report.Summary.Updated)
	assert.Equal(t, entities.FieldChange{Before: "Canon", After: "Nikon"}, report.Results[0].Changes[entities.MetaBrand])
}
