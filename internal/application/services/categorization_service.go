package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/providers"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
	apperrors "github.com/seanokelly/analogmarket/pkg/errors"
)

// CategorizationThreshold is the minimum confidence at which a derived
// category is trusted enough to persist. Boundary inclusive.
const CategorizationThreshold = 0.70

// CategorizationService assigns each product to the two-tag taxonomy using
// the enricher, gated by a confidence threshold: below it, the candidate is
// recorded for visibility but nothing is written.
type CategorizationService struct {
	productRepo repositories.ProductRepository
	enricher    ProductEnricher
	indexRepo   repositories.ProductIndexRepository
	eventBus    providers.EventBus
	settings    PipelineSettings
}

// NewCategorizationService creates a new categorization service. indexRepo
// and eventBus are optional.
func NewCategorizationService(
	productRepo repositories.ProductRepository,
	enricher ProductEnricher,
	indexRepo repositories.ProductIndexRepository,
	eventBus providers.EventBus,
	settings PipelineSettings,
) *CategorizationService {
	return &CategorizationService{
		productRepo: productRepo,
		enricher:    enricher,
		indexRepo:   indexRepo,
		eventBus:    eventBus,
		settings:    settings.withDefaults(),
	}
}

// CategorizeProduct runs categorization over a single product.
func (s *CategorizationService) CategorizeProduct(ctx context.Context, productID string, opts RunOptions) (*entities.RunReport, error) {
	if productID == "" {
		return nil, apperrors.NewValidationError("product ID is required")
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("product not found: " + productID)
	}

	return s.run(ctx, []*entities.Product{product}, opts), nil
}

// CategorizeCatalog runs categorization over a page of active products.
func (s *CategorizationService) CategorizeCatalog(ctx context.Context, opts RunOptions) (*entities.RunReport, error) {
	products, err := s.productRepo.ListActive(ctx, s.settings.PageSize)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list active products", err)
	}

	return s.run(ctx, products, opts), nil
}

func (s *CategorizationService) run(ctx context.Context, products []*entities.Product, opts RunOptions) *entities.RunReport {
	runID := uuid.NewString()
	start := time.Now()
	report := &entities.RunReport{
		Summary: entities.RunSummary{DryRun: opts.DryRun},
		Results: []entities.ChangeRecord{},
	}

	log.Info().
		Str("run_id", runID).
		Int("candidates", len(products)).
		Bool("dry_run", opts.DryRun).
		Bool("force", opts.Force).
		Msg("categorization run started")

	for i, product := range products {
		if time.Since(start) >= s.settings.Budget {
			report.Summary.PartialResult = true
			log.Warn().
				Str("run_id", runID).
				Int("processed", i).
				Int("candidates", len(products)).
				Msg("run budget exceeded, stopping early")
			break
		}

		record, skipped := s.processOne(ctx, product, opts, start, len(products)-i)

		report.Results = append(report.Results, record)
		report.Summary.Total++
		if !record.Success {
			report.Summary.Errors++
		}
		if record.Success && len(record.Changes) > 0 {
			report.Summary.Updated++
			report.Summary.Categorized++
		}
		tallyCategory(&report.Summary, record.Category)

		if !skipped && s.settings.PaceDelay > 0 {
			time.Sleep(s.settings.PaceDelay)
		}
	}

	log.Info().
		Str("run_id", runID).
		Int("total", report.Summary.Total).
		Int("categorized", report.Summary.Categorized).
		Int("errors", report.Summary.Errors).
		Bool("partial", report.Summary.PartialResult).
		Dur("elapsed", time.Since(start)).
		Msg("categorization run finished")

	return report
}

func (s *CategorizationService) processOne(ctx context.Context, product *entities.Product, opts RunOptions, start time.Time, remaining int) (entities.ChangeRecord, bool) {
	record := entities.ChangeRecord{
		ProductID:   product.ID,
		Name:        product.Name,
		Changes:     map[string]entities.FieldChange{},
		Category:    product.Meta(entities.MetaCategory),
		Subcategory: product.Meta(entities.MetaSubcategory),
		Success:     true,
	}

	if !opts.Force && !product.MetaMissing(entities.MetaCategory) {
		// Already categorized: no external call, no write
		return record, true
	}

	// The item deadline covers the store write and post-write fan-out too,
	// not just the backend call.
	itemCtx, cancel := context.WithTimeout(ctx, itemTimeout(s.settings.Budget, time.Since(start), remaining))
	defer cancel()

	enriched := s.enricher.Enrich(itemCtx, product, "")

	record.Category = enriched.Category
	record.Subcategory = enriched.Subcategory

	// Threshold gate: the whole result is accepted or nothing is. A
	// below-threshold candidate stays visible in the record but is not
	// written.
	if enriched.Confidence < CategorizationThreshold {
		log.Debug().
			Str("product_id", product.ID).
			Float64("confidence", enriched.Confidence).
			Str("source", enriched.Source).
			Msg("categorization below threshold, not applied")
		return record, false
	}

	record.Changes = categoryChangeSet(product, enriched)
	if len(record.Changes) == 0 || opts.DryRun {
		return record, false
	}

	patch := patchFromChanges(record.Changes)
	patch[entities.MetaCategorizedByLLM] = enriched.Source
	patch[entities.MetaCategorizedAt] = time.Now().UTC().Format(time.RFC3339)

	if err := s.productRepo.UpdateMetadata(itemCtx, product.ID, patch); err != nil {
		record.Success = false
		record.Error = err.Error()
		return record, false
	}

	publishWrite(itemCtx, s.productRepo, s.indexRepo, s.eventBus, product.ID, entities.ProductEventTypeCategorized, record.Changes)
	return record, false
}

// categoryChangeSet builds the before/after map for the category fields.
// Subcategory is only ever written for accessories.
func categoryChangeSet(product *entities.Product, enriched *entities.ProductEnrichment) map[string]entities.FieldChange {
	changes := map[string]entities.FieldChange{}

	if before := product.Meta(entities.MetaCategory); before != enriched.Category && enriched.Category != "" {
		changes[entities.MetaCategory] = entities.FieldChange{Before: before, After: enriched.Category}
	}
	if enriched.Category == entities.CategoryAccessory && enriched.Subcategory != "" {
		if before := product.Meta(entities.MetaSubcategory); before != enriched.Subcategory {
			changes[entities.MetaSubcategory] = entities.FieldChange{Before: before, After: enriched.Subcategory}
		}
	}

	return changes
}
