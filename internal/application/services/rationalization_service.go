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

// factFields are the metadata fields the rationalization flow derives values
// for, gated per field by the missing-value convention.
var factFields = []string{
	entities.MetaBrand,
	entities.MetaYear,
	entities.MetaCondition,
}

// copyFields are the generated-copy metadata fields. Writing any of them
// stamps copyGeneratedAt.
var copyFields = []string{
	entities.MetaLongDescription,
	entities.MetaFeatures,
	entities.MetaSellingPoints,
}

// RationalizationService scans products for incomplete or placeholder
// metadata, derives correct values through the enricher, and writes accepted
// deltas back to the product store with provenance stamps. Re-running it is
// always safe: complete, non-forced products are skipped without any
// external call.
type RationalizationService struct {
	productRepo repositories.ProductRepository
	enricher    ProductEnricher
	indexRepo   repositories.ProductIndexRepository
	eventBus    providers.EventBus
	settings    PipelineSettings
}

// NewRationalizationService creates a new rationalization service. indexRepo
// and eventBus are optional.
func NewRationalizationService(
	productRepo repositories.ProductRepository,
	enricher ProductEnricher,
	indexRepo repositories.ProductIndexRepository,
	eventBus providers.EventBus,
	settings PipelineSettings,
) *RationalizationService {
	return &RationalizationService{
		productRepo: productRepo,
		enricher:    enricher,
		indexRepo:   indexRepo,
		eventBus:    eventBus,
		settings:    settings.withDefaults(),
	}
}

// RationalizeProduct runs the pipeline over a single product.
func (s *RationalizationService) RationalizeProduct(ctx context.Context, productID string, opts RunOptions) (*entities.RunReport, error) {
	if productID == "" {
		return nil, apperrors.NewValidationError("product ID is required")
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("product not found: " + productID)
	}

	return s.run(ctx, []*entities.Product{product}, opts), nil
}

// RationalizeCatalog runs the pipeline over a page of active products.
func (s *RationalizationService) RationalizeCatalog(ctx context.Context, opts RunOptions) (*entities.RunReport, error) {
	products, err := s.productRepo.ListActive(ctx, s.settings.PageSize)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list active products", err)
	}

	return s.run(ctx, products, opts), nil
}

// run is the sequential batch loop. It always terminates and always returns
// a report; individual item failures are captured per record, never raised.
func (s *RationalizationService) run(ctx context.Context, products []*entities.Product, opts RunOptions) *entities.RunReport {
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
		Msg("rationalization run started")

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
			if changesTouchCopy(record.Changes) {
				report.Summary.CopyGenerated++
			}
		}
		tallyCategory(&report.Summary, record.Category)

		// Pace only after items that hit the backend; skips cost nothing
		if !skipped && s.settings.PaceDelay > 0 {
			time.Sleep(s.settings.PaceDelay)
		}
	}

	log.Info().
		Str("run_id", runID).
		Int("total", report.Summary.Total).
		Int("updated", report.Summary.Updated).
		Int("errors", report.Summary.Errors).
		Bool("partial", report.Summary.PartialResult).
		Dur("elapsed", time.Since(start)).
		Msg("rationalization run finished")

	return report
}

func (s *RationalizationService) processOne(ctx context.Context, product *entities.Product, opts RunOptions, start time.Time, remaining int) (entities.ChangeRecord, bool) {
	record := entities.ChangeRecord{
		ProductID:   product.ID,
		Name:        product.Name,
		Changes:     map[string]entities.FieldChange{},
		Category:    product.Meta(entities.MetaCategory),
		Subcategory: product.Meta(entities.MetaSubcategory),
		Success:     true,
	}

	needed := s.fieldsNeedingEnrichment(product, opts.Force)
	if len(needed) == 0 {
		// Already complete: no external call, no write
		return record, true
	}

	// The item deadline covers every external call for this item, the store
	// write and post-write fan-out included, so a hung dependency cannot
	// push the run unboundedly past its budget.
	itemCtx, cancel := context.WithTimeout(ctx, itemTimeout(s.settings.Budget, time.Since(start), remaining))
	defer cancel()

	enriched := s.enricher.Enrich(itemCtx, product, opts.Style)

	record.Changes = buildChangeSet(product, enriched, needed)
	if category := enriched.Category; category != "" {
		record.Category = category
	}
	if enriched.Subcategory != "" {
		record.Subcategory = enriched.Subcategory
	}

	if len(record.Changes) == 0 || opts.DryRun {
		return record, false
	}

	patch := patchFromChanges(record.Changes)
	now := time.Now().UTC().Format(time.RFC3339)
	patch[entities.MetaRationalizedAt] = now
	patch[entities.MetaRationalizedBy] = enriched.Source
	if changesTouchCopy(record.Changes) {
		patch[entities.MetaCopyGeneratedAt] = now
	}

	if err := s.productRepo.UpdateMetadata(itemCtx, product.ID, patch); err != nil {
		record.Success = false
		record.Error = err.Error()
		return record, false
	}

	publishWrite(itemCtx, s.productRepo, s.indexRepo, s.eventBus, product.ID, entities.ProductEventTypeRationalized, record.Changes)
	return record, false
}

// fieldsNeedingEnrichment applies the per-field-need policy: a field needs
// enrichment when its stored value is missing, or unconditionally when the
// run is forced.
func (s *RationalizationService) fieldsNeedingEnrichment(product *entities.Product, force bool) map[string]bool {
	needed := map[string]bool{}
	for _, field := range factFields {
		if force || product.MetaMissing(field) {
			needed[field] = true
		}
	}
	for _, field := range copyFields {
		if force || product.MetaMissing(field) {
			needed[field] = true
		}
	}
	return needed
}

// buildChangeSet compares enriched values against stored values for the
// fields marked as needing enrichment. Fields not marked are left untouched
// even when the enrichment proposes a different value, and a proposed value
// that is itself missing is never written.
func buildChangeSet(product *entities.Product, enriched *entities.ProductEnrichment, needed map[string]bool) map[string]entities.FieldChange {
	proposed := map[string]string{
		entities.MetaBrand:           enriched.Brand,
		entities.MetaYear:            enriched.Year,
		entities.MetaCondition:       enriched.Condition,
		entities.MetaLongDescription: enriched.LongDescription,
		entities.MetaFeatures:        encodeListValue(enriched.Features),
		entities.MetaSellingPoints:   encodeListValue(enriched.SellingPoints),
	}

	changes := map[string]entities.FieldChange{}
	for field, after := range proposed {
		if !needed[field] {
			continue
		}
		if entities.IsMissingValue(after) {
			continue
		}
		before := product.Meta(field)
		if before == after {
			continue
		}
		changes[field] = entities.FieldChange{Before: before, After: after}
	}
	return changes
}

func changesTouchCopy(changes map[string]entities.FieldChange) bool {
	for _, field := range copyFields {
		if _, ok := changes[field]; ok {
			return true
		}
	}
	return false
}
