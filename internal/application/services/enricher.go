package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/providers"
	"github.com/seanokelly/analogmarket/pkg/utils"
)

// ProductEnricher produces candidate field values for a product. Enrich is
// total: implementations never fail, degrading to heuristics instead.
type ProductEnricher interface {
	Enrich(ctx context.Context, product *entities.Product, style string) *entities.ProductEnrichment
}

// FallbackEnricher wraps a generative enrichment provider with the rule
// engine as the fallback of last resort. The backend is treated as a
// best-effort oracle: a bad response degrades to heuristics rather than
// halting the pipeline.
type FallbackEnricher struct {
	provider providers.ProductEnrichmentProvider
}

// NewFallbackEnricher creates an enricher backed by provider. provider may be
// nil, in which case every call resolves through the rule engine.
func NewFallbackEnricher(provider providers.ProductEnrichmentProvider) *FallbackEnricher {
	return &FallbackEnricher{provider: provider}
}

// Enrich derives candidate values for product. It never returns an error: any
// transport, extraction, or validation failure on the generative path falls
// back to rule-based inference, tagged with its lower confidence so the gate
// can distinguish provenance.
func (e *FallbackEnricher) Enrich(ctx context.Context, product *entities.Product, style string) *entities.ProductEnrichment {
	if e.provider != nil {
		result, err := e.provider.EnrichProduct(ctx, product, style)
		if err == nil && result != nil {
			return result
		}
		log.Warn().
			Str("product_id", product.ID).
			Err(err).
			Msg("generative enrichment failed, falling back to rule engine")
	}

	return utils.InferProductFacts(product.Name, product.Description, product.Metadata)
}
