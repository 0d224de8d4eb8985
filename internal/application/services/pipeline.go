package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/providers"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
)

// Defaults for the batch pipeline. Overridable through PipelineSettings.
const (
	DefaultRunBudget = 50 * time.Second
	DefaultPaceDelay = 250 * time.Millisecond
	DefaultPageSize  = 100

	// minItemTimeout and maxItemTimeout clamp the per-item deadline derived
	// from the remaining run budget.
	minItemTimeout = 2 * time.Second
	maxItemTimeout = 20 * time.Second
)

// PipelineSettings tunes a batch run's resource envelope.
type PipelineSettings struct {
	// Budget bounds the wall-clock time of a run. Checked between items.
	Budget time.Duration
	// PaceDelay is slept after each processed (non-skipped) item.
	PaceDelay time.Duration
	// PageSize caps how many active products a catalog-wide run fetches.
	PageSize int
}

func (s PipelineSettings) withDefaults() PipelineSettings {
	if s.Budget <= 0 {
		s.Budget = DefaultRunBudget
	}
	if s.PaceDelay < 0 {
		s.PaceDelay = DefaultPaceDelay
	}
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	return s
}

// RunOptions are the caller-facing switches on a pipeline run.
type RunOptions struct {
	// DryRun computes and reports changes without persisting anything.
	DryRun bool
	// Force re-enriches fields that already hold meaningful values.
	Force bool
	// Style selects the copy tone directive; empty for the default voice.
	Style string
}

// itemTimeout derives a hard deadline for one item's external calls from the
// budget remaining and the number of candidates left, so a single hung call
// cannot push the run unboundedly past its budget.
func itemTimeout(budget time.Duration, elapsed time.Duration, remainingItems int) time.Duration {
	if remainingItems < 1 {
		remainingItems = 1
	}
	timeout := (budget - elapsed) / time.Duration(remainingItems)
	if timeout < minItemTimeout {
		return minItemTimeout
	}
	if timeout > maxItemTimeout {
		return maxItemTimeout
	}
	return timeout
}

// encodeListValue renders a list metadata value as its JSON-encoded string
// form, the flat shape the product store holds.
func encodeListValue(items []string) string {
	if len(items) == 0 {
		return ""
	}
	data, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(data)
}

// patchFromChanges flattens a change set into the metadata patch written to
// the store.
func patchFromChanges(changes map[string]entities.FieldChange) map[string]string {
	patch := make(map[string]string, len(changes))
	for field, change := range changes {
		patch[field] = change.After
	}
	return patch
}

// tallyCategory records the product's resulting category in the summary.
func tallyCategory(summary *entities.RunSummary, category string) {
	switch category {
	case entities.CategoryCamera:
		summary.Cameras++
	case entities.CategoryAccessory:
		summary.Accessories++
	}
}

// publishWrite pushes a post-write fan-out: search reindex and event publish.
// Both are best-effort; failures are logged, never propagated, and never fail
// the item.
func publishWrite(
	ctx context.Context,
	productRepo repositories.ProductRepository,
	indexRepo repositories.ProductIndexRepository,
	eventBus providers.EventBus,
	productID string,
	eventType entities.ProductEventType,
	changes map[string]entities.FieldChange,
) {
	if indexRepo == nil && eventBus == nil {
		return
	}

	updated, err := productRepo.GetByID(ctx, productID)
	if err != nil {
		log.Warn().Str("product_id", productID).Err(err).Msg("post-write reload failed, skipping fan-out")
		return
	}

	if indexRepo != nil {
		if err := indexRepo.IndexProduct(ctx, updated); err != nil {
			log.Warn().Str("product_id", productID).Err(err).Msg("search reindex failed")
		}
	}

	if eventBus != nil {
		event := entities.NewProductEvent(productID, eventType, changes)
		if err := eventBus.Publish(ctx, providers.EventChannelProductUpdates, event); err != nil {
			log.Warn().Str("product_id", productID).Err(err).Msg("event publish failed")
		}
	}
}
