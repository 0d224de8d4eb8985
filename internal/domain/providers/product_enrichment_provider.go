package providers

import (
	"context"
	"errors"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
)

// ErrProductEnrichmentUnauthorized indicates the completion backend rejected
// our credentials.
var ErrProductEnrichmentUnauthorized = errors.New("product enrichment unauthorized")

// Copy styles accepted by the prompt builder's tone directive.
const (
	CopyStyleNostalgic  = "nostalgic"
	CopyStylePractical  = "practical"
	CopyStyleMinimalist = "minimalist"
)

// ProductEnrichmentProvider defines a provider that can derive values for a
// product's incomplete fields. style selects the copy tone and may be empty.
type ProductEnrichmentProvider interface {
	EnrichProduct(ctx context.Context, product *entities.Product, style string) (*entities.ProductEnrichment, error)
}
