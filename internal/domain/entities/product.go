package entities

import (
	"strings"
	"time"
)

// Product categories. Every catalog product is exactly one of the two.
const (
	CategoryCamera    = "camera"
	CategoryAccessory = "accessory"
)

// Condition grades used by the rationalization flow.
const (
	ConditionExcellent = "Excellent"
	ConditionGood      = "Good"
	ConditionFair      = "Fair"
)

// Metadata keys written by the enrichment pipeline. All enrichment output
// lives as string values inside the product's metadata map; list values are
// stored JSON-encoded.
const (
	MetaBrand           = "brand"
	MetaYear            = "year"
	MetaCategory        = "category"
	MetaSubcategory     = "subcategory"
	MetaCondition       = "condition"
	MetaLongDescription = "longDescription"
	MetaFeatures        = "features"
	MetaSellingPoints   = "sellingPoints"

	MetaRationalizedAt   = "rationalizedAt"
	MetaRationalizedBy   = "rationalizedBy"
	MetaCategorizedByLLM = "categorized_by_llm"
	MetaCategorizedAt    = "categorized_at"
	MetaCopyGeneratedAt  = "copyGeneratedAt"
)

// Product represents a catalog product
type Product struct {
	ID          string            `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Description string            `json:"description" db:"description"`
	Images      []string          `json:"images" db:"images"`
	Metadata    map[string]string `json:"metadata" db:"metadata"`
	IsActive    bool              `json:"is_active" db:"is_active"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// Meta returns the metadata value for key, or "" when absent.
func (p *Product) Meta(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}

// MetaMissing reports whether the metadata value for key is missing per the
// catalog convention: absent, empty, or a placeholder ("unknown", "n/a").
func (p *Product) MetaMissing(key string) bool {
	return IsMissingValue(p.Meta(key))
}

// IsMissingValue reports whether a metadata value counts as missing and is
// therefore eligible for enrichment.
func IsMissingValue(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "unknown", "n/a":
		return true
	}
	return false
}
