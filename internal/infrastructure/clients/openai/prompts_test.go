package openai

import (
	"strings"
	"testing"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
)

func sampleProduct() *entities.Product {
	return &entities.Product{
		ID:          "prod-1",
		Name:        "Canon AE-1",
		Description: "35mm SLR camera",
		Metadata: map[string]string{
			entities.MetaBrand: "Canon",
			entities.MetaYear:  "Unknown",
		},
	}
}

func TestExtractJSONObject_PlainObject(t *testing.T) {
	raw, err := extractJSONObject(`{"category":"camera","confidence":0.9}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != `{"category":"camera","confidence":0.9}` {
		t.Errorf("wrong extraction: %s", raw)
	}
}

func TestExtractJSONObject_SurroundingProse(t *testing.T) {
	text := "Sure! Here is the data you asked for:\n{\"category\": \"camera\", \"confidence\": 0.8}\nLet me know if you need anything else."
	raw, err := extractJSONObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
		t.Errorf("extraction not a bare object: %s", raw)
	}
	if strings.Contains(raw, "Sure!") {
		t.Errorf("prose leaked into extraction: %s", raw)
	}
}

func TestExtractJSONObject_BracesInsideStrings(t *testing.T) {
	text := `{"description": "curly {braces} and an escaped \" quote", "confidence": 1}`
	raw, err := extractJSONObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != text {
		t.Errorf("wrong extraction: %s", raw)
	}
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	if _, err := extractJSONObject("no json here"); err == nil {
		t.Fatal("expected error for prose without JSON")
	}
	if _, err := extractJSONObject(`{"unterminated": true`); err == nil {
		t.Fatal("expected error for unbalanced object")
	}
}

func TestParseProductEnrichment_ValidResponse(t *testing.T) {
	raw := `{
		"brand": "Canon",
		"year": "1976",
		"category": "Camera",
		"subcategory": "",
		"condition": "excellent",
		"description": "A classic 35mm SLR.",
		"long_description": "Long copy here.",
		"features": ["FD mount", "TTL metering"],
		"selling_points": ["Iconic", "Reliable"],
		"confidence": 0.92
	}`

	result, err := parseProductEnrichment([]byte(raw), sampleProduct(), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != entities.CategoryCamera {
		t.Errorf("category not normalized: %s", result.Category)
	}
	if result.Condition != entities.ConditionExcellent {
		t.Errorf("condition not normalized: %s", result.Condition)
	}
	if result.Confidence != 0.92 {
		t.Errorf("wrong confidence: %f", result.Confidence)
	}
	if result.Source != entities.EnrichmentSourceOpenAI {
		t.Errorf("wrong source: %s", result.Source)
	}
	if len(result.Features) != 2 {
		t.Errorf("expected 2 features, got %d", len(result.Features))
	}
}

func TestParseProductEnrichment_ConfidenceClamped(t *testing.T) {
	raw := `{"category": "camera", "confidence": 1.7}`
	result, err := parseProductEnrichment([]byte(raw), sampleProduct(), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence not clamped: %f", result.Confidence)
	}

	raw = `{"category": "camera", "confidence": -0.3}`
	result, err = parseProductEnrichment([]byte(raw), sampleProduct(), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0.0 {
		t.Errorf("confidence not clamped: %f", result.Confidence)
	}
}

func TestParseProductEnrichment_MissingFieldsDefaulted(t *testing.T) {
	raw := `{"category": "camera", "confidence": 0.8}`
	result, err := parseProductEnrichment([]byte(raw), sampleProduct(), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Missing strings default to the stored values
	if result.Brand != "Canon" {
		t.Errorf("brand not defaulted from metadata: %q", result.Brand)
	}
	if result.Description != "35mm SLR camera" {
		t.Errorf("description not defaulted: %q", result.Description)
	}
	// Missing arrays default to empty, never nil
	if result.Features == nil || result.SellingPoints == nil {
		t.Error("expected empty arrays, got nil")
	}
}

func TestParseProductEnrichment_ConditionOutsideVocabulary(t *testing.T) {
	raw := `{"category": "camera", "condition": "Mint, like new", "confidence": 0.9}`

	// No stored condition: the fabricated value must not survive parsing,
	// or the per-field gate would write it for any product missing one.
	result, err := parseProductEnrichment([]byte(raw), sampleProduct(), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Condition != "" {
		t.Errorf("out-of-vocabulary condition escaped validation: %q", result.Condition)
	}

	// With a stored condition, the stored value wins
	product := sampleProduct()
	product.Metadata[entities.MetaCondition] = entities.ConditionFair
	result, err = parseProductEnrichment([]byte(raw), product, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Condition != entities.ConditionFair {
		t.Errorf("expected stored condition to win, got %q", result.Condition)
	}
}

func TestParseProductEnrichment_InvalidCategory(t *testing.T) {
	raw := `{"category": "tripod", "confidence": 0.9}`
	if _, err := parseProductEnrichment([]byte(raw), sampleProduct(), "gpt-4o-mini"); err == nil {
		t.Fatal("expected error for category outside the taxonomy")
	}
}

func TestParseProductEnrichment_MissingConfidence(t *testing.T) {
	raw := `{"category": "camera"}`
	if _, err := parseProductEnrichment([]byte(raw), sampleProduct(), "gpt-4o-mini"); err == nil {
		t.Fatal("expected error for missing confidence")
	}
}

func TestParseProductEnrichment_SubcategoryDroppedForCameras(t *testing.T) {
	raw := `{"category": "camera", "subcategory": "tripod", "confidence": 0.8}`
	result, err := parseProductEnrichment([]byte(raw), sampleProduct(), "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Subcategory != "" {
		t.Errorf("subcategory should be empty for cameras, got %q", result.Subcategory)
	}
}

func TestBuildProductUserPrompt_StyleDirective(t *testing.T) {
	plain := buildProductUserPrompt(sampleProduct(), "")
	styled := buildProductUserPrompt(sampleProduct(), "nostalgic")

	if strings.Contains(plain, "nostalgic tone") {
		t.Error("unstyled prompt should carry no tone directive")
	}
	if !strings.Contains(styled, "nostalgic tone") {
		t.Error("styled prompt missing tone directive")
	}
	if !strings.Contains(styled, "Canon AE-1") {
		t.Error("prompt missing product name")
	}
}
