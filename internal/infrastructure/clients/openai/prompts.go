package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
)

const productSystemPrompt = `You are a product data specialist for a vintage camera storefront. Return ONLY a single valid JSON object with this schema and no surrounding prose:
{
  "brand": string (manufacturer name, e.g. "Canon"; "" if unknowable),
  "year": string (4-digit release year; "" if unknowable),
  "category": string (exactly "camera" or "accessory"),
  "subcategory": string (only for accessories, one of: tripod, strap, case, storage, power, cleaning, filter, cable, flash, film; "" for cameras),
  "condition": string (one of: Excellent, Good, Fair),
  "description": string (1-2 sentence summary),
  "long_description": string (2-3 paragraph product page copy),
  "features": string[] (3-6 concrete technical features),
  "selling_points": string[] (2-4 short buyer-facing selling points),
  "confidence": number (0.0-1.0, your confidence in brand/year/category)
}
Be historically accurate about brands and release years. Never invent a year you are unsure of; use "" instead and lower your confidence.`

// copyStyleDirectives injects a tone of voice without altering the required
// JSON shape.
var copyStyleDirectives = map[string]string{
	"nostalgic":  "Write the descriptions in a warm, nostalgic tone that evokes the analog era.",
	"practical":  "Write the descriptions in a practical, spec-forward tone for working photographers.",
	"minimalist": "Write the descriptions in a spare, minimalist tone. Short sentences.",
}

type productPayload struct {
	Brand           string          `json:"brand"`
	Year            string          `json:"year"`
	Category        string          `json:"category"`
	Subcategory     string          `json:"subcategory"`
	Condition       string          `json:"condition"`
	Description     string          `json:"description"`
	LongDescription string          `json:"long_description"`
	Features        []string        `json:"features"`
	SellingPoints   []string        `json:"selling_points"`
	Confidence      json.RawMessage `json:"confidence"`
}

func buildProductUserPrompt(product *entities.Product, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product name: %s\n", product.Name)
	fmt.Fprintf(&b, "Current description: %s\n", product.Description)

	if len(product.Metadata) > 0 {
		b.WriteString("Current metadata:\n")
		keys := make([]string, 0, len(product.Metadata))
		for k := range product.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, product.Metadata[k])
		}
	}

	if directive, ok := copyStyleDirectives[style]; ok {
		b.WriteString(directive)
		b.WriteString("\n")
	}

	return b.String()
}

// extractJSONObject returns the first balanced {...} substring of text. The
// backend is not contractually obligated to omit prose or code fences around
// its JSON, so this is the only tolerated extraction point.
func extractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errors.New("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", errors.New("unbalanced JSON object in response")
}

// parseProductEnrichment parses and validates an extracted JSON payload into
// the canonical enrichment shape. It either returns a fully normalized result
// or an error; partially-typed output never escapes this boundary.
func parseProductEnrichment(data []byte, product *entities.Product, model string) (*entities.ProductEnrichment, error) {
	var payload productPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse enrichment payload: %w", err)
	}

	category := strings.ToLower(strings.TrimSpace(payload.Category))
	if category != entities.CategoryCamera && category != entities.CategoryAccessory {
		return nil, fmt.Errorf("invalid category %q in enrichment payload", payload.Category)
	}

	confidence, err := parseConfidence(payload.Confidence)
	if err != nil {
		return nil, err
	}

	result := &entities.ProductEnrichment{
		Brand:           strings.TrimSpace(payload.Brand),
		Year:            strings.TrimSpace(payload.Year),
		Category:        category,
		Subcategory:     strings.ToLower(strings.TrimSpace(payload.Subcategory)),
		Condition:       normalizeCondition(payload.Condition),
		Description:     strings.TrimSpace(payload.Description),
		LongDescription: strings.TrimSpace(payload.LongDescription),
		Features:        payload.Features,
		SellingPoints:   payload.SellingPoints,
		Confidence:      confidence,
		Source:          entities.EnrichmentSourceOpenAI,
		Model:           model,
	}

	// Subcategory only ever applies to accessories
	if result.Category != entities.CategoryAccessory {
		result.Subcategory = ""
	}

	// Default missing strings to the stored values, missing arrays to empty
	if result.Brand == "" {
		result.Brand = product.Meta(entities.MetaBrand)
	}
	if result.Year == "" {
		result.Year = product.Meta(entities.MetaYear)
	}
	if result.Condition == "" {
		result.Condition = product.Meta(entities.MetaCondition)
	}
	if result.Description == "" {
		result.Description = product.Description
	}
	if result.Features == nil {
		result.Features = []string{}
	}
	if result.SellingPoints == nil {
		result.SellingPoints = []string{}
	}

	return result, nil
}

// parseConfidence accepts a JSON number or a numeric string and clamps the
// value into [0,1]. A missing confidence is a validation failure.
func parseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, errors.New("missing confidence in enrichment payload")
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errors.New("invalid confidence in enrichment payload")
		}
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &value); err != nil {
			return 0, errors.New("invalid confidence in enrichment payload")
		}
	}

	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	return value, nil
}

// normalizeCondition maps a reported condition onto the fixed vocabulary.
// Anything outside it is dropped so the stored value wins instead.
func normalizeCondition(condition string) string {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "excellent":
		return entities.ConditionExcellent
	case "good":
		return entities.ConditionGood
	case "fair":
		return entities.ConditionFair
	}
	return ""
}
