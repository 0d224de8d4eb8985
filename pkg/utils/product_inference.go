package utils

import (
	"regexp"
	"strings"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
)

// Rule-based product inference. This is the deterministic fallback behind the
// generative enrichment path: it always produces a best-effort answer from
// keyword and pattern matching over the product's name and description, with
// a confidence ceiling deliberately below the generative path's typical range.

const (
	ruleConfidenceBase  = 0.40
	ruleConfidenceBonus = 0.05
)

// brandEntry maps a name token to its canonical brand. Ordered; first match
// wins. Sub-brand tokens alias to their parent brand.
type brandEntry struct {
	Token string
	Brand string
}

var knownBrands = []brandEntry{
	{"canon", "Canon"},
	{"nikon", "Nikon"},
	{"asahi", "Pentax"},
	{"pentax", "Pentax"},
	{"olympus", "Olympus"},
	{"minolta", "Minolta"},
	{"leica", "Leica"},
	{"hasselblad", "Hasselblad"},
	{"mamiya", "Mamiya"},
	{"yashica", "Yashica"},
	{"brownie", "Kodak"},
	{"kodak", "Kodak"},
	{"polaroid", "Polaroid"},
	{"instax", "Fujifilm"},
	{"fujifilm", "Fujifilm"},
	{"fujica", "Fujifilm"},
	{"hexar", "Konica"},
	{"konica", "Konica"},
	{"ricoh", "Ricoh"},
	{"rollei", "Rollei"},
	{"voigtlander", "Voigtlander"},
	{"zenit", "Zenit"},
	{"praktica", "Praktica"},
}

// modelYears maps well-known model-name substrings to their release year,
// for products whose name carries no explicit year.
var modelYears = map[string]string{
	"ae-1":      "1976",
	"a-1":       "1978",
	"canonet":   "1961",
	"f3":        "1980",
	"fm2":       "1982",
	"fe2":       "1983",
	"k1000":     "1976",
	"spotmatic": "1964",
	"om-1":      "1972",
	"om-2":      "1975",
	"trip 35":   "1967",
	"mju":       "1991",
	"x-700":     "1981",
	"srt-101":   "1966",
	"m3":        "1954",
	"m6":        "1984",
	"sx-70":     "1972",
	"500c/m":    "1970",
	"rb67":      "1970",
}

// subcategoryRule maps accessory vocabulary to a fixed subcategory tag.
// Ordered; first match wins. Accessory vocabulary is checked before camera
// vocabulary because it is more specific.
type subcategoryRule struct {
	Subcategory string
	Keywords    []string
}

var accessoryRules = []subcategoryRule{
	{"tripod", []string{"tripod", "monopod"}},
	{"strap", []string{"strap", "lanyard"}},
	{"case", []string{"case", "bag", "pouch", "holster"}},
	{"storage", []string{"memory card", "sd card", "cf card", "storage"}},
	{"power", []string{"battery", "charger", "power adapter", "ac adapter"}},
	{"cleaning", []string{"cleaning", "cleaner", "blower", "microfiber", "swab"}},
	{"filter", []string{"filter", "lens cap", "lens hood", "uv protector"}},
	{"cable", []string{"cable", "cord", "sync lead"}},
	{"flash", []string{"flash", "speedlite", "speedlight", "strobe"}},
	{"film", []string{"film roll", "film pack", "35mm film", "120 film"}},
}

var cameraKeywords = []string{
	"camera", "slr", "tlr", "rangefinder", "point and shoot", "point-and-shoot",
	"instant", "medium format", "half frame", "body",
}

var yearPattern = regexp.MustCompile(`\b(19\d{2}|20[0-2]\d)\b`)

// InferProductFacts derives brand, year, category, subcategory and condition
// for a product from its name and description. It is total over its input
// domain: it never fails and always returns a usable result.
func InferProductFacts(name, description string, existing map[string]string) *entities.ProductEnrichment {
	text := strings.ToLower(name + " " + description)
	lowerName := strings.ToLower(name)

	result := &entities.ProductEnrichment{
		Description: description,
		Source:      entities.EnrichmentSourceRules,
		Confidence:  ruleConfidenceBase,
	}

	// Brand: first match against the ordered token table
	for _, entry := range knownBrands {
		if strings.Contains(lowerName, entry.Token) {
			result.Brand = entry.Brand
			result.Confidence += ruleConfidenceBonus
			break
		}
	}
	if result.Brand == "" && existing != nil {
		result.Brand = existing[entities.MetaBrand]
	}

	result.Year = inferYear(lowerName, existing)

	// Category: accessory vocabulary first, camera keywords second,
	// default camera
	categoryMatched := false
	for _, rule := range accessoryRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				result.Category = entities.CategoryAccessory
				result.Subcategory = rule.Subcategory
				categoryMatched = true
				break
			}
		}
		if categoryMatched {
			break
		}
	}
	if !categoryMatched {
		for _, kw := range cameraKeywords {
			if strings.Contains(text, kw) {
				categoryMatched = true
				break
			}
		}
		result.Category = entities.CategoryCamera
	}
	if categoryMatched {
		result.Confidence += ruleConfidenceBonus
	}

	// Condition: keep a meaningful existing value, else default
	condition := ""
	if existing != nil {
		condition = existing[entities.MetaCondition]
	}
	if entities.IsMissingValue(condition) {
		condition = entities.ConditionGood
	}
	result.Condition = condition

	return result
}

// inferYear finds a plausible release year: an explicit 4-digit year in the
// name wins, then the model lookup table, then the existing stored value.
func inferYear(lowerName string, existing map[string]string) string {
	if match := yearPattern.FindString(lowerName); match != "" {
		return match
	}
	for model, year := range modelYears {
		if strings.Contains(lowerName, model) {
			return year
		}
	}
	if existing != nil {
		return existing[entities.MetaYear]
	}
	return ""
}
