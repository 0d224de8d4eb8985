package entities

// Enrichment sources recorded in provenance stamps.
const (
	EnrichmentSourceOpenAI = "openai"
	EnrichmentSourceRules  = "rules"
)

// ProductEnrichment is the candidate field set produced by one enrichment
// call. It is never persisted directly; only fields that pass the gate are
// copied into the product's metadata.
type ProductEnrichment struct {
	Brand           string   `json:"brand"`
	Year            string   `json:"year"`
	Category        string   `json:"category"`
	Subcategory     string   `json:"subcategory,omitempty"`
	Condition       string   `json:"condition"`
	Description     string   `json:"description"`
	LongDescription string   `json:"long_description"`
	Features        []string `json:"features"`
	SellingPoints   []string `json:"selling_points"`
	Confidence      float64  `json:"confidence"`
	Source          string   `json:"source"`
	Model           string   `json:"model,omitempty"`
}

// FieldChange is one before/after entry in a product's change set.
type FieldChange struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// ChangeRecord captures the outcome of processing one product.
type ChangeRecord struct {
	ProductID   string                 `json:"productId"`
	Name        string                 `json:"name"`
	Changes     map[string]FieldChange `json:"changes"`
	Category    string                 `json:"category,omitempty"`
	Subcategory string                 `json:"subcategory,omitempty"`
	Success     bool                   `json:"success"`
	Error       string                 `json:"error,omitempty"`
}

// RunSummary aggregates a batch run's outcomes.
type RunSummary struct {
	Total         int  `json:"total"`
	Updated       int  `json:"updated"`
	Categorized   int  `json:"categorized,omitempty"`
	CopyGenerated int  `json:"copyGenerated,omitempty"`
	Cameras       int  `json:"cameras"`
	Accessories   int  `json:"accessories"`
	Errors        int  `json:"errors"`
	PartialResult bool `json:"partialResult"`
	DryRun        bool `json:"dryRun"`
}

// RunReport is the full result of a batch run: the summary plus one change
// record per processed product, in fetch order.
type RunReport struct {
	Summary RunSummary     `json:"summary"`
	Results []ChangeRecord `json:"results"`
}
