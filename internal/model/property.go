package model

// PropertyDefinition describes one property the caller wants extracted.
// Supplied by the property-table store; read-only input to extraction.
type PropertyDefinition struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ExpectedFormat string `json:"expected_format,omitempty"`
	OrderIndex     int    `json:"order_index"`
}

// ExtractedPropertyClaim is a single per-property value claimed by the model
// for one or more sources, before reconciliation.
type ExtractedPropertyClaim struct {
	PropertyName      string `json:"property_name"`
	Value             string `json:"value"`
	ConfidencePercent int    `json:"confidence_percent"` // [0,100]
	SourceIndices     []int  `json:"source_indices"`
}

// SourceRef identifies a contributing source for attribution.
type SourceRef struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// AlternateValue is a conflicting value retained for fact-checking.
type AlternateValue struct {
	Value             string      `json:"value"`
	ConfidencePercent int         `json:"confidence_percent"`
	SourceAttribution []SourceRef `json:"source_attribution"`
}

// ReconciledProperty is the final per-property output after cross-source
// reconciliation. ConfidencePercent is always derived by the reconciler,
// never set independently.
type ReconciledProperty struct {
	PropertyName              string           `json:"property_name"`
	Value                     string           `json:"value,omitempty"`
	ConfidencePercent         int              `json:"confidence_percent"`
	Found                     bool             `json:"found"`
	IsConsistentAcrossSources bool             `json:"is_consistent_across_sources"`
	SourceAttribution         []SourceRef      `json:"source_attribution,omitempty"`
	AlternateValues           []AlternateValue `json:"alternate_values,omitempty"`
}
