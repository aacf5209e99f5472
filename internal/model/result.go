package model

// SourceOutcome records per-source fetch success/failure for UI transparency.
// Failed sources are excluded from the content pool but never hidden from
// the batch result.
type SourceOutcome struct {
	URL        string         `json:"url"`
	Title      string         `json:"title,omitempty"`
	Tier       FetchTier      `json:"tier"`
	Success    bool           `json:"success"`
	ErrorKind  FetchErrorKind `json:"error_kind,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// ExtractionBatchResult is the terminal artifact for one product, handed to
// the persistence/UI layer. A failed batch carries an explicit reason and is
// never silently defaulted to empty values.
type ExtractionBatchResult struct {
	JobID                string               `json:"job_id"`
	ArticleNumber        string               `json:"article_number,omitempty"`
	ProductName          string               `json:"product_name"`
	ReconciledProperties []ReconciledProperty `json:"reconciled_properties,omitempty"`
	SourcesAttempted     int                  `json:"sources_attempted"`
	SourcesSucceeded     int                  `json:"sources_succeeded"`
	SourceOutcomes       []SourceOutcome      `json:"source_outcomes,omitempty"`
	ProcessingDurationMs int64                `json:"processing_duration_ms"`
	Failed               bool                 `json:"failed"`
	FailureReason        string               `json:"failure_reason,omitempty"`
}
