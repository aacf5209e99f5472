// Package monitoring exposes prometheus metrics and store-backed usage
// summaries for the extraction pipeline.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchOutcomes counts per-source fetch results by tier and outcome.
	FetchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodex_fetch_outcomes_total",
			Help: "Source fetch outcomes by tier and result.",
		},
		[]string{"tier", "outcome"},
	)

	// TierEscalations counts escalations out of a tier.
	TierEscalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodex_tier_escalations_total",
			Help: "Fetch tier escalations by tier left behind.",
		},
		[]string{"from_tier"},
	)

	// ExtractionBatches counts extraction batches by outcome.
	ExtractionBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodex_extraction_batches_total",
			Help: "Extraction batches by outcome.",
		},
		[]string{"outcome"},
	)

	// LLMTokens counts tokens by model and direction.
	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodex_llm_tokens_total",
			Help: "LLM tokens consumed by model and direction.",
		},
		[]string{"model", "direction"},
	)

	// LLMCostUSD accumulates estimated LLM spend by model.
	LLMCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodex_llm_cost_usd_total",
			Help: "Estimated LLM cost in USD by model.",
		},
		[]string{"model"},
	)

	// PDFDocuments counts PDF adapter outcomes.
	PDFDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodex_pdf_documents_total",
			Help: "PDF documents processed by outcome.",
		},
		[]string{"outcome"},
	)
)
