// Package model defines the core data types shared across the extraction
// pipeline: candidate sources, fetch outcomes, property claims, and usage
// records.
package model

// DomainCategory classifies a source's domain for scoring and tie-breaking.
type DomainCategory string

const (
	// DomainManufacturer marks domains on the manufacturer allowlist.
	DomainManufacturer DomainCategory = "manufacturer"
	// DomainExcluded marks domains on the blocklist; never fetched.
	DomainExcluded DomainCategory = "excluded"
	// DomainNeutral marks everything else.
	DomainNeutral DomainCategory = "neutral"
)

// Source is a candidate web page or document that may contain product data.
// Created by the scorer from raw search hits; immutable afterwards.
type Source struct {
	URL            string         `json:"url"`
	Title          string         `json:"title"`
	Snippet        string         `json:"snippet,omitempty"`
	DomainCategory DomainCategory `json:"domain_category"`
	PriorityScore  float64        `json:"priority_score"` // [0,1]
}

// SearchHit is a raw result from the search provider, before validation.
type SearchHit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}
