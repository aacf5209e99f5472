// Package scorer validates and ranks raw search hits into an ordered list of
// candidate sources. It is deterministic and makes no network calls.
package scorer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/model"
)

// Weights of the relevance score components. Article-number matches are the
// strongest product-identity signal, so they dominate name-token overlap.
const (
	articleNumberWeight = 0.5
	nameOverlapWeight   = 0.5
)

// Scorer ranks and filters search hits against a target product.
type Scorer struct {
	cfg          config.ScorerConfig
	manufacturer []string
	excluded     []string
}

// New creates a Scorer from configuration. Domain lists are normalized to
// lowercase without a leading "www.".
func New(cfg config.ScorerConfig) *Scorer {
	return &Scorer{
		cfg:          cfg,
		manufacturer: normalizeDomains(cfg.ManufacturerDomains),
		excluded:     normalizeDomains(cfg.ExcludedDomains),
	}
}

// ValidateAndScore filters blocklisted hits, scores the rest, and returns at
// most cfg.MaxResults sources ordered by non-increasing priority score.
// Empty input yields empty output, not an error.
func (s *Scorer) ValidateAndScore(hits []model.SearchHit, articleNumber, productName string) []model.Source {
	nameTokens := tokenize(productName)
	article := strings.ToLower(strings.TrimSpace(articleNumber))

	sources := make([]model.Source, 0, len(hits))
	for _, hit := range hits {
		domain := hostOf(hit.URL)
		if domain == "" || matchesDomain(domain, s.excluded) {
			continue
		}

		category := model.DomainNeutral
		if matchesDomain(domain, s.manufacturer) {
			category = model.DomainManufacturer
		}

		score := s.relevance(hit, article, nameTokens)
		if category == model.DomainManufacturer {
			score += s.cfg.ManufacturerBonus
		}
		if score > 1 {
			score = 1
		}

		sources = append(sources, model.Source{
			URL:            hit.URL,
			Title:          hit.Title,
			Snippet:        hit.Snippet,
			DomainCategory: category,
			PriorityScore:  score,
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].PriorityScore > sources[j].PriorityScore
	})

	if s.cfg.MaxResults > 0 && len(sources) > s.cfg.MaxResults {
		sources = sources[:s.cfg.MaxResults]
	}
	return sources
}

// relevance combines article-number presence and product-name token overlap
// over the hit's title, snippet, and URL.
func (s *Scorer) relevance(hit model.SearchHit, article string, nameTokens []string) float64 {
	haystack := strings.ToLower(hit.Title + " " + hit.Snippet + " " + hit.URL)

	var score float64
	if article != "" && strings.Contains(haystack, article) {
		score += articleNumberWeight
	}

	if len(nameTokens) > 0 {
		matched := 0
		for _, tok := range nameTokens {
			if strings.Contains(haystack, tok) {
				matched++
			}
		}
		score += nameOverlapWeight * float64(matched) / float64(len(nameTokens))
	}
	return score
}

// tokenize splits a product name into lowercase tokens, dropping single
// characters which match too loosely.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 0x80
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// hostOf extracts the lowercase host of a URL, without "www.".
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// matchesDomain reports whether host equals or is a subdomain of any entry.
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
