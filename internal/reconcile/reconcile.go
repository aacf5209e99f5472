// Package reconcile cross-checks property claims from multiple sources,
// picks a primary value per property, and flags disagreement. It operates
// purely on immutable inputs gathered after all fetches and claims have
// settled.
package reconcile

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/prodex-cli/internal/model"
)

// Reconciler resolves conflicting claims into attributable results.
type Reconciler struct{}

// New creates a Reconciler.
func New() *Reconciler {
	return &Reconciler{}
}

// valueGroup collects all claims that normalized to the same value.
type valueGroup struct {
	display       string // raw value of the strongest claim in the group
	maxConfidence int
	manufacturer  bool // any contributing source is manufacturer-domain
	sourceIndices map[int]struct{}
	firstSeen     int // claim order, for deterministic output
}

// Reconcile produces exactly one ReconciledProperty per requested property.
// Properties with no claims are emitted as absent rather than omitted, so
// the caller can distinguish "not found" from "extraction failed".
// contents must be the batch's source pool in prompt-index order; claim
// source indices resolve against it.
func (r *Reconciler) Reconcile(props []model.PropertyDefinition, claims []model.ExtractedPropertyClaim, contents []model.FetchResult) []model.ReconciledProperty {
	byName := make(map[string][]model.ExtractedPropertyClaim)
	for _, c := range claims {
		key := normalizeName(c.PropertyName)
		byName[key] = append(byName[key], c)
	}

	ordered := append([]model.PropertyDefinition(nil), props...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].OrderIndex < ordered[j].OrderIndex })

	out := make([]model.ReconciledProperty, 0, len(ordered))
	for _, p := range ordered {
		out = append(out, r.reconcileOne(p, byName[normalizeName(p.Name)], contents))
	}
	return out
}

func (r *Reconciler) reconcileOne(prop model.PropertyDefinition, claims []model.ExtractedPropertyClaim, contents []model.FetchResult) model.ReconciledProperty {
	if len(claims) == 0 {
		return model.ReconciledProperty{
			PropertyName: prop.Name,
			Found:        false,
		}
	}

	groups := groupByValue(claims, contents)

	if len(groups) == 1 {
		g := groups[0]
		return model.ReconciledProperty{
			PropertyName:              prop.Name,
			Value:                     g.display,
			ConfidencePercent:         g.maxConfidence,
			Found:                     true,
			IsConsistentAcrossSources: true,
			SourceAttribution:         refsFor(g.sourceIndices, contents),
		}
	}

	// Conflict: highest confidence wins; equal confidence prefers a
	// manufacturer-domain source over a neutral one.
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].maxConfidence != groups[j].maxConfidence {
			return groups[i].maxConfidence > groups[j].maxConfidence
		}
		if groups[i].manufacturer != groups[j].manufacturer {
			return groups[i].manufacturer
		}
		return groups[i].firstSeen < groups[j].firstSeen
	})

	primary := groups[0]
	alternates := make([]model.AlternateValue, 0, len(groups)-1)
	for _, g := range groups[1:] {
		alternates = append(alternates, model.AlternateValue{
			Value:             g.display,
			ConfidencePercent: g.maxConfidence,
			SourceAttribution: refsFor(g.sourceIndices, contents),
		})
	}

	zap.L().Debug("reconcile: inconsistent property",
		zap.String("property", prop.Name),
		zap.String("primary", primary.display),
		zap.Int("alternates", len(alternates)),
	)

	return model.ReconciledProperty{
		PropertyName:              prop.Name,
		Value:                     primary.display,
		ConfidencePercent:         primary.maxConfidence,
		Found:                     true,
		IsConsistentAcrossSources: false,
		SourceAttribution:         refsFor(primary.sourceIndices, contents),
		AlternateValues:           alternates,
	}
}

// groupByValue buckets claims by normalized value, tracking per-group
// confidence, manufacturer backing, and contributing sources.
func groupByValue(claims []model.ExtractedPropertyClaim, contents []model.FetchResult) []*valueGroup {
	byValue := make(map[string]*valueGroup)
	var order []*valueGroup

	for i, c := range claims {
		key := normalizeValue(c.Value)
		g, ok := byValue[key]
		if !ok {
			g = &valueGroup{
				display:       c.Value,
				maxConfidence: -1,
				sourceIndices: make(map[int]struct{}),
				firstSeen:     i,
			}
			byValue[key] = g
			order = append(order, g)
		}

		if c.ConfidencePercent > g.maxConfidence {
			g.maxConfidence = c.ConfidencePercent
			g.display = c.Value
		}
		for _, idx := range c.SourceIndices {
			g.sourceIndices[idx] = struct{}{}
			if idx >= 0 && idx < len(contents) &&
				contents[idx].Source.DomainCategory == model.DomainManufacturer {
				g.manufacturer = true
			}
		}
	}
	return order
}

// refsFor resolves contributing source indices to attribution refs,
// ordered by index.
func refsFor(indices map[int]struct{}, contents []model.FetchResult) []model.SourceRef {
	sorted := make([]int, 0, len(indices))
	for idx := range indices {
		if idx >= 0 && idx < len(contents) {
			sorted = append(sorted, idx)
		}
	}
	sort.Ints(sorted)

	refs := make([]model.SourceRef, 0, len(sorted))
	for _, idx := range sorted {
		refs = append(refs, model.SourceRef{
			URL:   contents[idx].Source.URL,
			Title: contents[idx].Source.Title,
		})
	}
	return refs
}
