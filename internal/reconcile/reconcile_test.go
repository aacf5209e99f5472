package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prodex-cli/internal/model"
)

func testContents() []model.FetchResult {
	return []model.FetchResult{
		{Source: model.Source{URL: "https://acme-pumps.com/p-100", Title: "Datasheet", DomainCategory: model.DomainManufacturer}},
		{Source: model.Source{URL: "https://shop.example.com/p-100", Title: "Shop listing", DomainCategory: model.DomainNeutral}},
		{Source: model.Source{URL: "https://review.example.org/p-100", Title: "Review", DomainCategory: model.DomainNeutral}},
	}
}

func testProps(names ...string) []model.PropertyDefinition {
	props := make([]model.PropertyDefinition, len(names))
	for i, n := range names {
		props[i] = model.PropertyDefinition{Name: n, OrderIndex: i}
	}
	return props
}

func TestReconcile_AgreementRaisesConfidence(t *testing.T) {
	r := New()

	claims := []model.ExtractedPropertyClaim{
		{PropertyName: "Height", Value: "1270mm", ConfidencePercent: 70, SourceIndices: []int{0}},
		{PropertyName: "Height", Value: "1270 mm", ConfidencePercent: 90, SourceIndices: []int{1}},
	}

	out := r.Reconcile(testProps("Height"), claims, testContents())
	require.Len(t, out, 1)

	p := out[0]
	assert.True(t, p.Found)
	assert.True(t, p.IsConsistentAcrossSources)
	assert.Equal(t, 90, p.ConfidencePercent)
	assert.Empty(t, p.AlternateValues)
	require.Len(t, p.SourceAttribution, 2)
	assert.Equal(t, "https://acme-pumps.com/p-100", p.SourceAttribution[0].URL)
}

func TestReconcile_ConflictKeepsAlternates(t *testing.T) {
	r := New()

	claims := []model.ExtractedPropertyClaim{
		{PropertyName: "Power", Value: "25 kW", ConfidencePercent: 85, SourceIndices: []int{0}},
		{PropertyName: "Power", Value: "30 kW", ConfidencePercent: 60, SourceIndices: []int{2}},
	}

	out := r.Reconcile(testProps("Power"), claims, testContents())
	require.Len(t, out, 1)

	p := out[0]
	assert.True(t, p.Found)
	assert.False(t, p.IsConsistentAcrossSources)
	assert.Equal(t, "25 kW", p.Value)
	assert.Equal(t, 85, p.ConfidencePercent)
	require.Len(t, p.AlternateValues, 1)
	assert.Equal(t, "30 kW", p.AlternateValues[0].Value)
	assert.Equal(t, 60, p.AlternateValues[0].ConfidencePercent)
	require.Len(t, p.AlternateValues[0].SourceAttribution, 1)
	assert.Equal(t, "https://review.example.org/p-100", p.AlternateValues[0].SourceAttribution[0].URL)
}

func TestReconcile_EqualConfidencePrefersManufacturer(t *testing.T) {
	r := New()

	claims := []model.ExtractedPropertyClaim{
		{PropertyName: "Weight", Value: "42 kg", ConfidencePercent: 80, SourceIndices: []int{1}},
		{PropertyName: "Weight", Value: "45 kg", ConfidencePercent: 80, SourceIndices: []int{0}},
	}

	out := r.Reconcile(testProps("Weight"), claims, testContents())
	require.Len(t, out, 1)

	// The 45 kg claim comes from the manufacturer-domain source and wins the
	// tie despite appearing second.
	assert.Equal(t, "45 kg", out[0].Value)
	assert.False(t, out[0].IsConsistentAcrossSources)
}

func TestReconcile_AbsentPropertyEmittedNotOmitted(t *testing.T) {
	r := New()

	claims := []model.ExtractedPropertyClaim{
		{PropertyName: "Height", Value: "1270 mm", ConfidencePercent: 90, SourceIndices: []int{0}},
	}

	out := r.Reconcile(testProps("Height", "Color"), claims, testContents())
	require.Len(t, out, 2)

	assert.True(t, out[0].Found)
	assert.Equal(t, "Color", out[1].PropertyName)
	assert.False(t, out[1].Found)
	assert.Equal(t, 0, out[1].ConfidencePercent)
	assert.Empty(t, out[1].Value)
}

func TestReconcile_OutputFollowsPropertyOrder(t *testing.T) {
	r := New()

	props := []model.PropertyDefinition{
		{Name: "B", OrderIndex: 1},
		{Name: "A", OrderIndex: 0},
	}

	out := r.Reconcile(props, nil, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].PropertyName)
	assert.Equal(t, "B", out[1].PropertyName)
}

func TestReconcile_DisplayValueFromStrongestClaim(t *testing.T) {
	r := New()

	claims := []model.ExtractedPropertyClaim{
		{PropertyName: "Height", Value: "1270MM", ConfidencePercent: 50, SourceIndices: []int{1}},
		{PropertyName: "Height", Value: "1270 mm", ConfidencePercent: 95, SourceIndices: []int{0}},
	}

	out := r.Reconcile(testProps("Height"), claims, testContents())
	require.Len(t, out, 1)
	assert.True(t, out[0].IsConsistentAcrossSources)
	assert.Equal(t, "1270 mm", out[0].Value)
}

func TestReconcile_PropertyNameMatchingIsCaseInsensitive(t *testing.T) {
	r := New()

	claims := []model.ExtractedPropertyClaim{
		{PropertyName: "höhe", Value: "1270 mm", ConfidencePercent: 75, SourceIndices: []int{0}},
	}

	out := r.Reconcile(testProps("Höhe"), claims, testContents())
	require.Len(t, out, 1)
	assert.True(t, out[0].Found)
	assert.Equal(t, "Höhe", out[0].PropertyName)
}
