package extract

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/prodex-cli/internal/model"
)

const systemText = "You are a product data analyst extracting technical property values from web pages and datasheets. Answer only from the provided sources. Return valid JSON matching the requested schema, nothing else. For every claim, cite the source indices the value came from. Use a confidence between 0 and 100."

const promptTemplate = `Product: %s
Article number: %s

Extract the following properties. For each property report every distinct value the sources support, as one claim per value, citing source indices.

Properties:
%s

Sources (cite by index):
%s

Return a JSON object of this exact shape:
{"claims": [{"property_name": "<name>", "value": "<value>", "confidence_percent": <0-100>, "source_indices": [<int>, ...]}]}

Report only properties from the list above. Omit a property entirely if no source mentions it.`

// stricterSuffix is appended on the re-prompt after a malformed response.
const stricterSuffix = `

IMPORTANT: The previous response could not be parsed. Respond with ONLY the JSON object described above. No markdown fences, no commentary, no trailing text. Every claim must have all four fields with the exact key names given.`

// buildPrompt consolidates all surviving content into one structured
// request. Every source block is tagged with a stable index so the model
// can cite source_indices per claim. When the consolidated content exceeds
// budgetChars, per-source content is truncated proportionally, longest
// sources first, while each source's title/domain marker is preserved so
// attribution survives truncation.
func buildPrompt(articleNumber, productName string, props []model.PropertyDefinition, contents []model.FetchResult, budgetChars int, stricter bool) string {
	var propList strings.Builder
	for _, p := range sortedProps(props) {
		fmt.Fprintf(&propList, "- %s", p.Name)
		if p.Description != "" {
			fmt.Fprintf(&propList, ": %s", p.Description)
		}
		if p.ExpectedFormat != "" {
			fmt.Fprintf(&propList, " (format: %s)", p.ExpectedFormat)
		}
		propList.WriteString("\n")
	}

	budgets := allocateBudget(contentLengths(contents), budgetChars)

	var sources strings.Builder
	for i, fr := range contents {
		text := fr.RawContent
		if len(text) > budgets[i] {
			text = truncateAtRune(text, budgets[i]) + "\n[content truncated]"
		}
		fmt.Fprintf(&sources, "--- Source [%d]: %s (%s) ---\n%s\n\n", i, sourceTitle(fr.Source), sourceOrigin(fr), text)
	}

	prompt := fmt.Sprintf(promptTemplate, productName, articleNumber, propList.String(), sources.String())
	if stricter {
		prompt += stricterSuffix
	}
	return prompt
}

// truncateAtRune cuts text to at most n bytes without splitting a rune.
func truncateAtRune(text string, n int) string {
	if n >= len(text) {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

func sortedProps(props []model.PropertyDefinition) []model.PropertyDefinition {
	out := append([]model.PropertyDefinition(nil), props...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

func contentLengths(contents []model.FetchResult) []int {
	lengths := make([]int, len(contents))
	for i, fr := range contents {
		lengths[i] = len(fr.RawContent)
	}
	return lengths
}

// allocateBudget distributes budget across sources. Sources that fit get
// their full length; the remainder is split evenly among the longer ones,
// so truncation hits the longest sources first and proportionally.
func allocateBudget(lengths []int, budget int) []int {
	n := len(lengths)
	out := make([]int, n)
	if n == 0 {
		return out
	}

	total := 0
	for _, l := range lengths {
		total += l
	}
	if budget <= 0 || total <= budget {
		copy(out, lengths)
		return out
	}

	// Waterfall fill: process sources shortest first; each takes
	// min(own length, fair share of what remains).
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return lengths[idx[a]] < lengths[idx[b]] })

	remaining := budget
	for pos, i := range idx {
		share := remaining / (n - pos)
		take := lengths[i]
		if take > share {
			take = share
		}
		out[i] = take
		remaining -= take
	}
	return out
}

func sourceTitle(src model.Source) string {
	if src.Title != "" {
		return src.Title
	}
	return src.URL
}

// sourceOrigin renders the domain marker: host for web sources, "pdf" for
// documents.
func sourceOrigin(fr model.FetchResult) string {
	if fr.TierUsed == model.TierPDF {
		return "pdf"
	}
	if u, err := url.Parse(fr.Source.URL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "web"
}
