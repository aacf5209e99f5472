package fetch

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

var (
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

// page is the tier-independent product of a successful fetch.
type page struct {
	Title      string
	Text       string
	StatusCode int
}

// extractText parses HTML and returns the document title and visible text.
// Script, style, nav, footer, and template noise is dropped; whitespace is
// collapsed so the result is plaintext suitable for LLM extraction.
func extractText(body []byte) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", eris.Wrap(err, "fetch: parse html")
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, nav, footer, header, noscript, iframe, svg").Remove()

	var b strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		b.WriteString(sel.Text())
	})
	text = b.String()
	if text == "" {
		// Some documents have no body element; fall back to the whole tree.
		text = doc.Text()
	}

	text = spaceRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")
	text = newlineRe.ReplaceAllString(text, "\n\n")

	return title, strings.TrimSpace(text), nil
}

// extractStructuredData pulls JSON-LD blocks out of HTML. Product pages
// frequently carry their specification table only in structured data, which
// survives even when the visible markup is client-rendered.
func extractStructuredData(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var blocks []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		if txt := strings.TrimSpace(sel.Text()); txt != "" {
			blocks = append(blocks, txt)
		}
	})
	return blocks
}
