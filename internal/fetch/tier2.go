package fetch

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prodex-cli/internal/model"
)

// tier2 is the JS-aware HTTP fetch: full browser headers, a medium timeout,
// and recovery of JSON-LD structured data that client-rendered product pages
// embed even when their visible markup is an empty shell.
type tier2 struct {
	client   *http.Client
	ua       string
	maxBody  int64
	minLen   int
	deadline time.Duration
}

func newTier2(ua string, maxBody int64, minLen int, deadline time.Duration) *tier2 {
	return &tier2{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 8,
			},
		},
		ua:       ua,
		maxBody:  maxBody,
		minLen:   minLen,
		deadline: deadline,
	}
}

func (t *tier2) Tier() model.FetchTier  { return model.Tier2 }
func (t *tier2) Timeout() time.Duration { return t.deadline }

func (t *tier2) Fetch(ctx context.Context, targetURL string) (*page, error) {
	body, resp, err := doGet(ctx, t.client, targetURL, t.maxBody, map[string]string{
		"User-Agent":      t.ua,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9,de;q=0.8",
	})
	if err != nil {
		return nil, err
	}

	shell := detectShell(resp, body)
	if shell == shellBlocked || shell == shellCaptcha {
		return nil, newTierError(model.FetchErrBlocked, eris.Errorf("tier2: blocked (%s)", shell))
	}
	if resp.StatusCode >= 400 {
		return nil, newTierError(model.FetchErrHTTP, eris.Errorf("tier2: status %d", resp.StatusCode))
	}

	title, text, err := extractText(body)
	if err != nil {
		return nil, err
	}

	// Client-rendered pages often keep the full spec sheet in JSON-LD.
	if blocks := extractStructuredData(body); len(blocks) > 0 {
		var b strings.Builder
		b.WriteString(text)
		b.WriteString("\n\nStructured data:\n")
		b.WriteString(strings.Join(blocks, "\n"))
		text = b.String()
	}

	if shell == shellJSOnly && !sufficient(text, t.minLen) {
		return nil, newTierError(model.FetchErrJSRequired, eris.Errorf("tier2: js shell at %s", targetURL))
	}
	if !sufficient(text, t.minLen) {
		return nil, newTierError(model.FetchErrJSRequired, eris.Errorf("tier2: thin content (%d chars)", len(text)))
	}

	return &page{Title: title, Text: text, StatusCode: resp.StatusCode}, nil
}
