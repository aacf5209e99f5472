package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prodex-cli/internal/model"
)

// tier1 is the lightweight HTTP fetch: plain GET, short timeout, plaintext
// extraction. Most static product pages resolve here.
type tier1 struct {
	client   *http.Client
	ua       string
	maxBody  int64
	minLen   int
	deadline time.Duration
}

func newTier1(ua string, maxBody int64, minLen int, deadline time.Duration) *tier1 {
	return &tier1{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 8,
			},
		},
		ua:       ua,
		maxBody:  maxBody,
		minLen:   minLen,
		deadline: deadline,
	}
}

func (t *tier1) Tier() model.FetchTier  { return model.Tier1 }
func (t *tier1) Timeout() time.Duration { return t.deadline }

func (t *tier1) Fetch(ctx context.Context, targetURL string) (*page, error) {
	body, resp, err := doGet(ctx, t.client, targetURL, t.maxBody, map[string]string{
		"User-Agent": t.ua,
	})
	if err != nil {
		return nil, err
	}

	if kind := shellToErrorKind(detectShell(resp, body)); kind != model.FetchErrNone {
		return nil, newTierError(kind, eris.Errorf("tier1: unusable response from %s", targetURL))
	}
	if resp.StatusCode >= 400 {
		return nil, newTierError(model.FetchErrHTTP, eris.Errorf("tier1: status %d", resp.StatusCode))
	}

	title, text, err := extractText(body)
	if err != nil {
		return nil, err
	}
	if !sufficient(text, t.minLen) {
		return nil, newTierError(model.FetchErrJSRequired, eris.Errorf("tier1: thin content (%d chars)", len(text)))
	}

	return &page{Title: title, Text: text, StatusCode: resp.StatusCode}, nil
}

// doGet performs a GET with a capped body read, shared by tiers 1 and 2.
func doGet(ctx context.Context, client *http.Client, targetURL string, maxBody int64, headers map[string]string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetch: create request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetch: read body")
	}
	return body, resp, nil
}

func shellToErrorKind(kind shellKind) model.FetchErrorKind {
	switch kind {
	case shellJSOnly:
		return model.FetchErrJSRequired
	case shellBlocked, shellCaptcha:
		return model.FetchErrBlocked
	default:
		return model.FetchErrNone
	}
}
