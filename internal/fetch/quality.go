package fetch

import (
	"net/http"
	"strings"
)

// shellKind describes why a response is unusable as-is.
type shellKind string

const (
	shellNone    shellKind = ""
	shellJSOnly  shellKind = "js_shell"
	shellBlocked shellKind = "blocked"
	shellCaptcha shellKind = "captcha"
)

// detectShell checks an HTTP response for anti-bot blocks and JS-only
// shells. A JS shell escalates to the next tier; a block is terminal for
// HTTP tiers but may still succeed under a real browser.
func detectShell(resp *http.Response, body []byte) shellKind {
	if resp == nil {
		return shellNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" ||
			resp.Header.Get("cf-cache-status") != "" ||
			resp.Header.Get("server") == "cloudflare" {
			return shellBlocked
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") {
		return shellBlocked
	}

	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") {
		return shellCaptcha
	}

	// JS-only shell: a tiny document that tells non-JS clients to go away,
	// or a bare single-page-app mount point.
	if len(body) < 4096 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return shellJSOnly
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return shellJSOnly
		}
		if strings.Contains(lower, `id="root"`) || strings.Contains(lower, `id="app"`) ||
			strings.Contains(lower, `id="__next"`) {
			return shellJSOnly
		}
	}

	return shellNone
}

// sufficient reports whether extracted text is long enough to be worth
// sending to extraction. Too-short content escalates to the next tier.
func sufficient(text string, minLen int) bool {
	return len(strings.TrimSpace(text)) >= minLen
}
