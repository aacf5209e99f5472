package model

// FetchTier identifies which strategy produced a source's content.
type FetchTier int

const (
	// TierPDF tags content that came from a PDF document rather than a
	// web fetch tier.
	TierPDF FetchTier = 0
	// Tier1 is the plain HTTP fetch with a short timeout.
	Tier1 FetchTier = 1
	// Tier2 is the JS-aware HTTP fetch with a medium timeout.
	Tier2 FetchTier = 2
	// Tier3 is the headless-browser render with the longest timeout.
	Tier3 FetchTier = 3
)

// String returns a human-readable tier label.
func (t FetchTier) String() string {
	switch t {
	case TierPDF:
		return "pdf"
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	case Tier3:
		return "tier3"
	default:
		return "unknown"
	}
}

// FetchErrorKind classifies why a source could not be fetched.
type FetchErrorKind string

const (
	FetchErrNone       FetchErrorKind = ""
	FetchErrTimeout    FetchErrorKind = "timeout"
	FetchErrDNS        FetchErrorKind = "dns_failure"
	FetchErrHTTP       FetchErrorKind = "http_error"
	FetchErrJSRequired FetchErrorKind = "js_required"
	FetchErrBlocked    FetchErrorKind = "blocked"
)

// PdfErrorKind classifies why a PDF document could not be read.
type PdfErrorKind string

const (
	PdfErrCorrupt           PdfErrorKind = "corrupt"
	PdfErrPasswordProtected PdfErrorKind = "password_protected"
	PdfErrUnsupported       PdfErrorKind = "unsupported_encoding"
)

// FetchResult is the outcome of resolving one Source to raw text content.
// Exactly one is produced per Source, success or failure; never mutated
// after creation.
type FetchResult struct {
	Source        Source         `json:"source"`
	TierUsed      FetchTier      `json:"tier_used"`
	RawContent    string         `json:"-"`
	ContentLength int            `json:"content_length"`
	Success       bool           `json:"success"`
	ErrorKind     FetchErrorKind `json:"error_kind,omitempty"`
	DurationMs    int64          `json:"duration_ms"`
}
