package fetch

import (
	"context"
	"errors"
	"net"

	"github.com/sells-group/prodex-cli/internal/model"
)

// tierError carries the fetch-error classification across tier boundaries.
type tierError struct {
	kind model.FetchErrorKind
	err  error
}

func (e *tierError) Error() string { return string(e.kind) + ": " + e.err.Error() }

func (e *tierError) Unwrap() error { return e.err }

func newTierError(kind model.FetchErrorKind, err error) *tierError {
	return &tierError{kind: kind, err: err}
}

// classify maps an error from a tier attempt to its FetchErrorKind.
func classify(err error) model.FetchErrorKind {
	if err == nil {
		return model.FetchErrNone
	}

	var te *tierError
	if errors.As(err, &te) {
		return te.kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return model.FetchErrTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return model.FetchErrDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.FetchErrTimeout
	}

	return model.FetchErrHTTP
}
