package fetch

import (
	"context"
	"net"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prodex-cli/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.FetchErrorKind
	}{
		{"nil", nil, model.FetchErrNone},
		{"tier error wins", newTierError(model.FetchErrBlocked, eris.New("cf")), model.FetchErrBlocked},
		{"deadline", context.DeadlineExceeded, model.FetchErrTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "missing.example.com", IsNotFound: true}, model.FetchErrDNS},
		{"generic", eris.New("connection refused"), model.FetchErrHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestClassify_WrappedTierError(t *testing.T) {
	err := eris.Wrap(newTierError(model.FetchErrJSRequired, eris.New("thin")), "fetch: tier1")
	assert.Equal(t, model.FetchErrJSRequired, classify(err))
}
