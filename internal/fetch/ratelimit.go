package fetch

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// domainLimiters keeps one token bucket per target domain so that a batch
// with many pages on one host does not hammer it. This budget is separate
// from the search and LLM limiters.
type domainLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
}

func newDomainLimiters(perSec float64, burst int) *domainLimiters {
	if perSec <= 0 {
		perSec = 2
	}
	if burst <= 0 {
		burst = 4
	}
	return &domainLimiters{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(perSec),
		burst:    burst,
	}
}

// wait blocks until the target's domain bucket allows another request.
func (d *domainLimiters) wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}

	d.mu.Lock()
	lim, ok := d.limiters[host]
	if !ok {
		lim = rate.NewLimiter(d.perSec, d.burst)
		d.limiters[host] = lim
	}
	d.mu.Unlock()

	return lim.Wait(ctx)
}
