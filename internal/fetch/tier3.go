package fetch

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prodex-cli/internal/config"
	"github.com/sells-group/prodex-cli/internal/model"
)

// Renderer renders a URL through a headless browser and returns the
// resulting HTML.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
	Close()
}

// BrowserPool is a bounded chromedp renderer. A fixed number of slots caps
// concurrent browser contexts independently of how many sources need
// rendering; excess requests queue for a free slot.
type BrowserPool struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	slots       chan struct{}
	wait        time.Duration
}

// NewBrowserPool creates a renderer with cfg.PoolSize concurrent slots.
func NewBrowserPool(cfg config.RenderConfig) *BrowserPool {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.DisableSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	size := cfg.PoolSize
	if size <= 0 {
		size = 3
	}

	return &BrowserPool{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		slots:       make(chan struct{}, size),
		wait:        time.Duration(cfg.WaitMillis) * time.Millisecond,
	}
}

// Render navigates to url in a pooled browser context, waits for the page
// to settle, and returns the rendered HTML. Blocks until a pool slot is
// free or ctx is canceled.
func (p *BrowserPool) Render(ctx context.Context, url string) (string, error) {
	select {
	case p.slots <- struct{}{}:
		defer func() { <-p.slots }()
	case <-ctx.Done():
		return "", eris.Wrap(ctx.Err(), "render: waiting for pool slot")
	}

	taskCtx, cancel := chromedp.NewContext(p.allocCtx)
	defer cancel()

	// Honor the caller's deadline inside the browser context.
	if deadline, ok := ctx.Deadline(); ok {
		var tcancel context.CancelFunc
		taskCtx, tcancel = context.WithDeadline(taskCtx, deadline)
		defer tcancel()
	}

	// Propagate caller cancellation to the browser task.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(p.wait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", eris.Wrapf(err, "render: %s", url)
	}
	return html, nil
}

// Close releases the browser allocator.
func (p *BrowserPool) Close() {
	p.allocCancel()
}

// tier3 renders through the bounded headless pool. It is the last escalation
// step; insufficient content here is terminal.
type tier3 struct {
	renderer Renderer
	minLen   int
	deadline time.Duration
}

func newTier3(renderer Renderer, minLen int, deadline time.Duration) *tier3 {
	return &tier3{renderer: renderer, minLen: minLen, deadline: deadline}
}

func (t *tier3) Tier() model.FetchTier  { return model.Tier3 }
func (t *tier3) Timeout() time.Duration { return t.deadline }

func (t *tier3) Fetch(ctx context.Context, targetURL string) (*page, error) {
	html, err := t.renderer.Render(ctx, targetURL)
	if err != nil {
		return nil, err
	}

	title, text, err := extractText([]byte(html))
	if err != nil {
		return nil, err
	}
	if !sufficient(text, t.minLen) {
		return nil, newTierError(model.FetchErrJSRequired, eris.Errorf("tier3: thin content after render (%d chars)", len(text)))
	}

	return &page{Title: title, Text: text, StatusCode: 200}, nil
}
