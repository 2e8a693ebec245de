package cotacao

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// BrowserOptions enumerates every knob of the controlled Chrome instance.
type BrowserOptions struct {
	Headless           bool
	WindowWidth        int
	WindowHeight       int
	UserAgent          string
	PageLoadTimeout    time.Duration // navigation deadline
	ElementWaitTimeout time.Duration // per-locator wait deadline
	SettleDelay        time.Duration // fixed wait after UI interactions
	ResultDelay        time.Duration // fixed wait after submit, before reading the result
	AttemptTimeout     time.Duration // deadline for one whole strategy attempt
	Screenshots        bool          // diagnostic screenshots on/off
	ScreenshotDir      string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36"

func (o BrowserOptions) withDefaults() BrowserOptions {
	if o.WindowWidth == 0 {
		o.WindowWidth = 1920
	}
	if o.WindowHeight == 0 {
		o.WindowHeight = 1080
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.PageLoadTimeout == 0 {
		o.PageLoadTimeout = 60 * time.Second
	}
	if o.ElementWaitTimeout == 0 {
		o.ElementWaitTimeout = 10 * time.Second
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = 1500 * time.Millisecond
	}
	if o.ResultDelay == 0 {
		o.ResultDelay = 5 * time.Second
	}
	if o.AttemptTimeout == 0 {
		o.AttemptTimeout = 90 * time.Second
	}
	if o.ScreenshotDir == "" {
		o.ScreenshotDir = "screenshots"
	}
	return o
}

// Browser owns exactly one Chrome instance. It is a single-writer resource:
// one orchestrator run drives it sequentially, concurrent use is not
// supported.
type Browser struct {
	opts      BrowserOptions
	log       Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	onClose   func() // test hook, may be nil
}

// NewBrowser spawns a Chrome instance with the given options. A failure to
// start is fatal to the run and surfaces as SessionError.
func NewBrowser(opts BrowserOptions, log Logger) (*Browser, error) {
	opts = opts.withDefaults()

	allocOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("block-new-web-contents", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOptions...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))
	cancel := func() {
		ctxCancel()
		allocCancel()
	}

	// Launch now so a broken Chrome install fails the run up front instead
	// of on the first pair.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, SessionError{Err: err}
	}

	return &Browser{
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Context returns the browser-scoped chromedp context. Derive per-step
// deadlines from it; cancelling a derived context never kills the browser.
func (b *Browser) Context() context.Context {
	return b.ctx
}

// Close terminates the Chrome process. It is idempotent, safe on an
// already-dead session, and never reports an error: cleanup failure must
// not mask the run's result.
func (b *Browser) Close() {
	b.closeOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		if b.log != nil {
			b.log.Printf("browser session closed")
		}
		if b.onClose != nil {
			b.onClose()
		}
	})
}

// Navigate loads a URL under the page-load timeout. ctx must descend from
// Context() so chromedp can find its target.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	nav, cancel := context.WithTimeout(ctx, b.opts.PageLoadTimeout)
	defer cancel()
	return chromedp.Run(nav, chromedp.Navigate(url))
}

// strategyContext derives a deadline-bound context for one strategy
// attempt. It descends from the browser context (chromedp requires that)
// but is also cancelled when the caller's run context ends.
func (b *Browser) strategyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(b.ctx, b.opts.AttemptTimeout)
	stop := context.AfterFunc(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Screenshot captures the current page into a timestamped PNG. It is a
// no-op unless diagnostics are enabled, and a failed capture only logs.
func (b *Browser) Screenshot(label string) {
	if !b.opts.Screenshots || b.ctx == nil {
		return
	}
	var buf []byte
	err := chromedp.Run(b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().Do(ctx)
		return err
	}))
	if err != nil {
		b.log.Printf("screenshot %v failed: %v", label, err)
		return
	}
	if err := os.MkdirAll(b.opts.ScreenshotDir, 0o755); err != nil {
		b.log.Printf("screenshot dir: %v", err)
		return
	}
	filename := filepath.Join(b.opts.ScreenshotDir,
		fmt.Sprintf("%v_%v.png", label, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(filename, buf, 0o644); err != nil {
		b.log.Printf("screenshot write: %v", err)
		return
	}
	b.log.Printf("screenshot saved: %v", filename)
}

// settle blocks for the configured settle delay, honoring ctx cancellation.
func (b *Browser) settle(ctx context.Context, d time.Duration) error {
	if d == 0 {
		d = b.opts.SettleDelay
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
