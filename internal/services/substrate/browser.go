package substrate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
)

// blockedResourceTypes are route-blocked for speed, per spec.md §4.1's
// "route-block image/CSS/font/SVG MIME patterns" requirement. The teacher's
// ChromeDPPool has no equivalent; this is new code built on chromedp's
// request-interception pattern (fetch.Enable + fetch.Continue/fetch.Fail).
var blockedResourceTypes = map[network.ResourceType]bool{
	network.ResourceTypeImage:  true,
	network.ResourceTypeStylesheet: true,
	network.ResourceTypeFont:   true,
	network.ResourceTypeMedia:  true,
}

// BrowserPoolConfig configures the pooled headless browser session.
type BrowserPoolConfig struct {
	MaxInstances       int
	UserAgent          string
	Headless           bool
	JavaScriptWaitTime time.Duration
	RequestTimeout     time.Duration
}

// BrowserPool manages a round-robin pool of ChromeDP browser contexts,
// adapted nearly verbatim from the teacher's ChromeDPPool: same allocation
// strategy, same partial-failure tolerance on startup, same timeout-bounded
// shutdown. What's new is per-context route blocking installed in
// createBrowserInstance.
type BrowserPool struct {
	mu               sync.Mutex
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	maxInstances     int
	currentIndex     int
	logger           arbor.ILogger
	config           BrowserPoolConfig
	initialized      bool
}

// NewBrowserPool creates an uninitialized pool; call Init to start browsers.
func NewBrowserPool(config BrowserPoolConfig, logger arbor.ILogger) *BrowserPool {
	return &BrowserPool{config: config, logger: logger}
}

// Init starts up to config.MaxInstances browser instances, tolerating
// partial failure (at least one instance must succeed).
func (p *BrowserPool) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if p.config.MaxInstances <= 0 {
		return fmt.Errorf("max browser instances must be > 0, got %d", p.config.MaxInstances)
	}

	p.maxInstances = p.config.MaxInstances
	p.browsers = make([]context.Context, 0, p.maxInstances)
	p.browserCancels = make([]context.CancelFunc, 0, p.maxInstances)
	p.allocatorCancels = make([]context.CancelFunc, 0, p.maxInstances)

	successCount := 0
	var lastErr error
	for i := 0; i < p.maxInstances; i++ {
		if err := p.createInstance(i); err != nil {
			lastErr = err
			p.logger.Warn().Err(err).Int("browser_index", i).Msg("failed to create browser instance")
			continue
		}
		successCount++
	}
	if successCount == 0 {
		p.cleanup()
		return fmt.Errorf("failed to create any browser instances: %w", lastErr)
	}
	p.maxInstances = successCount
	p.initialized = true
	return nil
}

func (p *BrowserPool) createInstance(index int) error {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(p.config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	timeout := p.config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	testCtx, testCancel := context.WithTimeout(browserCtx, timeout)
	defer testCancel()

	if err := chromedp.Run(testCtx,
		enableRouteBlocking(),
		chromedp.Navigate("about:blank"),
	); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser instance failed startup test: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)
	return nil
}

// enableRouteBlocking installs a fetch-domain request interceptor that fails
// image/stylesheet/font/media requests and continues everything else.
func enableRouteBlocking() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		chromedp.ListenTarget(ctx, func(ev interface{}) {
			switch e := ev.(type) {
			case *fetch.EventRequestPaused:
				go func() {
					c := chromedp.FromContext(ctx)
					execCtx := cdp.WithExecutor(context.Background(), c.Target)
					if blockedResourceTypes[e.ResourceType] {
						_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
						return
					}
					_ = fetch.ContinueRequest(e.RequestID).Do(execCtx)
				}()
			}
		})
		return fetch.Enable().Do(ctx)
	}
}

// get returns a pooled browser context via round-robin allocation.
func (p *BrowserPool) get() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized || len(p.browsers) == 0 {
		return nil, fmt.Errorf("browser pool not initialized")
	}
	idx := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)
	return p.browsers[idx], nil
}

// FetchPage navigates to url in a fresh tab of a pooled browser, waits for
// the body to be ready plus the fixed JavaScriptWaitTime, and returns the
// rendered HTML. It does not wait for network idle. HTTP status >= 400
// surfaces as apperrors.KindPageAccess.
func (p *BrowserPool) FetchPage(ctx context.Context, url string) (string, error) {
	browserCtx, err := p.get()
	if err != nil {
		return "", err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	timeout := p.config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	var statusCode int64
	var html string

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			statusCode = e.Response.Status
		}
	})

	err = chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(p.config.JavaScriptWaitTime),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindPageAccess, err, "failed to fetch page: "+url)
	}
	if statusCode >= 400 {
		return "", &apperrors.Error{
			Kind:       apperrors.KindPageAccess,
			Message:    fmt.Sprintf("page returned status %d", statusCode),
			StatusCode: int(statusCode),
		}
	}
	return html, nil
}

// downloadViaBrowser is the browser-fallback leg of download_pdf: it enables
// CDP download behavior targeting dir, navigates to url, and blocks on the
// Browser.downloadProgress event until the save completes. Navigation itself
// may error with the "Download is starting" / "net::ERR_ABORTED" sentinel
// chromedp surfaces when a navigation is interrupted by a download — that
// specific error is swallowed, per spec.md §4.1.
func (p *BrowserPool) downloadViaBrowser(ctx context.Context, downloadURL, savePath string) error {
	browserCtx, err := p.get()
	if err != nil {
		return err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	timeout := p.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	dir := filepath.Dir(savePath)
	finished := make(chan error, 1)
	var reported bool

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *browser.EventDownloadProgress:
			if reported {
				return
			}
			switch e.State {
			case browser.DownloadProgressStateCompleted:
				reported = true
				finished <- nil
			case browser.DownloadProgressStateCanceled:
				reported = true
				finished <- fmt.Errorf("browser download canceled")
			}
		}
	})

	runErr := chromedp.Run(tabCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
		chromedp.Navigate(downloadURL),
	)
	if runErr != nil && !isDownloadStartingSentinel(runErr) {
		return apperrors.Wrap(apperrors.KindDocumentDownload, runErr, "browser download navigation failed")
	}

	select {
	case err := <-finished:
		if err != nil {
			return apperrors.Wrap(apperrors.KindDocumentDownload, err, "browser download did not complete")
		}
		return nil
	case <-tabCtx.Done():
		return apperrors.Wrap(apperrors.KindDocumentDownload, tabCtx.Err(), "browser download timed out")
	}
}

func isDownloadStartingSentinel(err error) bool {
	return strings.Contains(err.Error(), "Download is starting") ||
		strings.Contains(err.Error(), "net::ERR_ABORTED")
}

// Shutdown releases all pooled browser and allocator contexts, bounded by a
// 30s timeout.
func (p *BrowserPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	done := make(chan struct{})
	go func() {
		p.cleanup()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		p.cleanup()
	}
	p.initialized = false
}

func (p *BrowserPool) cleanup() {
	for _, cancel := range p.browserCancels {
		if cancel != nil {
			cancel()
		}
	}
	for _, cancel := range p.allocatorCancels {
		if cancel != nil {
			cancel()
		}
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.currentIndex = 0
}
