package substrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/common"
)

// contextAwareTransport wraps an http.RoundTripper so an in-flight request
// aborts as soon as its context is cancelled, matching the teacher's
// html_scraper.go transport wrapper.
type contextAwareTransport struct {
	base http.RoundTripper
}

func (t *contextAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	default:
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Substrate bundles the plain HTTP client and the pooled browser session
// that every scraping-adjacent component (Filings client, company
// directory, IR template engine, IR explorer) shares, per spec.md §4.1.
type Substrate struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	retryPolicy *RetryPolicy
	robots      *RobotsChecker
	browsers    *BrowserPool
	userAgent   string
	logger      arbor.ILogger
}

// New builds a Substrate from the scraper configuration. The browser pool is
// lazily initialized on first use (FetchPage or the browser leg of
// DownloadPDF) to avoid the startup cost on pure-HTTP call paths.
func New(cfg common.ScraperConfig, logger arbor.ILogger) *Substrate {
	httpClient := &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: &contextAwareTransport{base: http.DefaultTransport},
	}

	return &Substrate{
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(cfg.MinRequestInterval),
		retryPolicy: NewRetryPolicy(),
		robots:      NewRobotsChecker(httpClient, cfg.UserAgent, cfg.IgnoreRobotsTxt, logger),
		browsers: NewBrowserPool(BrowserPoolConfig{
			MaxInstances:       cfg.MaxBrowserPool,
			UserAgent:          cfg.UserAgent,
			Headless:           cfg.Headless,
			JavaScriptWaitTime: cfg.JavaScriptWaitTime,
			RequestTimeout:     cfg.RequestTimeout,
		}, logger),
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// RobotsAllowed checks robots.txt before a component issues any request of
// its own (e.g. the IR template engine's page fetch).
func (s *Substrate) RobotsAllowed(rawURL string) bool {
	return s.robots.Allowed(rawURL)
}

// Get issues a rate-limited, retried GET and returns the response body.
// Non-2xx responses are not themselves errors here — callers inspect the
// status code, since the Filings client and the company directory each map
// status codes to their own error taxonomy branch.
func (s *Substrate) Get(ctx context.Context, rawURL string, headers map[string]string) (int, []byte, error) {
	s.rateLimiter.Wait()

	var status int
	var body []byte

	_, err := ExecuteWithRetry(ctx, s.logger, s.retryPolicy, func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("User-Agent", s.userAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, err
		}
		status = resp.StatusCode
		body = data
		return resp.StatusCode, nil
	})
	if err != nil {
		return status, body, err
	}
	return status, body, nil
}

// FetchPage renders rawURL in a pooled headless browser and returns the
// resulting HTML, per spec.md §4.1's fetch_page.
func (s *Substrate) FetchPage(ctx context.Context, rawURL string) (string, error) {
	if err := s.browsers.Init(); err != nil {
		return "", apperrors.Wrap(apperrors.KindPageAccess, err, "browser pool unavailable")
	}
	s.rateLimiter.Wait()
	return s.browsers.FetchPage(ctx, rawURL)
}

// DownloadPDF implements the dual HTTP→browser download strategy exactly as
// spec.md §4.1 describes: reuse an existing file unless force, try the
// plain HTTP client first with browser-like headers, fall back to the
// browser session only on HTTP 403, and surface anything else as
// DocumentDownloadError.
func (s *Substrate) DownloadPDF(ctx context.Context, rawURL, savePath string, force bool, referer string) (string, error) {
	if !force {
		if _, err := os.Stat(savePath); err == nil {
			return savePath, nil
		}
	}

	if referer == "" {
		if parsed, err := url.Parse(rawURL); err == nil {
			referer = parsed.Scheme + "://" + parsed.Host + "/"
		}
	}

	headers := map[string]string{
		"Referer":          referer,
		"Accept":           "application/pdf,application/octet-stream,*/*",
		"Sec-Fetch-Dest":   "document",
		"Sec-Fetch-Mode":   "navigate",
		"Sec-Fetch-Site":   "same-origin",
	}

	s.rateLimiter.Wait()
	status, body, err := s.httpGetFollowRedirects(ctx, rawURL, headers)
	if err == nil && status >= 200 && status < 300 {
		if err := writeFile(savePath, body); err != nil {
			return "", apperrors.Wrap(apperrors.KindDocumentDownload, err, "failed to write downloaded PDF")
		}
		return savePath, nil
	}

	if status == http.StatusForbidden {
		if initErr := s.browsers.Init(); initErr != nil {
			return "", apperrors.Wrap(apperrors.KindDocumentDownload, initErr, "browser fallback unavailable after HTTP 403")
		}
		if err := s.browsers.downloadViaBrowser(ctx, rawURL, savePath); err != nil {
			return "", err
		}
		return savePath, nil
	}

	if err == nil {
		err = fmt.Errorf("unexpected status %d", status)
	}
	return "", apperrors.Wrap(apperrors.KindDocumentDownload, err, "failed to download document: "+rawURL)
}

func (s *Substrate) httpGetFollowRedirects(ctx context.Context, rawURL string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

func writeFile(savePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(savePath, data, 0o644)
}

// Close releases the browser pool, if it was ever started.
func (s *Substrate) Close() {
	s.browsers.Shutdown()
}
