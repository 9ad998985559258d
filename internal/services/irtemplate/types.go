package irtemplate

import (
	"context"

	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// PageFetcher is the scraper capability the engine needs: fetch a page's
// HTML body. substrate.Substrate satisfies this directly.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (string, error)
}

// CustomScraper is the explicit, construction-time registry hook for
// companies whose IR page can't be described declaratively (spec.md
// §4.7's "custom hook"). There is no dynamic symbol resolution anywhere:
// a template naming a custom_class not present in the registry passed to
// NewEngine fails validation closed, at load time.
type CustomScraper interface {
	Scrape(ctx context.Context, fetcher PageFetcher, tmpl models.IRTemplate, category models.IRCategory) ([]models.IRDocument, error)
}
