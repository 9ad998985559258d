package irexplorer

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/interfaces"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// PageFetcher is the scraper capability the explorer needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (string, error)
}

// Explorer discovers IR documents on a page with no declarative template,
// by asking an LLM to pick candidate links out of a compact text
// representation of the page (spec.md §4.8).
type Explorer struct {
	provider interfaces.LLMProvider
	capLen   int
	maxLinks int
	logger   arbor.ILogger
}

func NewExplorer(provider interfaces.LLMProvider, capLen, maxLinks int, logger arbor.ILogger) *Explorer {
	return &Explorer{provider: provider, capLen: capLen, maxLinks: maxLinks, logger: logger}
}

var exploredLinksSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"links": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title":          map[string]interface{}{"type": "string"},
					"url":            map[string]interface{}{"type": "string"},
					"category":       map[string]interface{}{"type": "string", "enum": []string{"earnings", "news", "disclosures"}},
					"published_date": map[string]interface{}{"type": "string", "description": "ISO date, or empty if unknown"},
					"confidence":     map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
				},
				"required": []string{"title", "url", "category", "published_date", "confidence"},
			},
		},
	},
	"required": []string{"links"},
}

const explorerPromptTemplate = `You are looking at the investor-relations page of a Japanese listed company, rendered below as a compact text representation of its links and headings.

Find up to %d documents or news items relevant to investors: earnings materials, corporate disclosures, and investor news. Prefer links to PDF files; only fall back to an HTML news page when no PDF is present for that item.

Classify each item into exactly one category:
- "earnings": quarterly/annual financial results, earnings presentations, financial summaries.
- "disclosures": regulatory/corporate disclosures — business-forecast revisions, dividend-forecast revisions, treasury-share actions, M&A, personnel changes, capital events, litigation, administrative actions. Example: an "earnings-guidance revision" announcement is "disclosures", not "earnings".
- "news": general investor-facing news that doesn't fit the above.

For each item return {title, url, category, published_date (ISO "YYYY-MM-DD" or empty if unknown), confidence (0 to 1)}.

Page content:
%s`

type exploredLinksResponse struct {
	Links []models.ExploredLink `json:"links"`
}

// Explore fetches pageURL, builds its compact representation, asks the LLM
// for candidate links, and resolves them into IR documents.
func (e *Explorer) Explore(ctx context.Context, fetcher PageFetcher, pageURL string) ([]models.IRDocument, error) {
	html, err := fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, apperrors.PageAccessError(err, pageURL)
	}

	compact, err := compactRepresentation(html, e.capLen)
	if err != nil {
		return nil, fmt.Errorf("failed to build compact representation of %s: %w", pageURL, err)
	}

	prompt := fmt.Sprintf(explorerPromptTemplate, e.maxLinks, compact)

	var resp exploredLinksResponse
	if err := e.provider.InvokeStructured(ctx, prompt, exploredLinksSchema, &resp); err != nil {
		return nil, apperrors.LLMProviderError(err, "IR explorer structured call failed")
	}

	links := resp.Links
	if len(links) > e.maxLinks {
		links = links[:e.maxLinks]
	}

	documents := make([]models.IRDocument, 0, len(links))
	for _, link := range links {
		doc, ok := resolveLink(link, pageURL)
		if ok {
			documents = append(documents, doc)
		}
	}
	return documents, nil
}

// resolveLink post-processes one ExploredLink into an IRDocument: absolute
// URL resolution against the page it came from, and ISO date parsing
// (empty → nil).
func resolveLink(link models.ExploredLink, pageURL string) (models.IRDocument, bool) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return models.IRDocument{}, false
	}
	ref, err := url.Parse(link.URL)
	if err != nil {
		return models.IRDocument{}, false
	}
	absoluteURL := base.ResolveReference(ref).String()

	var publishedDate *time.Time
	if link.PublishedDate != "" {
		if parsed, parseErr := time.Parse("2006-01-02", link.PublishedDate); parseErr == nil {
			publishedDate = &parsed
		}
	}

	category := link.Category
	switch category {
	case models.IRCategoryEarnings, models.IRCategoryNews, models.IRCategoryDisclosures:
	default:
		category = models.IRCategoryDisclosures
	}

	return models.IRDocument{
		Title:         link.Title,
		URL:           absoluteURL,
		Category:      category,
		PublishedDate: publishedDate,
	}, true
}
