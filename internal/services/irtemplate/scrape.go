package irtemplate

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// Scrape runs the template's scrape algorithm against every requested
// category section (or all sections if category is empty), per spec.md
// §4.7's five sub-steps. It never downloads; that is the pipeline
// service's responsibility (§4.9).
func (e *Engine) Scrape(ctx context.Context, fetcher PageFetcher, tmpl models.IRTemplate, category models.IRCategory) ([]models.IRDocument, error) {
	if tmpl.CustomClass != "" {
		scraper, ok := e.customScrapers[tmpl.CustomClass]
		if !ok {
			return nil, apperrors.New(apperrors.KindTemplateNotFound,
				fmt.Sprintf("custom_class %q is not registered", tmpl.CustomClass))
		}
		return scraper.Scrape(ctx, fetcher, tmpl, category)
	}

	var documents []models.IRDocument
	for cat, section := range tmpl.IRPage.Sections {
		if category != "" && cat != category {
			continue
		}

		sectionURL, err := resolveURL(tmpl.IRPage.BaseURL, section.URL)
		if err != nil {
			return nil, apperrors.PageAccessError(err, section.URL)
		}

		html, err := fetcher.FetchPage(ctx, sectionURL)
		if err != nil {
			return nil, apperrors.PageAccessError(err, sectionURL)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("failed to parse IR page %s: %w", sectionURL, err)
		}

		var linkPattern *regexp.Regexp
		if section.LinkPattern != "" {
			linkPattern, err = regexp.Compile(section.LinkPattern)
			if err != nil {
				return nil, fmt.Errorf("invalid link_pattern %q: %w", section.LinkPattern, err)
			}
		}

		doc.Find(section.Selector).Each(func(_ int, sel *goquery.Selection) {
			if irDoc, ok := extractDocument(sel, sectionURL, cat, linkPattern, section.DateSelector, section.DateFormat); ok {
				documents = append(documents, irDoc)
			}
		})
	}

	return documents, nil
}

// extractDocument implements spec.md §4.7 step 4: href resolution, link
// pattern filter, the mandatory ".pdf" gate, title fallback, and optional
// date parsing.
func extractDocument(sel *goquery.Selection, baseURL string, category models.IRCategory, linkPattern *regexp.Regexp, dateSelector, dateFormat string) (models.IRDocument, bool) {
	var href string
	var ok bool
	if goquery.NodeName(sel) == "a" {
		href, ok = sel.Attr("href")
	}
	if !ok || href == "" {
		anchor := sel.Find("a").First()
		href, ok = anchor.Attr("href")
	}
	if !ok || href == "" {
		return models.IRDocument{}, false
	}

	if linkPattern != nil && !linkPattern.MatchString(href) {
		return models.IRDocument{}, false
	}

	if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
		return models.IRDocument{}, false
	}

	absoluteURL, err := resolveURL(baseURL, href)
	if err != nil {
		return models.IRDocument{}, false
	}

	title := strings.TrimSpace(sel.Text())
	if title == "" {
		title = path.Base(href)
	}

	var publishedDate *time.Time
	if dateSelector != "" && dateFormat != "" {
		dateText := strings.TrimSpace(sel.Find(dateSelector).First().Text())
		if dateText != "" {
			if parsed, parseErr := time.Parse(dateFormat, dateText); parseErr == nil {
				publishedDate = &parsed
			}
		}
	}

	return models.IRDocument{
		Title:         title,
		URL:           absoluteURL,
		Category:      category,
		PublishedDate: publishedDate,
	}, true
}

// resolveURL resolves ref against base, absolute or relative.
func resolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
