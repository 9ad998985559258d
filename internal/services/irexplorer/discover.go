package irexplorer

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// irURLPatterns matches a homepage anchor's href against known IR-page URL
// shapes (spec.md §4.8).
var irURLPatterns = regexp.MustCompile(`(?i)(/ir(/|$)|/investors?(/|$)|/stockholders(/|$)|investor[-_]relations)`)

// irTextKeywordPattern matches a homepage anchor's visible text against the
// investor-relations keyword families (English as whole words to avoid
// matching substrings like "circle"; Japanese as plain substrings since the
// language doesn't delimit words with spaces).
var irTextKeywordPattern = regexp.MustCompile(`(?i)\b(ir|investor)\b|投資家|株主`)

// DiscoverIRPage walks homepageURL's anchors and returns the first absolute
// URL whose href matches a known IR-page pattern or whose text names
// investor relations. Returns "" if none match.
func DiscoverIRPage(ctx context.Context, fetcher PageFetcher, homepageURL string) (string, error) {
	html, err := fetcher.FetchPage(ctx, homepageURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	base, err := url.Parse(homepageURL)
	if err != nil {
		return "", err
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if href == "" {
			return true
		}

		text := strings.TrimSpace(sel.Text())
		if !irURLPatterns.MatchString(href) && !irTextKeywordPattern.MatchString(text) {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		found = base.ResolveReference(ref).String()
		return false
	})

	return found, nil
}
