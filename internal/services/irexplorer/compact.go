// Package irexplorer is the LLM-driven fallback used when no declarative
// IR template exists, or a template scrape yields nothing (spec.md §4.8).
package irexplorer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strippedTags are removed wholesale before the compact walk: chrome that
// never carries IR document links or dates.
var strippedTags = []string{"script", "style", "nav", "footer", "header", "noscript"}

// walkedSelector is the set of node kinds compact walks, in document
// order, matching spec.md §4.8 exactly.
const walkedSelector = "a, p, h1, h2, h3, h4, li, td, div"

// minOtherTextLen is the length threshold for "other elements" (p/li/td/div)
// to be included, avoiding single-word layout noise.
const minOtherTextLen = 10

// compactRepresentation builds the LLM-friendly text form of a page's body,
// capped at capLen characters.
func compactRepresentation(html string, capLen int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	for _, tag := range strippedTags {
		doc.Find(tag).Remove()
	}

	var fragments []string
	seen := make(map[string]bool)

	doc.Find(walkedSelector).Each(func(_ int, sel *goquery.Selection) {
		fragment, ok := renderFragment(sel)
		if !ok || fragment == "" || seen[fragment] {
			return
		}
		seen[fragment] = true
		fragments = append(fragments, fragment)
	})

	joined := strings.Join(fragments, "\n\n")
	if len(joined) > capLen {
		joined = joined[:capLen]
	}
	return joined, nil
}

func renderFragment(sel *goquery.Selection) (string, bool) {
	tag := goquery.NodeName(sel)
	text := strings.TrimSpace(sel.Text())

	switch tag {
	case "a":
		if text == "" {
			return "", false
		}
		href, _ := sel.Attr("href")
		if strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return fmt.Sprintf("[PDF] [%s](%s)", text, href), true
		}
		return fmt.Sprintf("[%s](%s)", text, href), true

	case "h1", "h2", "h3", "h4":
		if text == "" {
			return "", false
		}
		level := strings.TrimPrefix(tag, "h")
		return fmt.Sprintf("{#%s} %s", level, text), true

	default: // p, li, td, div
		if len(text) <= minOtherTextLen {
			return "", false
		}
		return text, true
	}
}
