package irpipeline

import (
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

var summarySchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"overview": map[string]interface{}{"type": "string"},
		"impact_points": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"label": map[string]interface{}{"type": "string", "enum": []string{"bullish", "bearish", "warning"}},
					"text":  map[string]interface{}{"type": "string"},
				},
				"required": []string{"label", "text"},
			},
		},
	},
	"required": []string{"overview", "impact_points"},
}

const summaryPromptTemplate = `Summarize the following investor-relations document for an equity research analyst.

Provide a concise prose overview, and a list of labeled impact points. Each impact point must be labeled exactly one of:
- "bullish": a positive signal for the company's outlook or share price.
- "bearish": a negative signal.
- "warning": a risk or caveat worth flagging, neither clearly bullish nor bearish.

Document title: %s

Document content:
%s`

// summarize asks the configured LLM provider for a structured IRSummary
// over text, capped at the service's configured length (spec.md §4.9
// step 7: "cap at 30,000 characters").
func (s *Service) summarize(ctx context.Context, title, text string) (*models.IRSummary, error) {
	capLen := s.cfg.SummaryCapLen
	if capLen <= 0 {
		capLen = 30000
	}
	if len(text) > capLen {
		text = text[:capLen]
	}

	var result models.IRSummary
	prompt := fmt.Sprintf(summaryPromptTemplate, title, text)
	if err := s.provider.InvokeStructured(ctx, prompt, summarySchema, &result); err != nil {
		return nil, apperrors.LLMProviderError(err, "IR document summarization failed")
	}
	return &result, nil
}

// extractMainContent picks the page's primary content container, preferring
// <article> over <main> over <body> (spec.md §4.9 step 7), strips
// non-content chrome, and renders it to markdown so the LLM prompt carries
// structure (headings, lists) instead of a flat text blob.
func extractMainContent(html, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	for _, tag := range []string{"script", "style", "nav", "footer", "noscript"} {
		doc.Find(tag).Remove()
	}

	var container *goquery.Selection
	for _, sel := range []string{"article", "main", "body"} {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			container = found
			break
		}
	}
	if container == nil {
		container = doc.Selection
	}

	contentHTML, err := container.Html()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter(pageURL, true, nil)
	markdown, err := converter.ConvertString(contentHTML)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(markdown), nil
}
