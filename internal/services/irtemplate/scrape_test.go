package irtemplate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/pkg/models"
)

type fakeFetcher struct {
	pages map[string]string
}

func (f fakeFetcher) FetchPage(ctx context.Context, rawURL string) (string, error) {
	return f.pages[rawURL], nil
}

func TestScrape_ExtractsPDFLinksOnly(t *testing.T) {
	html := `
<html><body>
<ul>
<li><a href="/docs/fy2024-q4.pdf">FY2024 Q4 Results</a></li>
<li><a href="/docs/presentation.html">Presentation (HTML)</a></li>
</ul>
</body></html>`

	fetcher := fakeFetcher{pages: map[string]string{
		"https://example.com/ir/earnings.html": html,
	}}

	tmpl := models.IRTemplate{
		Company: models.IRTemplateCompany{SecCode: "72030", Name: "Toyota Motor"},
		IRPage: models.IRTemplatePage{
			BaseURL: "https://example.com/ir/",
			Sections: map[models.IRCategory]models.IRTemplateSection{
				models.IRCategoryEarnings: {
					URL:      "earnings.html",
					Selector: "li",
				},
			},
		},
	}

	engine, err := NewEngine(t.TempDir(), nil, false, arbor.NewLogger())
	require.NoError(t, err)

	docs, err := engine.Scrape(context.Background(), fetcher, tmpl, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://example.com/docs/fy2024-q4.pdf", docs[0].URL)
	assert.Equal(t, "FY2024 Q4 Results", docs[0].Title)
	assert.Equal(t, models.IRCategoryEarnings, docs[0].Category)
}

func TestScrape_TitleFallsBackToBasename(t *testing.T) {
	html := `<a href="/docs/untitled.pdf"></a>`
	fetcher := fakeFetcher{pages: map[string]string{
		"https://example.com/ir/earnings.html": html,
	}}
	tmpl := models.IRTemplate{
		IRPage: models.IRTemplatePage{
			BaseURL: "https://example.com/ir/",
			Sections: map[models.IRCategory]models.IRTemplateSection{
				models.IRCategoryEarnings: {URL: "earnings.html", Selector: "a"},
			},
		},
	}

	engine, err := NewEngine(t.TempDir(), nil, false, arbor.NewLogger())
	require.NoError(t, err)

	docs, err := engine.Scrape(context.Background(), fetcher, tmpl, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "untitled.pdf", docs[0].Title)
}

func TestScrape_LinkPatternFilter(t *testing.T) {
	html := `
<a href="/docs/annual-report.pdf">Annual</a>
<a href="/docs/brochure.pdf">Brochure</a>`
	fetcher := fakeFetcher{pages: map[string]string{
		"https://example.com/ir/earnings.html": html,
	}}
	tmpl := models.IRTemplate{
		IRPage: models.IRTemplatePage{
			BaseURL: "https://example.com/ir/",
			Sections: map[models.IRCategory]models.IRTemplateSection{
				models.IRCategoryEarnings: {
					URL:         "earnings.html",
					Selector:    "a",
					LinkPattern: "annual",
				},
			},
		},
	}

	engine, err := NewEngine(t.TempDir(), nil, false, arbor.NewLogger())
	require.NoError(t, err)

	docs, err := engine.Scrape(context.Background(), fetcher, tmpl, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].URL, "annual-report")
}

func TestScrape_CategoryFilter(t *testing.T) {
	htmlEarnings := `<a href="/e.pdf">Earnings</a>`
	htmlNews := `<a href="/n.pdf">News</a>`
	fetcher := fakeFetcher{pages: map[string]string{
		"https://example.com/ir/earnings.html": htmlEarnings,
		"https://example.com/ir/news.html":     htmlNews,
	}}
	tmpl := models.IRTemplate{
		IRPage: models.IRTemplatePage{
			BaseURL: "https://example.com/ir/",
			Sections: map[models.IRCategory]models.IRTemplateSection{
				models.IRCategoryEarnings: {URL: "earnings.html", Selector: "a"},
				models.IRCategoryNews:     {URL: "news.html", Selector: "a"},
			},
		},
	}

	engine, err := NewEngine(t.TempDir(), nil, false, arbor.NewLogger())
	require.NoError(t, err)

	docs, err := engine.Scrape(context.Background(), fetcher, tmpl, models.IRCategoryNews)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.IRCategoryNews, docs[0].Category)
}
