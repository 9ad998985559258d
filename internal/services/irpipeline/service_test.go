package irpipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/services/irexplorer"
	"github.com/tak-akashi/company-research-agent/internal/services/irtemplate"
	"github.com/tak-akashi/company-research-agent/internal/services/pdfextract"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

const earningsTemplate = `
company:
  sec_code: "72030"
  name: "Toyota Motor"
ir_page:
  base_url: "https://example.com/ir/"
  sections:
    earnings:
      url: "earnings.html"
      selector: "a.pdf-link"
`

type fakeScraper struct {
	pages     map[string]string
	downloads map[string]bool // url -> was DownloadPDF called
}

func newFakeScraper() *fakeScraper {
	return &fakeScraper{pages: map[string]string{}, downloads: map[string]bool{}}
}

func (s *fakeScraper) FetchPage(ctx context.Context, rawURL string) (string, error) {
	if html, ok := s.pages[rawURL]; ok {
		return html, nil
	}
	return "", os.ErrNotExist
}

func (s *fakeScraper) DownloadPDF(ctx context.Context, rawURL, savePath string, force bool, referer string) (string, error) {
	s.downloads[rawURL] = true
	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(savePath, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		return "", err
	}
	return savePath, nil
}

type fakeProvider struct {
	responseJSON string
}

func (p fakeProvider) ModelName() string    { return "fake-model" }
func (p fakeProvider) ProviderName() string { return "fake" }
func (p fakeProvider) SupportsVision() bool { return false }

func (p fakeProvider) InvokeStructured(ctx context.Context, prompt string, schema map[string]interface{}, out interface{}) error {
	return json.Unmarshal([]byte(p.responseJSON), out)
}

func (p fakeProvider) InvokeVision(ctx context.Context, textPrompt string, imageBytes []byte, mimeType string) (string, error) {
	return "", nil
}

func newTestService(t *testing.T, tmplDir string, scraper *fakeScraper, provider fakeProvider) *Service {
	t.Helper()
	engine, err := irtemplate.NewEngine(tmplDir, nil, false, arbor.NewLogger())
	require.NoError(t, err)
	explorer := irexplorer.NewExplorer(provider, 15000, 10, arbor.NewLogger())
	extractor := pdfextract.NewExtractor(t.TempDir(), provider, arbor.NewLogger())

	return NewService(engine, explorer, nil, scraper, extractor, provider, Config{
		DownloadRoot:  t.TempDir(),
		WindowDays:    90,
		SummaryCapLen: 30000,
	}, arbor.NewLogger())
}

func TestFetchIRDocuments_TemplatePath_CachedFileIsSkipped(t *testing.T) {
	tmplDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmplDir, "72030_toyota.yaml"), []byte(earningsTemplate), 0o644))

	scraper := newFakeScraper()
	scraper.pages["https://example.com/ir/earnings.html"] = `
		<html><body>
			<a class="pdf-link" href="/docs/fy2024.pdf">FY2024 Earnings 決算短信</a>
		</body></html>`

	svc := newTestService(t, tmplDir, scraper, fakeProvider{})

	// First run downloads the document.
	docs, err := svc.FetchIRDocuments(context.Background(), "72030", models.IRCategoryEarnings, nil, false, false)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.False(t, docs[0].IsSkipped)
	assert.True(t, scraper.downloads["https://example.com/docs/fy2024.pdf"])

	// Second run with force=false finds the cached file and skips the download.
	scraper.downloads = map[string]bool{}
	docs2, err := svc.FetchIRDocuments(context.Background(), "72030", models.IRCategoryEarnings, nil, false, false)
	require.NoError(t, err)
	require.Len(t, docs2, 1)
	assert.True(t, docs2[0].IsSkipped)
	assert.False(t, scraper.downloads["https://example.com/docs/fy2024.pdf"])
}

func TestFetchIRDocuments_NoTemplate_ReturnsTemplateNotFound(t *testing.T) {
	tmplDir := t.TempDir()
	scraper := newFakeScraper()
	svc := newTestService(t, tmplDir, scraper, fakeProvider{})

	_, err := svc.FetchIRDocuments(context.Background(), "99999", models.IRCategoryEarnings, nil, false, false)
	require.Error(t, err)
}

func TestFetchIRDocuments_EmptyTemplate_FallsBackToExplorer(t *testing.T) {
	tmplDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmplDir, "72030_toyota.yaml"), []byte(earningsTemplate), 0o644))

	scraper := newFakeScraper()
	// No anchors matching the selector: the template scrape returns empty.
	scraper.pages["https://example.com/ir/earnings.html"] = `<html><body>no links here</body></html>`
	scraper.pages["https://example.com/ir/"] = `<p>placeholder IR page content long enough to pass the cap</p>`

	provider := fakeProvider{responseJSON: `{
		"links": [
			{"title": "Explorer found doc", "url": "/docs/found.pdf", "category": "earnings", "published_date": "", "confidence": 0.8}
		]
	}`}
	svc := newTestService(t, tmplDir, scraper, provider)

	docs, err := svc.FetchIRDocuments(context.Background(), "72030", models.IRCategoryEarnings, nil, false, false)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://example.com/docs/found.pdf", docs[0].URL)
}

func TestFetchIRDocuments_IdempotentOnRepeat(t *testing.T) {
	tmplDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmplDir, "72030_toyota.yaml"), []byte(earningsTemplate), 0o644))

	scraper := newFakeScraper()
	scraper.pages["https://example.com/ir/earnings.html"] = `
		<html><body>
			<a class="pdf-link" href="/docs/fy2024.pdf">FY2024 決算短信</a>
		</body></html>`

	svc := newTestService(t, tmplDir, scraper, fakeProvider{})

	_, err := svc.FetchIRDocuments(context.Background(), "72030", models.IRCategoryEarnings, nil, false, false)
	require.NoError(t, err)

	docs, err := svc.FetchIRDocuments(context.Background(), "72030", models.IRCategoryEarnings, nil, false, false)
	require.NoError(t, err)
	for _, d := range docs {
		assert.True(t, d.IsSkipped)
	}
}

func TestFetchAllRegistered_SwallowsPerCompanyErrors(t *testing.T) {
	tmplDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmplDir, "72030_toyota.yaml"), []byte(earningsTemplate), 0o644))
	// Second template's section page will fail to fetch, but the overall call
	// must not error.
	badTemplate := `
company:
  sec_code: "99999"
  name: "Broken Co"
ir_page:
  base_url: "https://broken.example.com/ir/"
  sections:
    earnings:
      url: "earnings.html"
      selector: "a.pdf-link"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmplDir, "99999_broken.yaml"), []byte(badTemplate), 0o644))

	scraper := newFakeScraper()
	scraper.pages["https://example.com/ir/earnings.html"] = `
		<html><body><a class="pdf-link" href="/docs/fy2024.pdf">決算短信</a></body></html>`

	svc := newTestService(t, tmplDir, scraper, fakeProvider{})

	results := svc.FetchAllRegistered(context.Background(), models.IRCategoryEarnings, nil, false)
	require.Contains(t, results, "72030")
	require.Contains(t, results, "99999")
	assert.Len(t, results["72030"], 1)
	assert.Nil(t, results["99999"])
}

func TestFilterByDate_KeepsNilAndOnOrAfterSince(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := since.AddDate(0, -1, 0)
	newer := since.AddDate(0, 1, 0)
	docs := []models.IRDocument{
		{Title: "no date"},
		{Title: "older", PublishedDate: &older},
		{Title: "exact", PublishedDate: &since},
		{Title: "newer", PublishedDate: &newer},
	}

	kept := filterByDate(docs, since)
	var titles []string
	for _, d := range kept {
		titles = append(titles, d.Title)
	}
	assert.ElementsMatch(t, []string{"no date", "exact", "newer"}, titles)
}

func TestDomainLabel(t *testing.T) {
	assert.Equal(t, "example", domainLabel("https://www.example.com/ir/"))
	assert.Equal(t, "example", domainLabel("https://example.com/ir/"))
}
