// Package irpipeline is the integration layer between the IR template
// engine, the LLM explorer, the scraper, the PDF extractor, and the LLM
// summarizer (spec.md §4.9). It is the only component that downloads IR
// artifacts; the template engine and explorer only discover them.
package irpipeline

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/interfaces"
	"github.com/tak-akashi/company-research-agent/internal/services/company"
	"github.com/tak-akashi/company-research-agent/internal/services/irexplorer"
	"github.com/tak-akashi/company-research-agent/internal/services/irtemplate"
	"github.com/tak-akashi/company-research-agent/internal/services/pdfextract"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// Scraper is the fetch/download capability the pipeline needs from the
// HTTP/browser substrate (spec.md §4.1). substrate.Substrate satisfies
// this directly.
type Scraper interface {
	FetchPage(ctx context.Context, rawURL string) (string, error)
	DownloadPDF(ctx context.Context, rawURL, savePath string, force bool, referer string) (string, error)
}

// Config carries the pipeline's tunables (spec.md §4.9, §6).
type Config struct {
	DownloadRoot  string
	WindowDays    int // default `since` window, default 90
	SummaryCapLen int // PDF/news text cap before summarization, default 30000
}

// Service implements spec.md §4.9's fetch_ir_documents / explore_ir_page /
// fetch_all_registered over the template engine, explorer, scraper, PDF
// extractor, and LLM summarizer.
type Service struct {
	engine     *irtemplate.Engine
	explorer   *irexplorer.Explorer
	directory  *company.Directory
	scraper    Scraper
	pdf        *pdfextract.Extractor
	provider   interfaces.LLMProvider
	cfg        Config
	logger     arbor.ILogger
}

// NewService wires the pipeline's collaborators.
func NewService(
	engine *irtemplate.Engine,
	explorer *irexplorer.Explorer,
	directory *company.Directory,
	scraper Scraper,
	pdf *pdfextract.Extractor,
	provider interfaces.LLMProvider,
	cfg Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		engine:    engine,
		explorer:  explorer,
		directory: directory,
		scraper:   scraper,
		pdf:       pdf,
		provider:  provider,
		cfg:       cfg,
		logger:    logger,
	}
}

// resolveSince defaults `since` to today minus the configured window
// (spec.md §4.9 step 1).
func (s *Service) resolveSince(since *time.Time) time.Time {
	if since != nil {
		return *since
	}
	days := s.cfg.WindowDays
	if days <= 0 {
		days = 90
	}
	return time.Now().AddDate(0, 0, -days)
}

// companyFolderName resolves the filer name used in the download hierarchy
// for a sec code, returning "unknown" when there is no directory or no
// record for secCode; process then uses the folder key as the filer name.
func (s *Service) companyFolderName(ctx context.Context, secCode string) string {
	if s.directory == nil {
		return "unknown"
	}
	rec, err := s.directory.GetBySecCode(ctx, secCode)
	if err != nil {
		return "unknown"
	}
	return rec.Name
}

// filterByDate keeps documents with no date or a date on/after since
// (spec.md §4.9 step 4, testable property §8).
func filterByDate(docs []models.IRDocument, since time.Time) []models.IRDocument {
	out := make([]models.IRDocument, 0, len(docs))
	for _, d := range docs {
		if d.PublishedDate == nil || !d.PublishedDate.Before(since) {
			out = append(out, d)
		}
	}
	return out
}
