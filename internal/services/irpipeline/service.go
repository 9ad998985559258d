package irpipeline

import (
	"context"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/services/cache"
	"github.com/tak-akashi/company-research-agent/internal/services/pdfextract"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// FetchIRDocuments runs spec.md §4.9's fetch_ir_documents algorithm for
// secCode: template-first discovery with an LLM-explorer fallback, then
// date filtering, dedup, reclassification, and per-document download/
// summarization.
func (s *Service) FetchIRDocuments(ctx context.Context, secCode string, category models.IRCategory, since *time.Time, force, withSummary bool) ([]models.IRDocument, error) {
	sinceTime := s.resolveSince(since)

	docs, err := s.discover(ctx, secCode, category)
	if err != nil {
		return nil, err
	}

	return s.process(ctx, secCode, sinceTime, force, withSummary, docs)
}

// discover implements steps 2-3: template path with explorer fallback. When
// no template exists at all it returns a TemplateNotFound error; no homepage
// discovery is attempted.
func (s *Service) discover(ctx context.Context, secCode string, category models.IRCategory) ([]models.IRDocument, error) {
	tmpl, err := s.engine.LoadTemplate(secCode)
	if err != nil {
		return nil, err
	}

	if tmpl != nil {
		docs, scrapeErr := s.engine.Scrape(ctx, s.scraper, *tmpl, category)
		if scrapeErr != nil {
			if _, isAppErr := scrapeErr.(*apperrors.Error); isAppErr {
				s.logger.Warn().Err(scrapeErr).Str("sec_code", secCode).Msg("IR template scrape failed, treating as empty")
				docs = nil
			} else {
				return nil, scrapeErr
			}
		}
		if len(docs) > 0 {
			return docs, nil
		}

		explored, explErr := s.explorer.Explore(ctx, s.scraper, tmpl.IRPage.BaseURL)
		if explErr != nil {
			return nil, apperrors.TemplateNotFoundError("template yielded no documents and the LLM explorer fallback also failed for " + secCode + ": " + explErr.Error())
		}
		return explored, nil
	}

	// No template at all: spec.md §4.9 step 3 calls for discovering the IR
	// page from the company homepage (§4.8) before exploring it. This
	// integration has no homepage source for an unregistered sec code, so
	// there is nothing to hand the explorer; callers needing that path
	// should register a template or use ExploreIRPage directly.
	return nil, apperrors.TemplateNotFoundError("no IR template registered for sec_code " + secCode)
}

// ExploreIRPage runs the pipeline starting from an arbitrary URL instead of
// a registered sec code (spec.md §4.9 explore_ir_page), deriving the
// save-folder name from the domain's second-level label.
func (s *Service) ExploreIRPage(ctx context.Context, pageURL string, since *time.Time, force, withSummary bool) ([]models.IRDocument, error) {
	sinceTime := s.resolveSince(since)

	docs, err := s.explorer.Explore(ctx, s.scraper, pageURL)
	if err != nil {
		return nil, apperrors.PageAccessError(err, pageURL)
	}

	folder := domainLabel(pageURL)
	return s.process(ctx, folder, sinceTime, force, withSummary, docs)
}

// FetchAllRegistered iterates every template's sec code and collects
// fetch_ir_documents results, never failing the overall call: a
// per-company failure is logged and recorded as an empty result
// (spec.md §4.9 fetch_all_registered).
func (s *Service) FetchAllRegistered(ctx context.Context, category models.IRCategory, since *time.Time, force bool) map[string][]models.IRDocument {
	results := make(map[string][]models.IRDocument)
	for _, secCode := range s.engine.ListTemplates() {
		docs, err := s.FetchIRDocuments(ctx, secCode, category, since, force, true)
		if err != nil {
			s.logger.Warn().Err(err).Str("sec_code", secCode).Msg("fetch_all_registered: company fetch failed, recording empty result")
			results[secCode] = nil
			continue
		}
		results[secCode] = docs
	}
	return results
}

// process implements spec.md §4.9 steps 4-8: date filter, dedup,
// reclassify, then per-document download/summarize.
func (s *Service) process(ctx context.Context, folderKey string, since time.Time, force, withSummary bool, docs []models.IRDocument) ([]models.IRDocument, error) {
	docs = filterByDate(docs, since)
	docs = dedupeByURL(docs)
	docs = reclassify(docs)

	filerName := s.companyFolderName(ctx, folderKey)
	if filerName == "unknown" {
		filerName = folderKey
	}

	out := make([]models.IRDocument, 0, len(docs))
	for _, doc := range docs {
		processed, err := s.processOne(ctx, folderKey, filerName, force, withSummary, doc)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", doc.URL).Msg("IR document processing failed, skipping")
			continue
		}
		out = append(out, processed)
	}
	return out, nil
}

func (s *Service) processOne(ctx context.Context, secCode, filerName string, force, withSummary bool, doc models.IRDocument) (models.IRDocument, error) {
	filename := filenameFromURL(doc.URL)
	savePath := cache.BuildIRPath(s.cfg.DownloadRoot, secCode, filerName, string(doc.Category), filename)

	if !strings.HasSuffix(strings.ToLower(doc.URL), ".pdf") {
		return s.processNewsPage(ctx, withSummary, doc)
	}

	if !force {
		if _, err := os.Stat(savePath); err == nil {
			doc.IsSkipped = true
			doc.FilePath = savePath
			return doc, nil
		}
	}

	downloadedPath, err := s.scraper.DownloadPDF(ctx, doc.URL, savePath, force, "")
	if err != nil {
		return models.IRDocument{}, apperrors.DocumentDownloadError(err, doc.URL)
	}
	doc.FilePath = downloadedPath
	doc.IsSkipped = false

	if withSummary {
		parsed, extractErr := s.pdf.Extract(downloadedPath, pdfextract.Auto, pdfextract.PageRange{})
		if extractErr != nil {
			s.logger.Warn().Err(extractErr).Str("path", downloadedPath).Msg("IR PDF extraction failed, skipping summary")
			return doc, nil
		}
		summary, sumErr := s.summarize(ctx, doc.Title, parsed.Text)
		if sumErr != nil {
			s.logger.Warn().Err(sumErr).Str("path", downloadedPath).Msg("IR PDF summarization failed")
			return doc, nil
		}
		doc.Summary = summary
	}
	return doc, nil
}

func (s *Service) processNewsPage(ctx context.Context, withSummary bool, doc models.IRDocument) (models.IRDocument, error) {
	if !withSummary {
		return doc, nil
	}
	html, err := s.scraper.FetchPage(ctx, doc.URL)
	if err != nil {
		return models.IRDocument{}, apperrors.PageAccessError(err, doc.URL)
	}
	content, err := extractMainContent(html, doc.URL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", doc.URL).Msg("failed to extract IR news page content")
		return doc, nil
	}
	summary, err := s.summarize(ctx, doc.Title, content)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", doc.URL).Msg("IR news page summarization failed")
		return doc, nil
	}
	doc.Summary = summary
	return doc, nil
}

func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "download.pdf"
	}
	decoded, err := url.QueryUnescape(path.Base(parsed.Path))
	if err != nil || decoded == "" {
		return "download.pdf"
	}
	return decoded
}

func domainLabel(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return host
}
