// Package cache is a pure filesystem index over the download hierarchy
// (spec.md §4.10, §6). The filesystem is always the system of record; an
// optional badger-backed Index merely accelerates doc-id lookups.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// Stats is the result of GetCacheStats.
type Stats struct {
	TotalDocuments int
	TotalCompanies int
}

// Filter narrows FindByFilter's glob. Empty fields are treated as
// wildcards.
type Filter struct {
	SecCode     string
	DocTypeCode string
	Period      string
}

// Service implements spec.md §4.10 over a download root directory.
type Service struct {
	root   string
	index  *Index // may be nil: every method degrades to a pure glob
	logger arbor.ILogger
}

// NewService builds a cache service over root. index may be nil, in which
// case every lookup falls back to the documented glob contract directly.
func NewService(root string, index *Index, logger arbor.ILogger) *Service {
	return &Service{root: root, index: index, logger: logger}
}

// FindByDocID returns the cached document for docID, or
// (nil, nil) if no ".pdf" file with that name exists anywhere under the
// download root (spec.md: "recursive glob `**/<doc_id>.pdf`; return the
// first match").
func (s *Service) FindByDocID(docID string) (*models.CachedDocument, error) {
	if s.index != nil {
		if path, ok, err := s.index.Get(docID); err == nil && ok {
			if _, statErr := os.Stat(path); statErr == nil {
				doc := decomposePath(s.root, path)
				return &doc, nil
			}
			// index entry is stale (file moved/deleted); fall through to glob.
		}
	}

	var found string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || found != "" {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) == docID &&
			strings.EqualFold(filepath.Ext(path), ".pdf") {
			found = path
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDocumentDownload, err, "failed to walk download root")
	}
	if found == "" {
		return nil, nil
	}
	if s.index != nil {
		if putErr := s.index.Put(docID, found); putErr != nil {
			s.logger.Warn().Err(putErr).Str("doc_id", docID).Msg("failed to refresh cache index entry")
		}
	}
	doc := decomposePath(s.root, found)
	return &doc, nil
}

// FindByFilter globs
// "<sec_or_wildcard>/<type_or_wildcard>/<period_or_wildcard>/*.pdf" under
// the download root, applying "*" for any unset filter field.
func (s *Service) FindByFilter(f Filter) ([]models.CachedDocument, error) {
	secPattern := "*"
	if f.SecCode != "" {
		secPattern = Sanitize(f.SecCode) + "_*"
	}
	typePattern := "*"
	if f.DocTypeCode != "" {
		typePattern = Sanitize(f.DocTypeCode) + "_*"
	}
	periodPattern := "*"
	if f.Period != "" {
		periodPattern = Sanitize(f.Period)
	}

	pattern := filepath.Join(s.root, secPattern, typePattern, periodPattern, "*.pdf")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDocumentDownload, err, "invalid filter glob")
	}

	docs := make([]models.CachedDocument, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, decomposePath(s.root, m))
	}
	return docs, nil
}

// ListAll recursively enumerates every cached ".pdf" under the download
// root.
func (s *Service) ListAll() ([]models.CachedDocument, error) {
	var docs []models.CachedDocument
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		docs = append(docs, decomposePath(s.root, path))
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDocumentDownload, err, "failed to walk download root")
	}
	return docs, nil
}

// GetCacheStats reports the total cached document count and the number of
// distinct securities-code prefixes observed.
func (s *Service) GetCacheStats() (Stats, error) {
	docs, err := s.ListAll()
	if err != nil {
		return Stats{}, err
	}
	companies := make(map[string]struct{})
	for _, d := range docs {
		if d.SecCode != "" {
			companies[d.SecCode] = struct{}{}
		}
	}
	return Stats{TotalDocuments: len(docs), TotalCompanies: len(companies)}, nil
}

// RebuildIndex re-walks the download root and repopulates the accelerator
// index from scratch. A no-op if no index is configured.
func (s *Service) RebuildIndex() error {
	if s.index == nil {
		return nil
	}
	return s.index.Rebuild(s.root)
}

// decomposePath recovers a CachedDocument's metadata from its position in
// the download hierarchy (spec.md §6). A file outside the full
// "<sec>_<filer>/<type>_<name>/<period>/<doc_id>.pdf" shape (a flat
// layout) still yields a valid CachedDocument with only DocID and Path
// populated.
func decomposePath(root, path string) models.CachedDocument {
	doc := models.CachedDocument{Path: path}
	base := filepath.Base(path)
	doc.DocID = strings.TrimSuffix(base, filepath.Ext(base))

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return doc
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 4 {
		return doc
	}

	secCode, companyName := splitFirstUnderscore(parts[0])
	docTypeCode, _ := splitFirstUnderscore(parts[1])
	doc.SecCode = secCode
	doc.CompanyName = companyName
	doc.DocTypeCode = docTypeCode
	doc.Period = parts[2]
	return doc
}

func splitFirstUnderscore(s string) (first, rest string) {
	idx := strings.Index(s, "_")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}

// EnsureRoot creates the download root if it does not already exist.
func EnsureRoot(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create download root %s: %w", root, err)
	}
	return nil
}
