// Package company resolves user-entered identifiers (submitter codes,
// securities codes, company names) to canonical company records drawn from
// the EDINET code list (spec.md §4.3).
package company

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/common"
	"github.com/tak-akashi/company-research-agent/internal/services/substrate"
	"github.com/tak-akashi/company-research-agent/pkg/models"
)

const csvFilename = "EdinetcodeDlInfo.csv"
const timestampFilename = ".timestamp"

var edinetCodePattern = regexp.MustCompile(`^[A-Za-z]\d{5}$`)
var secCodePattern = regexp.MustCompile(`^\d{4,5}$`)

// majorIndustryKeywords are heavy-industry hints used as the search sort
// key's last tiebreaker (spec.md §4.3 step 4).
var majorIndustryKeywords = []string{"自動車", "電機", "電器", "製薬", "銀行", "証券", "保険", "製作所"}

// legalEntityPrefixes are the four common Japanese legal forms stripped
// before the prefix-match tiebreaker check.
var legalEntityPrefixes = []string{"株式会社", "有限会社", "合同会社", "合資会社"}

// Directory is the loaded, indexed company code list plus the machinery to
// refresh and search it.
type Directory struct {
	cfg       common.CompanyConfig
	substrate *substrate.Substrate
	logger    arbor.ILogger

	mu            sync.RWMutex
	records       []models.CompanyRecord
	byEdinetCode  map[string]models.CompanyRecord
	bySecCode     map[string]models.CompanyRecord
}

// NewDirectory builds a Directory against the given substrate (for the code
// list's ZIP download) and company config (cache dir, TTL, fuzzy knobs).
func NewDirectory(cfg common.CompanyConfig, sub *substrate.Substrate, logger arbor.ILogger) *Directory {
	return &Directory{cfg: cfg, substrate: sub, logger: logger}
}

func (d *Directory) csvPath() string {
	return filepath.Join(d.cfg.CacheDir, csvFilename)
}

func (d *Directory) timestampPath() string {
	return filepath.Join(d.cfg.CacheDir, timestampFilename)
}

// isCacheValid reports whether the cached CSV and its sidecar timestamp
// exist and the timestamp is within the configured TTL.
func (d *Directory) isCacheValid() bool {
	if _, err := os.Stat(d.csvPath()); err != nil {
		return false
	}

	raw, err := os.ReadFile(d.timestampPath())
	if err != nil {
		return false
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(string(raw)))
	if err != nil {
		return false
	}

	ttl := time.Duration(d.cfg.TTLDays) * 24 * time.Hour
	return time.Since(ts) < ttl
}

// Refresh downloads the code list ZIP, extracts the first .csv entry, and
// writes it plus a sidecar timestamp file under the cache directory.
func (d *Directory) Refresh(ctx context.Context) error {
	status, body, err := d.substrate.Get(ctx, d.cfg.CodeListURL, nil)
	if err != nil {
		return apperrors.CodeListDownloadError(err, d.cfg.CodeListURL)
	}
	if status < 200 || status >= 300 {
		return apperrors.CodeListDownloadError(fmt.Errorf("HTTP %d", status), d.cfg.CodeListURL)
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return apperrors.CodeListDownloadError(err, d.cfg.CodeListURL)
	}

	var csvEntry *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			csvEntry = f
			break
		}
	}
	if csvEntry == nil {
		return apperrors.CodeListDownloadError(fmt.Errorf("no CSV file found in ZIP"), d.cfg.CodeListURL)
	}

	rc, err := csvEntry.Open()
	if err != nil {
		return apperrors.CodeListDownloadError(err, d.cfg.CodeListURL)
	}
	defer rc.Close()

	csvBytes, err := io.ReadAll(rc)
	if err != nil {
		return apperrors.CodeListDownloadError(err, d.cfg.CodeListURL)
	}

	if err := os.MkdirAll(d.cfg.CacheDir, 0o755); err != nil {
		return apperrors.CodeListDownloadError(err, d.cfg.CodeListURL)
	}
	if err := os.WriteFile(d.csvPath(), csvBytes, 0o644); err != nil {
		return apperrors.CodeListDownloadError(err, d.cfg.CodeListURL)
	}
	if err := os.WriteFile(d.timestampPath(), []byte(time.Now().Format(time.RFC3339)), 0o644); err != nil {
		return apperrors.CodeListDownloadError(err, d.cfg.CodeListURL)
	}

	d.logger.Info().Msgf("company code list refreshed: %s", d.csvPath())
	return nil
}

// Load reads the cached CSV and rebuilds the in-memory record list and
// indexes. Call EnsureLoaded instead unless a forced reload is needed.
func (d *Directory) Load() error {
	f, err := os.Open(d.csvPath())
	if err != nil {
		return apperrors.CodeListDownloadError(err, d.cfg.CodeListURL)
	}
	defer f.Close()

	records, err := parseCodeListCSV(f)
	if err != nil {
		return apperrors.CodeListDownloadError(err, d.cfg.CodeListURL)
	}

	byEdinetCode := make(map[string]models.CompanyRecord, len(records))
	bySecCode := make(map[string]models.CompanyRecord, len(records))
	for _, rec := range records {
		byEdinetCode[strings.ToUpper(rec.EdinetCode)] = rec
		if rec.SecCode != "" {
			bySecCode[rec.SecCode] = rec
		}
	}

	d.mu.Lock()
	d.records = records
	d.byEdinetCode = byEdinetCode
	d.bySecCode = bySecCode
	d.mu.Unlock()

	d.logger.Info().Msgf("loaded %d companies from code list", len(records))
	return nil
}

// EnsureLoaded refreshes the code list if the cache is stale (or
// forceRefresh is set) and loads it into memory if not already loaded.
func (d *Directory) EnsureLoaded(ctx context.Context, forceRefresh bool) error {
	if forceRefresh || !d.isCacheValid() {
		if err := d.Refresh(ctx); err != nil {
			return err
		}
	}

	d.mu.RLock()
	loaded := d.records != nil
	d.mu.RUnlock()
	if loaded {
		return nil
	}
	return d.Load()
}

// GetByEdinetCode returns the exact-match record for a submitter identifier.
func (d *Directory) GetByEdinetCode(ctx context.Context, code string) (models.CompanyRecord, error) {
	if err := d.EnsureLoaded(ctx, false); err != nil {
		return models.CompanyRecord{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.byEdinetCode[strings.ToUpper(code)]
	if !ok {
		return models.CompanyRecord{}, apperrors.CompanyNotFoundError(code)
	}
	return rec, nil
}

// GetBySecCode returns the exact-match record for a securities code,
// normalizing a 4-digit code to the canonical 5-digit form.
func (d *Directory) GetBySecCode(ctx context.Context, code string) (models.CompanyRecord, error) {
	if err := d.EnsureLoaded(ctx, false); err != nil {
		return models.CompanyRecord{}, err
	}
	normalized := models.NormalizeSecCode(code)
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.bySecCode[normalized]
	if !ok {
		return models.CompanyRecord{}, apperrors.CompanyNotFoundError(code)
	}
	return rec, nil
}

// Search implements spec.md §4.3's multi-stage search: exact
// submitter-identifier match, exact securities-code match, then a
// fuzzy partial-ratio scan sorted by (similarity, is_prefix_match,
// is_listed, has_major_industry_keyword) all descending.
func (d *Directory) Search(ctx context.Context, query string) ([]models.CompanyCandidate, error) {
	if err := d.EnsureLoaded(ctx, false); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(query)

	if edinetCodePattern.MatchString(trimmed) {
		d.mu.RLock()
		rec, ok := d.byEdinetCode[strings.ToUpper(trimmed)]
		d.mu.RUnlock()
		if ok {
			return []models.CompanyCandidate{{Record: rec, Similarity: 100, IsListed: rec.Listed}}, nil
		}
	}

	if secCodePattern.MatchString(trimmed) {
		normalized := models.NormalizeSecCode(trimmed)
		d.mu.RLock()
		rec, ok := d.bySecCode[normalized]
		d.mu.RUnlock()
		if ok {
			return []models.CompanyCandidate{{Record: rec, Similarity: 100, IsListed: rec.Listed}}, nil
		}
	}

	d.mu.RLock()
	records := make([]models.CompanyRecord, len(d.records))
	copy(records, d.records)
	d.mu.RUnlock()

	minScore := d.cfg.FuzzyMinScore
	if minScore == 0 {
		minScore = 50
	}
	limit := d.cfg.FuzzyLimit
	if limit == 0 {
		limit = 10
	}

	upperQuery := asciiUpper(trimmed)
	var candidates []models.CompanyCandidate
	for _, rec := range records {
		best := partialRatio(trimmed, rec.Name)
		if rec.NameKana != "" {
			if score := partialRatio(trimmed, rec.NameKana); score > best {
				best = score
			}
		}
		if rec.NameEnglish != "" {
			if score := partialRatio(upperQuery, asciiUpper(rec.NameEnglish)); score > best {
				best = score
			}
		}
		if best < minScore {
			continue
		}

		candidates = append(candidates, models.CompanyCandidate{
			Record:                  rec,
			Similarity:              best,
			IsPrefixMatch:           isPrefixMatch(rec.Name, trimmed),
			IsListed:                rec.Listed,
			HasMajorIndustryKeyword: hasMajorIndustryKeyword(rec.Name),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.IsPrefixMatch != b.IsPrefixMatch {
			return a.IsPrefixMatch
		}
		if a.IsListed != b.IsListed {
			return a.IsListed
		}
		return a.HasMajorIndustryKeyword && !b.HasMajorIndustryKeyword
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func isPrefixMatch(name, query string) bool {
	if strings.HasPrefix(name, query) {
		return true
	}
	return strings.HasPrefix(normalizeLegalName(name), query)
}

func normalizeLegalName(name string) string {
	for _, prefix := range legalEntityPrefixes {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

func hasMajorIndustryKeyword(name string) bool {
	for _, kw := range majorIndustryKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
