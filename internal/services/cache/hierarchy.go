package cache

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tak-akashi/company-research-agent/pkg/models"
)

// invalidPathChars matches the characters spec.md §6 requires replaced
// during sanitization, plus ASCII control characters.
var invalidPathChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// collapseUnderscores squeezes consecutive sanitizer-inserted underscores
// into one, so "A///B" doesn't become "A___B".
var collapseUnderscores = regexp.MustCompile(`_+`)

// Sanitize makes s safe for use as a single path segment, per spec.md §6:
// replace reserved/control characters with "_", collapse consecutive "_",
// trim whitespace, and fall back to "unknown" for an empty result.
// Sanitize(Sanitize(x)) == Sanitize(x) for all x.
func Sanitize(s string) string {
	s = invalidPathChars.ReplaceAllString(s, "_")
	s = collapseUnderscores.ReplaceAllString(s, "_")
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}

// docTypeNames maps the glossary's document-type codes to the short
// English label used in the on-disk folder name.
var docTypeNames = map[string]string{
	models.DocTypeAnnual:        "annual",
	models.DocTypeQuarterly:     "quarterly",
	models.DocTypeHalfYear:      "half_year",
	models.DocTypeExtraordinary: "extraordinary",
	models.DocTypeLargeHolding:  "large_holding",
}

// DocTypeName returns the folder-name label for a document-type code,
// falling back to the code itself for unrecognized/correction variants.
func DocTypeName(docTypeCode string) string {
	if name, ok := docTypeNames[docTypeCode]; ok {
		return name
	}
	return docTypeCode
}

// CompanyFolderName builds the "<sec_code>_<sanitized_filer_name>" segment
// shared by both the filings and IR branches of the hierarchy.
func CompanyFolderName(secCode, filerName string) string {
	return fmt.Sprintf("%s_%s", Sanitize(secCode), Sanitize(filerName))
}

// BuildFilingPath computes the on-disk path for a filing document per
// spec.md §6:
//
//	<root>/<sec_code>_<filer>/<doc_type_code>_<doc_type_name>/<YYYYMM>/<doc_id>.pdf
//
// periodEnd may be the zero time, in which case the period folder is
// "unknown".
func BuildFilingPath(root, secCode, filerName, docTypeCode string, periodEnd time.Time, docID string) string {
	period := "unknown"
	if !periodEnd.IsZero() {
		period = periodEnd.Format("200601")
	}
	typeFolder := fmt.Sprintf("%s_%s", Sanitize(docTypeCode), Sanitize(DocTypeName(docTypeCode)))
	return filepath.Join(root, CompanyFolderName(secCode, filerName), typeFolder, period, Sanitize(docID)+".pdf")
}

// BuildIRPath computes the on-disk path for an IR document per spec.md §6:
//
//	<root>/<sec_code>_<filer>/ir/<category>/<filename>
//
// filename is expected to already be the URL-decoded basename of the
// source URL; it is still run through Sanitize to strip path-hostile
// characters a filename can legally carry.
func BuildIRPath(root, secCode, filerName, category, filename string) string {
	return filepath.Join(root, CompanyFolderName(secCode, filerName), "ir", Sanitize(category), Sanitize(filename))
}
