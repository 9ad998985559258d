// Package models defines the data types shared across the filings client,
// company directory, IR pipeline, PDF extractor, and agent tool layer.
package models

import "time"

// FilingMetadata is the unit produced by the Filings API per document
// (spec.md §3 "Filing metadata"). DocID is the stable 8-character primary
// key across the Filings side.
type FilingMetadata struct {
	DocID               string `json:"docID"`
	EdinetCode          string `json:"edinetCode"`          // 6-char submitter identifier
	SecCode             string `json:"secCode,omitempty"`   // 5-digit listed securities code, optional
	FilerName           string `json:"filerName"`
	DocTypeCode         string `json:"docTypeCode"` // 3-digit document-type code
	PeriodStart         string `json:"periodStart,omitempty"`
	PeriodEnd           string `json:"periodEnd,omitempty"`
	SubmitDateTime      string `json:"submitDateTime"`
	DocDescription      string `json:"docDescription"`
	HasXBRL             bool   `json:"xbrlFlag"`
	HasPDF              bool   `json:"pdfFlag"`
	HasAttachment       bool   `json:"attachDocFlag"`
	HasEnglishDoc       bool   `json:"englishDocFlag"`
	HasCSV              bool   `json:"csvFlag"`
	Withdrawn           bool   `json:"withdrawalStatus"`
	LegalStatus         bool   `json:"docInfoEditStatus"`
}

// RawFilingMetadata mirrors the wire shape of a single Filings API result
// before boolean normalization: flags arrive as the literal strings "0"/"1".
type RawFilingMetadata struct {
	DocID          string `json:"docID"`
	EdinetCode     string `json:"edinetCode"`
	SecCode        string `json:"secCode"`
	FilerName      string `json:"filerName"`
	DocTypeCode    string `json:"docTypeCode"`
	PeriodStart    string `json:"periodStart"`
	PeriodEnd      string `json:"periodEnd"`
	SubmitDateTime string `json:"submitDateTime"`
	DocDescription string `json:"docDescription"`
	XBRLFlag       string `json:"xbrlFlag"`
	PDFFlag        string `json:"pdfFlag"`
	AttachDocFlag  string `json:"attachDocFlag"`
	EnglishDocFlag string `json:"englishDocFlag"`
	CSVFlag        string `json:"csvFlag"`
	WithdrawalStatus  string `json:"withdrawalStatus"`
	DocInfoEditStatus string `json:"docInfoEditStatus"`
}

// Normalize converts the wire "0"/"1" string flags into a FilingMetadata
// with proper booleans, per spec.md §3's ingest invariant.
func (r RawFilingMetadata) Normalize() FilingMetadata {
	return FilingMetadata{
		DocID:          r.DocID,
		EdinetCode:     r.EdinetCode,
		SecCode:        r.SecCode,
		FilerName:      r.FilerName,
		DocTypeCode:    r.DocTypeCode,
		PeriodStart:    r.PeriodStart,
		PeriodEnd:      r.PeriodEnd,
		SubmitDateTime: r.SubmitDateTime,
		DocDescription: r.DocDescription,
		HasXBRL:        r.XBRLFlag == "1",
		HasPDF:         r.PDFFlag == "1",
		HasAttachment:  r.AttachDocFlag == "1",
		HasEnglishDoc:  r.EnglishDocFlag == "1",
		HasCSV:         r.CSVFlag == "1",
		Withdrawn:      r.WithdrawalStatus == "1",
		LegalStatus:    r.DocInfoEditStatus == "1",
	}
}

// SearchOrder controls result ordering for document search.
type SearchOrder string

const (
	SearchOrderNewestFirst SearchOrder = "newest_first"
	SearchOrderOldestFirst SearchOrder = "oldest_first"
)

// DocumentFilter is the search request (spec.md §3 "Document filter").
// Zero-valued fields are simply not applied.
type DocumentFilter struct {
	SecCode       string
	EdinetCode    string
	CompanyName   string // substring match, AND logic across the other fields
	DocTypeCodes  []string
	StartDate     *time.Time
	EndDate       *time.Time
	SearchOrder   SearchOrder
	MaxDocuments  int // 0 means unbounded
}

// DocumentType codes named in the glossary.
const (
	DocTypeAnnual        = "120"
	DocTypeQuarterly     = "140"
	DocTypeHalfYear      = "160"
	DocTypeExtraordinary = "180"
	DocTypeLargeHolding  = "350"
)

// DownloadType selects the Filings API download endpoint's `type` parameter.
type DownloadType int

const (
	DownloadTypeXBRL       DownloadType = 1 // structured-data ZIP
	DownloadTypePDF        DownloadType = 2
	DownloadTypeAttachment DownloadType = 3 // attachments ZIP
	DownloadTypeEnglish    DownloadType = 4 // English-docs ZIP
	DownloadTypeCSV        DownloadType = 5 // CSV ZIP
)

// CachedDocument is derived from a filesystem path under the download
// hierarchy (spec.md §3 "Cached document", §6).
type CachedDocument struct {
	DocID       string
	SecCode     string
	CompanyName string
	DocTypeCode string
	Period      string // YYYYMM
	Path        string
}
