// Package pdfextract converts a PDF on disk to markdown text via an explicit
// strategy chain: native-basic, native-structured, OCR, and vision-LLM, with
// auto running native-structured, OCR and vision-LLM in turn (native-basic
// runs only when named directly) (spec.md §4.5).
package pdfextract

// Strategy names the PDF-to-text extraction approach used.
type Strategy string

const (
	Auto             Strategy = "auto"
	NativeBasic      Strategy = "native-basic"
	NativeStructured Strategy = "native-structured"
	OCR              Strategy = "ocr"
	VisionLLM        Strategy = "vision-llm"
)

// qualityGateChars is the minimum trimmed-text length that counts as
// "meaningful content" for a native/OCR strategy result (spec.md §4.5).
const qualityGateChars = 100

// PageRange is 1-based and inclusive; nil bounds mean first/last page.
type PageRange struct {
	StartPage *int
	EndPage   *int
}

// resolve clamps the range against an actual page count, returning 1-based
// inclusive [start, end].
func (r PageRange) resolve(pageCount int) (start, end int) {
	start, end = 1, pageCount
	if r.StartPage != nil && *r.StartPage > start {
		start = *r.StartPage
	}
	if r.EndPage != nil && *r.EndPage < end {
		end = *r.EndPage
	}
	if start < 1 {
		start = 1
	}
	if end > pageCount {
		end = pageCount
	}
	return start, end
}

// ParsedContent is the result of extracting a PDF (spec.md §3 "Parsed-PDF
// content"): text, the number of pages actually processed, which strategy
// produced it, and arbitrary strategy metadata.
type ParsedContent struct {
	Text         string
	PageCount    int
	StrategyUsed Strategy
	Metadata     map[string]interface{}
}
