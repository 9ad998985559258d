package models

// PDFStrategy is the explicit strategy enum of the PDF extractor
// (spec.md §4.5). Auto is the fallback orchestrator over native-structured,
// ocr and vision-llm; native-basic runs only when named directly.
type PDFStrategy string

const (
	StrategyAuto             PDFStrategy = "auto"
	StrategyNativeBasic      PDFStrategy = "native-basic"
	StrategyNativeStructured PDFStrategy = "native-structured"
	StrategyOCR              PDFStrategy = "ocr"
	StrategyVisionLLM        PDFStrategy = "vision-llm"
)

// PageRange is a uniform, 1-based, inclusive page range. A nil field means
// "from the first page" / "to the last page" respectively.
type PageRange struct {
	StartPage *int
	EndPage   *int
}

// ParsedPDFContent is the result of to_markdown (spec.md §3 "Parsed-PDF
// content").
type ParsedPDFContent struct {
	Text          string
	PagesProcessed int
	StrategyUsed  PDFStrategy
	Metadata      map[string]interface{}
}
