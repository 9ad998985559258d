package pdfextract

import "github.com/tak-akashi/company-research-agent/internal/apperrors"

// OcrStrategy is a named, always-failing placeholder: no OCR engine binding
// (tesseract/gosseract or otherwise) appears anywhere in the retrieval pack,
// and spec.md §7 already names "not installed" as a first-class OcrError
// variant distinct from "processing failed". auto's fallback chain treats
// this exactly like any other unavailable strategy.
type OcrStrategy struct{}

func NewOcrStrategy() *OcrStrategy { return &OcrStrategy{} }

func (s *OcrStrategy) Name() Strategy { return OCR }

func (s *OcrStrategy) Extract(pdfPath string, pr PageRange) (ParsedContent, error) {
	return ParsedContent{}, apperrors.OCRError("not installed")
}
