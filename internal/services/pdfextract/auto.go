package pdfextract

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/interfaces"
)

// strategyRunner is the shape every concrete strategy implements.
type strategyRunner interface {
	Name() Strategy
	Extract(pdfPath string, pr PageRange) (ParsedContent, error)
}

// Extractor runs the auto fallback chain, or a single named strategy
// directly, per spec.md §4.5.
type Extractor struct {
	nativeBasic      strategyRunner
	nativeStructured strategyRunner
	ocr              strategyRunner
	vision           strategyRunner
	visionConfigured bool
	logger           arbor.ILogger
}

// NewExtractor wires the four concrete strategies. provider may be nil if
// no vision provider is configured, in which case auto's step 3 is skipped
// entirely (matching spec.md's "if a vision provider is configured").
func NewExtractor(tempDir string, provider interfaces.LLMProvider, logger arbor.ILogger) *Extractor {
	e := &Extractor{
		nativeBasic:      NewPdfcpuStrategy(tempDir),
		nativeStructured: NewLedongthucStrategy(),
		ocr:              NewOcrStrategy(),
		logger:           logger,
	}
	if provider != nil {
		e.vision = NewVisionStrategy(tempDir, provider, logger)
		e.visionConfigured = true
	}
	return e
}

// Extract runs the requested strategy, or the auto fallback chain.
func (e *Extractor) Extract(pdfPath string, strategy Strategy, pr PageRange) (ParsedContent, error) {
	switch strategy {
	case NativeBasic:
		return e.nativeBasic.Extract(pdfPath, pr)
	case NativeStructured:
		return e.nativeStructured.Extract(pdfPath, pr)
	case OCR:
		return e.ocr.Extract(pdfPath, pr)
	case VisionLLM:
		if !e.visionConfigured {
			return ParsedContent{}, apperrors.New(apperrors.KindLLMProvider, "no vision provider configured")
		}
		return e.vision.Extract(pdfPath, pr)
	case Auto, "":
		return e.auto(pdfPath, pr)
	default:
		return ParsedContent{}, fmt.Errorf("pdfextract: unknown strategy %q", strategy)
	}
}

// auto implements spec.md §4.5's four-step algorithm: native-structured,
// then ocr (same 100-char quality gate), then vision-llm unconditionally
// if configured, raising a composite ParseError if every strategy failed
// or returned insufficient content.
func (e *Extractor) auto(pdfPath string, pr PageRange) (ParsedContent, error) {
	var failures []string

	if result, err := e.nativeStructured.Extract(pdfPath, pr); err == nil {
		if len(strings.TrimSpace(result.Text)) > qualityGateChars {
			return result, nil
		}
		failures = append(failures, "native-structured: content below quality gate")
	} else {
		failures = append(failures, fmt.Sprintf("native-structured: %v", err))
	}

	if result, err := e.ocr.Extract(pdfPath, pr); err == nil {
		if len(strings.TrimSpace(result.Text)) > qualityGateChars {
			return result, nil
		}
		failures = append(failures, "ocr: content below quality gate")
	} else {
		failures = append(failures, fmt.Sprintf("ocr: %v", err))
	}

	if e.visionConfigured {
		result, err := e.vision.Extract(pdfPath, pr)
		if err == nil {
			return result, nil
		}
		failures = append(failures, fmt.Sprintf("vision-llm: %v", err))
	}

	return ParsedContent{}, &apperrors.Error{
		Kind:    apperrors.KindParse,
		Message: strings.Join(failures, "; "),
	}
}
