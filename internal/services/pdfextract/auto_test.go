package pdfextract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
)

type fakeStrategy struct {
	name   Strategy
	result ParsedContent
	err    error
}

func (f fakeStrategy) Name() Strategy { return f.name }
func (f fakeStrategy) Extract(string, PageRange) (ParsedContent, error) {
	return f.result, f.err
}

func newTestExtractor(nativeStructured, ocr, vision strategyRunner) *Extractor {
	return &Extractor{
		nativeBasic:      fakeStrategy{name: NativeBasic},
		nativeStructured: nativeStructured,
		ocr:              ocr,
		vision:           vision,
		visionConfigured: vision != nil,
		logger:           nil,
	}
}

// TestAuto_NativeStructuredPassesQualityGate pins spec.md §4.5 step 1:
// native-structured content over the 100-char gate returns immediately.
func TestAuto_NativeStructuredPassesQualityGate(t *testing.T) {
	longText := strings.Repeat("x", 150)
	e := newTestExtractor(
		fakeStrategy{name: NativeStructured, result: ParsedContent{Text: longText, StrategyUsed: NativeStructured}},
		fakeStrategy{name: OCR, err: errors.New("should not be called")},
		nil,
	)

	result, err := e.Extract("doc.pdf", Auto, PageRange{})
	require.NoError(t, err)
	assert.Equal(t, NativeStructured, result.StrategyUsed)
}

// TestAuto_FallsThroughToVisionLLM pins seed scenario 3: native-structured
// returns an 18-char string (below the gate), no OCR available, vision
// configured and returns a long string — final strategy_used is vision-llm
// with text length > 100.
func TestAuto_FallsThroughToVisionLLM(t *testing.T) {
	shortText := "Page 1 header\n\n\n\n\n" // 18 chars
	visionText := "## Page 1\n\n" + strings.Repeat("lorem ", 40)

	e := newTestExtractor(
		fakeStrategy{name: NativeStructured, result: ParsedContent{Text: shortText}},
		fakeStrategy{name: OCR, err: apperrors.OCRError("not installed")},
		fakeStrategy{name: VisionLLM, result: ParsedContent{Text: visionText, StrategyUsed: VisionLLM}},
	)

	result, err := e.Extract("doc.pdf", Auto, PageRange{})
	require.NoError(t, err)
	assert.Equal(t, VisionLLM, result.StrategyUsed)
	assert.Greater(t, len(result.Text), 100)
}

func TestAuto_AllStrategiesFail_RaisesCompositeParseError(t *testing.T) {
	e := newTestExtractor(
		fakeStrategy{name: NativeStructured, err: errors.New("corrupt stream")},
		fakeStrategy{name: OCR, err: apperrors.OCRError("not installed")},
		nil,
	)

	_, err := e.Extract("doc.pdf", Auto, PageRange{})
	require.Error(t, err)

	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindParse, appErr.Kind)
	assert.Contains(t, appErr.Message, "corrupt stream")
	assert.Contains(t, appErr.Message, "not installed")
}

func TestAuto_NoVisionConfigured_SkipsStep3(t *testing.T) {
	e := newTestExtractor(
		fakeStrategy{name: NativeStructured, result: ParsedContent{Text: "too short"}},
		fakeStrategy{name: OCR, result: ParsedContent{Text: "also short"}},
		nil,
	)

	_, err := e.Extract("doc.pdf", Auto, PageRange{})
	require.Error(t, err)
	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.NotContains(t, appErr.Message, "vision-llm")
}

func TestExtract_DirectStrategySelection(t *testing.T) {
	e := newTestExtractor(
		fakeStrategy{name: NativeStructured, result: ParsedContent{Text: "structured", StrategyUsed: NativeStructured}},
		fakeStrategy{name: OCR},
		nil,
	)

	result, err := e.Extract("doc.pdf", NativeStructured, PageRange{})
	require.NoError(t, err)
	assert.Equal(t, "structured", result.Text)
}

func TestExtract_VisionLLMWithoutProviderConfigured(t *testing.T) {
	e := newTestExtractor(fakeStrategy{name: NativeStructured}, fakeStrategy{name: OCR}, nil)
	_, err := e.Extract("doc.pdf", VisionLLM, PageRange{})
	require.Error(t, err)
}
