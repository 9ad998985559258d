package pdfextract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"golang.org/x/image/draw"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/interfaces"
)

// visionExtractionPrompt is the fixed extraction prompt spec.md §4.5
// specifies verbatim for the vision-LLM strategy.
const visionExtractionPrompt = `Transcribe this document page to markdown.
Rules:
- Headings use "#"-prefixed markdown headings.
- Tables use markdown pipe-table format.
- Figures and charts become "[figure: description]" placeholders.
- Strip page chrome (running headers/footers, page numbers).
- Japanese proper nouns and numeric values must be transcribed exactly.
- Accounting terms must be preserved verbatim, not translated or paraphrased.`

// maxVisionImageWidth bounds the rasterized page image before base64
// packaging, keeping the vision request payload reasonable.
const maxVisionImageWidth = 1600

// VisionStrategy rasterizes pages and sends each to a vision-capable LLM.
// pdfcpu has no general PDF-to-raster renderer, only embedded-image
// extraction, so a page without an embedded one-page-per-image payload
// degrades to a text-only prompt built from native-basic's output, logged
// at Warn (spec.md §4.5's documented fallback).
type VisionStrategy struct {
	tempDir  string
	provider interfaces.LLMProvider
	basic    *PdfcpuStrategy
	logger   arbor.ILogger
}

func NewVisionStrategy(tempDir string, provider interfaces.LLMProvider, logger arbor.ILogger) *VisionStrategy {
	return &VisionStrategy{tempDir: tempDir, provider: provider, basic: NewPdfcpuStrategy(tempDir), logger: logger}
}

func (s *VisionStrategy) Name() Strategy { return VisionLLM }

func (s *VisionStrategy) Extract(pdfPath string, pr PageRange) (ParsedContent, error) {
	if !s.provider.SupportsVision() {
		return ParsedContent{}, apperrors.VisionAPIError(nil, "configured provider does not support vision")
	}

	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return ParsedContent{}, fmt.Errorf("vision-llm: read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount
	start, end := pr.resolve(pageCount)

	pageImages := s.extractPageImages(pdfPath, start, end)

	var sections []string
	for p := start; p <= end; p++ {
		textPrompt := visionExtractionPrompt
		var imageBytes []byte
		mimeType := "image/png"

		if raw, ok := pageImages[p]; ok {
			resized, err := resizeToPNG(raw)
			if err != nil {
				s.logger.Warn().Err(err).Int("page", p).Msg("vision-llm: failed to resize rasterized page, falling back to text prompt")
			} else {
				imageBytes = resized
			}
		}

		if imageBytes == nil {
			s.logger.Warn().Int("page", p).Msg("vision-llm: no rasterizable image for page, degrading to text-only prompt")
			fallback, err := s.basic.Extract(pdfPath, PageRange{StartPage: intPtr(p), EndPage: intPtr(p)})
			if err != nil {
				return ParsedContent{}, fmt.Errorf("vision-llm: text fallback for page %d: %w", p, err)
			}
			textPrompt = visionExtractionPrompt + "\n\nSource text (no image available):\n" + fallback.Text
			imageBytes = []byte{}
			mimeType = ""
		}

		var result string
		if len(imageBytes) > 0 {
			result, err = s.provider.InvokeVision(context.Background(), textPrompt, imageBytes, mimeType)
		} else {
			result, err = s.provider.InvokeVision(context.Background(), textPrompt, nil, "")
		}
		if err != nil {
			return ParsedContent{}, apperrors.VisionAPIError(err, fmt.Sprintf("vision-llm: page %d invocation failed", p))
		}

		sections = append(sections, fmt.Sprintf("## Page %d\n\n%s", p, result))
	}

	return ParsedContent{
		Text:         strings.Join(sections, "\n\n---\n\n"),
		PageCount:    len(sections),
		StrategyUsed: VisionLLM,
		Metadata:     map[string]interface{}{"total_pages": pageCount},
	}, nil
}

// extractPageImages extracts embedded images page-by-page via pdfcpu, best
// effort: only pages whose extraction yields exactly one image are mapped
// (a page with zero or multiple embedded images isn't a reliable
// one-page-per-image rasterization and is left for the text fallback).
func (s *VisionStrategy) extractPageImages(pdfPath string, start, end int) map[int][]byte {
	result := make(map[int][]byte)

	for p := start; p <= end; p++ {
		outDir, err := os.MkdirTemp(s.tempDir, "vision-extract-*")
		if err != nil {
			continue
		}

		conf := model.NewDefaultConfiguration()
		if err := api.ExtractImagesFile(pdfPath, outDir, []string{fmt.Sprintf("%d", p)}, conf); err != nil {
			os.RemoveAll(outDir)
			continue
		}

		entries, _ := os.ReadDir(outDir)
		var imageFiles []string
		for _, e := range entries {
			if !e.IsDir() {
				imageFiles = append(imageFiles, filepath.Join(outDir, e.Name()))
			}
		}
		if len(imageFiles) == 1 {
			if raw, err := os.ReadFile(imageFiles[0]); err == nil {
				result[p] = raw
			}
		}
		os.RemoveAll(outDir)
	}
	return result
}

func resizeToPNG(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode rasterized image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxVisionImageWidth {
		height = height * maxVisionImageWidth / width
		width = maxVisionImageWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode resized PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func intPtr(v int) *int { return &v }
