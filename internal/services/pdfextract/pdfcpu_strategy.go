package pdfextract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PdfcpuStrategy is the native-basic extraction strategy: per-page plain
// text via pdfcpu's content extraction, joined with the raw "--- Page N
// ---" delimiter. Adapted from internal/services/pdf/extractor.go, which
// already emits this exact delimiter format.
type PdfcpuStrategy struct {
	tempDir string
}

func NewPdfcpuStrategy(tempDir string) *PdfcpuStrategy {
	return &PdfcpuStrategy{tempDir: tempDir}
}

func (s *PdfcpuStrategy) Name() Strategy { return NativeBasic }

func (s *PdfcpuStrategy) Extract(pdfPath string, pr PageRange) (ParsedContent, error) {
	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return ParsedContent{}, fmt.Errorf("native-basic: read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount
	start, end := pr.resolve(pageCount)

	outDir, err := os.MkdirTemp(s.tempDir, "pdfcpu-extract-*")
	if err != nil {
		return ParsedContent{}, fmt.Errorf("native-basic: create temp dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	var selector []string
	if start != 1 || end != pageCount {
		selector = []string{fmt.Sprintf("%d-%d", start, end)}
	}
	if err := api.ExtractContentFile(pdfPath, outDir, selector, conf); err != nil {
		return ParsedContent{}, fmt.Errorf("native-basic: extract content: %w", err)
	}

	pageTexts := make(map[int]string)
	entries, _ := os.ReadDir(outDir)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(entry.Name(), "page_%d", &pageNum); err != nil {
				continue
			}
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	var pages []int
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n--- Page ")
			b.WriteString(fmt.Sprintf("%d", p))
			b.WriteString(" ---\n\n")
		}
		b.WriteString(pageTexts[p])
	}

	return ParsedContent{
		Text:         b.String(),
		PageCount:    len(pages),
		StrategyUsed: NativeBasic,
		Metadata:     map[string]interface{}{"total_pages": pageCount},
	}, nil
}
