package pdfextract

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LedongthucStrategy is the native-structured extraction strategy: a second,
// independent PDF reader (so a single buggy parser can't sink both native
// strategies), walking each page's positioned text runs to infer headings
// (large/bold font-size runs) and table rows (aligned multi-column
// whitespace gaps), emitting markdown. Grounded in structure, not library,
// on internal/services/pdf/service.go's switch-on-node-kind AST-walk idiom,
// applied here to positioned text runs instead of a goldmark AST.
type LedongthucStrategy struct{}

func NewLedongthucStrategy() *LedongthucStrategy { return &LedongthucStrategy{} }

func (s *LedongthucStrategy) Name() Strategy { return NativeStructured }

// columnGap is the minimum horizontal gap (PDF points) between two text
// runs on the same line before they're treated as separate table columns.
const columnGap = 12.0

// headingSizeRatio thresholds classify a line's average font size against
// the document's median as a heading candidate.
const (
	h1SizeRatio = 1.5
	h2SizeRatio = 1.2
	lineEpsilon = 2.0
)

func (s *LedongthucStrategy) Extract(pdfPath string, pr PageRange) (ParsedContent, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return ParsedContent{}, fmt.Errorf("native-structured: open PDF: %w", err)
	}
	defer f.Close()

	pageCount := r.NumPage()
	start, end := pr.resolve(pageCount)

	medianSize := medianFontSize(r, start, end)

	var b strings.Builder
	processed := 0
	for p := start; p <= end; p++ {
		page := r.Page(p)
		if page.V().IsNull() {
			continue
		}
		content := page.Content()
		lines := groupIntoLines(content.Text)

		if processed > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("## Page %d\n\n", p))
		b.WriteString(renderLines(lines, medianSize))
		processed++
	}

	return ParsedContent{
		Text:         strings.TrimRight(b.String(), "\n"),
		PageCount:    processed,
		StrategyUsed: NativeStructured,
		Metadata:     map[string]interface{}{"total_pages": pageCount},
	}, nil
}

type textLine struct {
	y     float64
	runs  []pdf.Text
}

// groupIntoLines clusters text runs sharing (approximately) the same Y
// coordinate into reading-order lines: top-to-bottom, left-to-right.
func groupIntoLines(runs []pdf.Text) []textLine {
	var lines []textLine
	for _, run := range runs {
		if strings.TrimSpace(run.S) == "" {
			continue
		}
		placed := false
		for i := range lines {
			if math.Abs(lines[i].y-run.Y) <= lineEpsilon {
				lines[i].runs = append(lines[i].runs, run)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, textLine{y: run.Y, runs: []pdf.Text{run}})
		}
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].y > lines[j].y })
	for i := range lines {
		sort.Slice(lines[i].runs, func(a, b int) bool { return lines[i].runs[a].X < lines[i].runs[b].X })
	}
	return lines
}

// columnsOf splits a line's runs into columns wherever the horizontal gap
// to the previous run exceeds columnGap.
func columnsOf(line textLine) []string {
	var columns []string
	var current strings.Builder
	var prevEnd float64
	for i, run := range line.runs {
		if i > 0 && run.X-prevEnd >= columnGap {
			columns = append(columns, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(run.S)
		prevEnd = run.X + run.W
	}
	if current.Len() > 0 {
		columns = append(columns, strings.TrimSpace(current.String()))
	}
	return columns
}

func avgFontSize(line textLine) float64 {
	if len(line.runs) == 0 {
		return 0
	}
	var total float64
	for _, run := range line.runs {
		total += run.FontSize
	}
	return total / float64(len(line.runs))
}

func medianFontSize(r *pdf.Reader, start, end int) float64 {
	var sizes []float64
	for p := start; p <= end; p++ {
		page := r.Page(p)
		if page.V().IsNull() {
			continue
		}
		for _, run := range page.Content().Text {
			if strings.TrimSpace(run.S) != "" {
				sizes = append(sizes, run.FontSize)
			}
		}
	}
	if len(sizes) == 0 {
		return 10
	}
	sort.Float64s(sizes)
	return sizes[len(sizes)/2]
}

// renderLines converts grouped lines into markdown: headings by relative
// font size, contiguous multi-column blocks as pipe tables, everything
// else as plain paragraph text.
func renderLines(lines []textLine, medianSize float64) string {
	var b strings.Builder
	i := 0
	for i < len(lines) {
		line := lines[i]
		cols := columnsOf(line)

		if len(cols) >= 2 && blockHasTableShape(lines, i) {
			tableEnd := i
			for tableEnd < len(lines) && len(columnsOf(lines[tableEnd])) == len(cols) {
				tableEnd++
			}
			writeTable(&b, lines[i:tableEnd])
			i = tableEnd
			continue
		}

		text := strings.TrimSpace(joinRuns(line.runs))
		if text == "" {
			i++
			continue
		}

		switch {
		case avgFontSize(line) >= medianSize*h1SizeRatio && len(text) <= 80:
			b.WriteString("# " + text + "\n\n")
		case avgFontSize(line) >= medianSize*h2SizeRatio && len(text) <= 80:
			b.WriteString("## " + text + "\n\n")
		default:
			b.WriteString(text + "\n")
		}
		i++
	}
	return b.String()
}

// blockHasTableShape requires at least two consecutive lines with the same
// column count before a multi-column line is treated as tabular, to avoid
// misclassifying a single line with an irregular gap.
func blockHasTableShape(lines []textLine, i int) bool {
	if i+1 >= len(lines) {
		return false
	}
	return len(columnsOf(lines[i])) == len(columnsOf(lines[i+1])) && len(columnsOf(lines[i])) >= 2
}

func writeTable(b *strings.Builder, rows []textLine) {
	if len(rows) == 0 {
		return
	}
	header := columnsOf(rows[0])
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows[1:] {
		b.WriteString("| " + strings.Join(columnsOf(row), " | ") + " |\n")
	}
	b.WriteString("\n")
}

func joinRuns(runs []pdf.Text) string {
	var b strings.Builder
	for _, run := range runs {
		b.WriteString(run.S)
	}
	return b.String()
}
