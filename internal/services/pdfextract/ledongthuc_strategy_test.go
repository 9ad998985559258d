package pdfextract

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupIntoLines_ClustersByY(t *testing.T) {
	runs := []pdf.Text{
		{S: "Hello", X: 10, Y: 700, FontSize: 12},
		{S: " World", X: 50, Y: 700.5, FontSize: 12},
		{S: "Second line", X: 10, Y: 680, FontSize: 12},
	}

	lines := groupIntoLines(runs)
	require.Len(t, lines, 2)
	assert.Equal(t, "Hello World", joinRuns(lines[0].runs))
	assert.Equal(t, "Second line", joinRuns(lines[1].runs))
}

func TestGroupIntoLines_SkipsWhitespaceOnlyRuns(t *testing.T) {
	runs := []pdf.Text{
		{S: "   ", X: 0, Y: 100, FontSize: 12},
		{S: "Real", X: 10, Y: 100, FontSize: 12},
	}
	lines := groupIntoLines(runs)
	require.Len(t, lines, 1)
	assert.Equal(t, "Real", joinRuns(lines[0].runs))
}

func TestColumnsOf_SplitsOnLargeGap(t *testing.T) {
	line := textLine{runs: []pdf.Text{
		{S: "Revenue", X: 0, W: 40},
		{S: "100", X: 100, W: 20}, // gap 60 >= columnGap
	}}
	cols := columnsOf(line)
	require.Len(t, cols, 2)
	assert.Equal(t, "Revenue", cols[0])
	assert.Equal(t, "100", cols[1])
}

func TestColumnsOf_MergesSmallGap(t *testing.T) {
	line := textLine{runs: []pdf.Text{
		{S: "Hello", X: 0, W: 20},
		{S: " World", X: 21, W: 30}, // gap 1 < columnGap
	}}
	cols := columnsOf(line)
	require.Len(t, cols, 1)
	assert.Equal(t, "Hello World", cols[0])
}

func TestAvgFontSize(t *testing.T) {
	line := textLine{runs: []pdf.Text{{FontSize: 10}, {FontSize: 20}}}
	assert.Equal(t, 15.0, avgFontSize(line))
}

func TestRenderLines_LargeFontBecomesH1Heading(t *testing.T) {
	lines := []textLine{
		{y: 100, runs: []pdf.Text{{S: "Annual Report", X: 0, FontSize: 24}}},
		{y: 80, runs: []pdf.Text{{S: "body text", X: 0, FontSize: 10}}},
	}
	out := renderLines(lines, 10)
	assert.Contains(t, out, "# Annual Report")
	assert.Contains(t, out, "body text")
}

func TestRenderLines_MultiColumnBlockBecomesTable(t *testing.T) {
	lines := []textLine{
		{y: 100, runs: []pdf.Text{{S: "Item", X: 0, W: 20}, {S: "Amount", X: 100, W: 20}}},
		{y: 80, runs: []pdf.Text{{S: "Sales", X: 0, W: 20}, {S: "1000", X: 100, W: 20}}},
	}
	out := renderLines(lines, 10)
	assert.Contains(t, out, "| Item | Amount |")
	assert.Contains(t, out, "| --- | --- |")
	assert.Contains(t, out, "| Sales | 1000 |")
}
