package irexplorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactRepresentation_StripsChromeAndScript(t *testing.T) {
	html := `
<html><body>
<nav>Site nav should vanish</nav>
<script>var x = 1;</script>
<h1>Investor Relations</h1>
<a href="/docs/results.pdf">FY2024 Results</a>
<footer>Footer should vanish</footer>
</body></html>`

	out, err := compactRepresentation(html, 15000)
	require.NoError(t, err)
	assert.Contains(t, out, "{#1} Investor Relations")
	assert.Contains(t, out, "[PDF] [FY2024 Results](/docs/results.pdf)")
	assert.NotContains(t, out, "Site nav")
	assert.NotContains(t, out, "Footer should vanish")
	assert.NotContains(t, out, "var x = 1")
}

func TestCompactRepresentation_DedupesPreservingOrder(t *testing.T) {
	html := `
<a href="/a.pdf">Link A</a>
<a href="/a.pdf">Link A</a>
<a href="/b.pdf">Link B</a>`

	out, err := compactRepresentation(html, 15000)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Link A"))
	assert.True(t, strings.Index(out, "Link A") < strings.Index(out, "Link B"))
}

func TestCompactRepresentation_CapsLength(t *testing.T) {
	html := "<p>" + strings.Repeat("a very long paragraph of filler text ", 2000) + "</p>"
	out, err := compactRepresentation(html, 100)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 100)
}

func TestCompactRepresentation_ShortOtherTextOmitted(t *testing.T) {
	html := `<div>short</div><div>a reasonably long div fragment of text</div>`
	out, err := compactRepresentation(html, 15000)
	require.NoError(t, err)
	assert.NotContains(t, out, "short")
	assert.Contains(t, out, "a reasonably long div fragment of text")
}
