package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type structuredFixture struct {
	Title string `json:"title"`
	Score int    `json:"score"`
}

func TestDecodeStructured_PlainJSON(t *testing.T) {
	var out structuredFixture
	require.NoError(t, decodeStructured(`{"title":"a","score":3}`, &out))
	assert.Equal(t, structuredFixture{Title: "a", Score: 3}, out)
}

func TestDecodeStructured_StripsMarkdownFence(t *testing.T) {
	var out structuredFixture
	raw := "```json\n{\"title\":\"b\",\"score\":5}\n```"
	require.NoError(t, decodeStructured(raw, &out))
	assert.Equal(t, structuredFixture{Title: "b", Score: 5}, out)
}

func TestDecodeStructured_RepairsTrailingComma(t *testing.T) {
	var out structuredFixture
	raw := `{"title": "c", "score": 7,}`
	require.NoError(t, decodeStructured(raw, &out))
	assert.Equal(t, structuredFixture{Title: "c", Score: 7}, out)
}

func TestDecodeStructured_TypeMismatchReturnsError(t *testing.T) {
	var out structuredFixture
	// Valid JSON, but score is a string where an int is expected — repair
	// cannot fix a type mismatch, so this must surface as an error rather
	// than silently zero-filling the field.
	err := decodeStructured(`{"title": "x", "score": "not-a-number"}`, &out)
	require.Error(t, err)
}

func TestStripCodeFence_NoFenceIsUnchanged(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}
