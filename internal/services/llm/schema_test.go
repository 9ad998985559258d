package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestConvertToGenaiSchema_NilForEmptyMap(t *testing.T) {
	schema, err := convertToGenaiSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, schema)
}

func TestConvertToGenaiSchema_ObjectWithProperties(t *testing.T) {
	input := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"title"},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{"type": "string"},
			"score": map[string]interface{}{"type": "integer"},
		},
	}

	schema, err := convertToGenaiSchema(input)
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"title"}, schema.Required)
	require.Contains(t, schema.Properties, "title")
	assert.Equal(t, genai.TypeString, schema.Properties["title"].Type)
	require.Contains(t, schema.Properties, "score")
	assert.Equal(t, genai.TypeInteger, schema.Properties["score"].Type)
}

func TestConvertToGenaiSchema_ArrayOfItems(t *testing.T) {
	input := map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}
	schema, err := convertToGenaiSchema(input)
	require.NoError(t, err)
	assert.Equal(t, genai.TypeArray, schema.Type)
	require.NotNil(t, schema.Items)
	assert.Equal(t, genai.TypeString, schema.Items.Type)
}

func TestSchemaInstructionPrompt_EmptySchemaLeavesPromptUnchanged(t *testing.T) {
	assert.Equal(t, "hello", schemaInstructionPrompt("hello", nil))
}

func TestSchemaInstructionPrompt_EmbedsSchemaJSON(t *testing.T) {
	out := schemaInstructionPrompt("hello", map[string]interface{}{"type": "object"})
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, `"type": "object"`)
}
