package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageContent_Normalize_MultiPartBlocksIgnoresNonText(t *testing.T) {
	msg := Message{
		Role: "assistant",
		Content: BlocksContent([]ContentBlock{
			{Kind: "text", Text: "Toyota"},
			{Kind: "tool_use", Text: ""},
			{Kind: "text", Text: "found"},
		}),
	}

	result := ResultFromMessages([]Message{msg})
	assert.Equal(t, "Toyota\nfound", result.Answer)
	assert.Empty(t, result.Documents)
}

func TestMessageContent_Normalize_PlainString(t *testing.T) {
	assert.Equal(t, "hello", TextContent("hello").Normalize())
}

func TestMessageContent_Normalize_Null(t *testing.T) {
	assert.Equal(t, "", NullContent().Normalize())
}

func TestMessageContent_Normalize_UnrecognizedShapeCoercesToEmpty(t *testing.T) {
	var zero MessageContent
	assert.Equal(t, "", zero.Normalize())
}

func TestDedupToolNames_PreservesFirstOccurrenceOrder(t *testing.T) {
	calls := []ToolCall{
		{Name: ToolSearchCompany},
		{Name: ToolSearchDocuments},
		{Name: ToolSearchCompany},
		{Name: ToolDownloadDocument},
		{Name: ToolSearchDocuments},
	}
	out := dedupToolNames(calls)
	assert.Equal(t, []string{ToolSearchCompany, ToolSearchDocuments, ToolDownloadDocument}, out)
}

func TestInferIntent_PriorityOrder(t *testing.T) {
	assert.Equal(t, "search", inferIntent([]string{ToolSearchCompany}))
	assert.Equal(t, "download", inferIntent([]string{ToolDownloadDocument}))
	assert.Equal(t, "ir", inferIntent([]string{ToolFetchIRNews}))
	assert.Equal(t, "", inferIntent(nil))
	// search takes priority over download when both tools were used.
	assert.Equal(t, "search", inferIntent([]string{ToolDownloadDocument, ToolSearchCompany}))
}

func TestHarvestMetadata_SilentlySkipsNonJSON(t *testing.T) {
	info, ok := harvestMetadata("not json at all")
	assert.False(t, ok)
	assert.Equal(t, DocumentInfo{}, info)
}

func TestHarvestMetadata_ExtractsDocID(t *testing.T) {
	content := `{"file_path": "/tmp/x.pdf", "metadata": {"doc_id": "S100ABCD", "sec_code": "72030"}}`
	info, ok := harvestMetadata(content)
	assert.True(t, ok)
	assert.Equal(t, "S100ABCD", info.DocID)
	assert.Equal(t, "72030", info.SecCode)
}

func TestCollectDocuments_OnlyFromToolMessages(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: TextContent(`{"metadata": {"doc_id": "ignored"}}`)},
		{Role: "tool", Content: TextContent(`{"metadata": {"doc_id": "S100WXYZ"}}`)},
		{Role: "assistant", Content: TextContent("thinking")},
	}
	docs := collectDocuments(messages)
	assert.Len(t, docs, 1)
	assert.Equal(t, "S100WXYZ", docs[0].DocID)
}
