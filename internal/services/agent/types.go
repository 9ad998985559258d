// Package agent implements the ReAct-style tool-orchestration agent
// (spec.md §4.11): a chat model bound to a fixed tool set and system
// prompt, looping reason/act/observe turns until the model emits a final
// answer. It is the only caller of the other services' public entry
// points that does so through a declared tool schema rather than a direct
// method call.
package agent

import (
	"encoding/json"
)

// ToolDefinition describes one callable tool's name, purpose, and input
// shape, in the same spirit as the teacher's MCP Tool record but without
// any JSON-RPC wire framing — this agent never leaves the process.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolCall is one invocation the model requested.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult is a tool handler's outcome, collapsed to plain text before
// it re-enters the prompt (the model never sees structured values, only
// their JSON or textual rendering).
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// ContentKind discriminates MessageContent's variants.
type ContentKind int

const (
	ContentNull ContentKind = iota
	ContentText
	ContentBlocks
)

// ContentBlock is one element of a Blocks-variant MessageContent. Only
// "text" blocks carry meaning for this agent; other block types (the
// teacher's "tool_use" blocks survive as provider-assistant bookkeeping)
// are recognized by Kind and carry no text.
type ContentBlock struct {
	Kind string // "text" or "tool_use"
	Text string
}

// MessageContent is the sealed variant spec.md's REDESIGN FLAGS section
// calls for in place of duck-typing a message's `.content`: exactly one
// of Text, Blocks, or Null is active, discriminated by Kind.
type MessageContent struct {
	Kind  ContentKind
	Text  string
	Block []ContentBlock
}

// TextContent wraps a plain string.
func TextContent(s string) MessageContent {
	return MessageContent{Kind: ContentText, Text: s}
}

// BlocksContent wraps a list of content blocks.
func BlocksContent(blocks []ContentBlock) MessageContent {
	return MessageContent{Kind: ContentBlocks, Block: blocks}
}

// NullContent represents an absent content value.
func NullContent() MessageContent {
	return MessageContent{Kind: ContentNull}
}

// Normalize implements spec.md §4.11's content-normalization rule: a
// plain string passes through; a block list concatenates its "text"
// entries with newlines, ignoring non-text blocks; null and any
// unrecognized shape coerce to the empty string. Never panics.
func (c MessageContent) Normalize() string {
	switch c.Kind {
	case ContentText:
		return c.Text
	case ContentBlocks:
		var parts []string
		for _, b := range c.Block {
			if b.Kind == "text" && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return joinNewline(parts)
	default:
		return ""
	}
}

func joinNewline(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

// Message is one turn of agent conversation state. ToolCalls is non-empty
// only on assistant messages that requested tool use; Role is one of
// "system", "user", "assistant", "tool".
type Message struct {
	Role      string
	Content   MessageContent
	ToolCalls []ToolCall
	// ToolCallID links a "tool" role message back to the ToolCall it answers.
	ToolCallID string
}

// DocumentInfo is a harvested record of a document touched mid-conversation
// (spec.md §4.11 "Metadata harvest"), keyed by doc_id.
type DocumentInfo struct {
	DocID       string
	SecCode     string
	FilerName   string
	DocTypeCode string
	PeriodEnd   string
	PeriodStart string
	Description string
}

// Result is the orchestrator's final, structured outcome (spec.md §4.11
// "Result parsing").
type Result struct {
	Answer    string
	Intent    string
	ToolsUsed []string
	ToolCalls []ToolCall
	Documents []DocumentInfo
}

// harvestMetadata inspects a tool message's content for a `{"metadata":
// {"doc_id": ...}}` shape, accepting either a literal JSON-decodable
// string or (defensively) content that is already a JSON object's text
// rendering. JSON-parse failures are silently skipped per spec.md §4.11.
func harvestMetadata(content string) (DocumentInfo, bool) {
	var envelope struct {
		Metadata struct {
			DocID       string `json:"doc_id"`
			SecCode     string `json:"sec_code"`
			FilerName   string `json:"filer_name"`
			DocTypeCode string `json:"doc_type_code"`
			PeriodEnd   string `json:"period_end"`
			PeriodStart string `json:"period_start"`
			Description string `json:"doc_description"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return DocumentInfo{}, false
	}
	if envelope.Metadata.DocID == "" {
		return DocumentInfo{}, false
	}
	return DocumentInfo{
		DocID:       envelope.Metadata.DocID,
		SecCode:     envelope.Metadata.SecCode,
		FilerName:   envelope.Metadata.FilerName,
		DocTypeCode: envelope.Metadata.DocTypeCode,
		PeriodEnd:   envelope.Metadata.PeriodEnd,
		PeriodStart: envelope.Metadata.PeriodStart,
		Description: envelope.Metadata.Description,
	}, true
}
