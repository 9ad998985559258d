package agent

import (
	"encoding/json"
	"fmt"
	"time"
)

// systemPromptBase carries every directive spec.md §4.11's "System-prompt
// contracts" requires the model reproduce: intent mapping, filing-type
// codes, ordering hints, relative-date resolution, metadata propagation,
// and IR-vs-filings disambiguation.
const systemPromptBase = `You are a research assistant for Japanese listed companies, with access to the tools listed below. Plan your approach, call tools as needed, and give a final answer once you have enough information.

Intent mapping — route the user's request to the matching tool family:
- "find/look up/who is <company>" -> search_company
- "find/list/search filings/documents/disclosures" -> search_documents
- "download/get/fetch the PDF" -> download_document
- "analyze/review/assess" -> analyze_document
- "summarize/summary of" -> summarize_document
- "compare/difference between" -> compare_documents
- "earnings briefing / IR library / investor relations" -> fetch_ir_documents, fetch_ir_news, or explore_ir_page
- "annual report / quarterly report / extraordinary report" -> search_documents and download_document (filings, not IR)

Japanese filing-type terms map to these numeric document-type codes:
- annual report (有価証券報告書) -> 120
- quarterly report (四半期報告書) -> 140
- half-year report (半期報告書) -> 160
- extraordinary report (臨時報告書) -> 180

Ordering hints for search_documents:
- "latest" or "most recent" -> search_order=newest_first, max_documents=1
- "oldest" -> search_order=oldest_first, max_documents=1
- unspecified -> search_order=newest_first with no cap

Relative date resolution: resolve phrases like "past year", "past 6 months", "this year", "last year", or "FY 2023" to explicit ISO start_date/end_date values against today's date, %s.

Metadata propagation: when you call download_document, analyze_document, summarize_document, or compare_documents for a document you found via search_documents, pass through that document's sec_code, filer_name, doc_type_code, period_end, period_start, and doc_description fields so the file lands in the correct download-hierarchy folder.

IR vs. filings disambiguation: requests mentioning "earnings briefing" or "IR library" use the IR tools (fetch_ir_documents, fetch_ir_news, explore_ir_page); requests mentioning "annual report" or "quarterly report" use the filings tools (search_documents, download_document).

On each turn, respond with a JSON object describing exactly one of two things: a tool call to make next, or your final answer. Never emit both in the same turn.`

// nextStepSchema is the structured-output contract every ReAct turn is
// constrained to. There is no native multi-turn chat-with-tool-calling API
// on interfaces.LLMProvider (only InvokeStructured), so each turn re-sends
// the full transcript and asks the model to pick exactly one of
// {tool_call, final_answer}.
var nextStepSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"thought": map[string]interface{}{"type": "string", "description": "brief reasoning for this step"},
		"tool_call": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name":      map[string]interface{}{"type": "string"},
				"arguments": map[string]interface{}{"type": "object"},
			},
		},
		"final_answer": map[string]interface{}{"type": "string"},
	},
}

type nextStep struct {
	Thought  string `json:"thought"`
	ToolCall *struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	} `json:"tool_call"`
	FinalAnswer *string `json:"final_answer"`
}

// buildSystemPrompt appends the tool catalogue to systemPromptBase, in the
// teacher's own "## ToolName / description / input schema" layout.
func buildSystemPrompt(defs []ToolDefinition, now time.Time) string {
	prompt := fmt.Sprintf(systemPromptBase, now.Format("2006-01-02")) + "\n\n# Available Tools\n\n"
	for _, def := range defs {
		prompt += fmt.Sprintf("## %s\n\n%s\n\n", def.Name, def.Description)
		schemaJSON, err := json.MarshalIndent(def.InputSchema, "", "  ")
		if err == nil {
			prompt += "Input schema:\n```json\n" + string(schemaJSON) + "\n```\n\n"
		}
	}
	return prompt
}

// renderTranscript flattens the conversation into a single prompt body,
// since each ReAct turn is one independent InvokeStructured call rather
// than a stateful chat session.
func renderTranscript(messages []Message) string {
	out := ""
	for _, m := range messages {
		switch m.Role {
		case "system":
			out += "[system]\n" + m.Content.Normalize() + "\n\n"
		case "user":
			out += "[user]\n" + m.Content.Normalize() + "\n\n"
		case "assistant":
			out += "[assistant]\n" + m.Content.Normalize()
			for _, tc := range m.ToolCalls {
				args, _ := json.Marshal(tc.Arguments)
				out += fmt.Sprintf("\n(called tool %s with %s)", tc.Name, string(args))
			}
			out += "\n\n"
		case "tool":
			out += fmt.Sprintf("[tool result for %s]\n%s\n\n", m.ToolCallID, m.Content.Normalize())
		}
	}
	out += "Respond with your next step as a JSON object matching the tool_call/final_answer schema."
	return out
}
