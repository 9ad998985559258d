package agent

// intentPriority lists tool-name families in the same priority order as
// the system prompt's intent-mapping table (spec.md §4.11): the first
// family with any matching tool call in the conversation wins.
var intentPriority = []struct {
	intent string
	tools  map[string]bool
}{
	{"search", map[string]bool{ToolSearchCompany: true, ToolSearchDocuments: true}},
	{"download", map[string]bool{ToolDownloadDocument: true}},
	{"analyze", map[string]bool{ToolAnalyzeDocument: true}},
	{"compare", map[string]bool{ToolCompareDocuments: true}},
	{"summarize", map[string]bool{ToolSummarizeDocument: true}},
	{"ir", map[string]bool{ToolFetchIRDocuments: true, ToolFetchIRNews: true, ToolExploreIRPage: true}},
}

// inferIntent picks the first intentPriority family with a matching tool
// name among toolsUsed, or "" if no tool was called.
func inferIntent(toolsUsed []string) string {
	used := make(map[string]bool, len(toolsUsed))
	for _, name := range toolsUsed {
		used[name] = true
	}
	for _, family := range intentPriority {
		for name := range family.tools {
			if used[name] {
				return family.intent
			}
		}
	}
	return ""
}

// dedupToolNames preserves first-occurrence order while dropping repeats
// (spec.md §5 ordering guarantee: "tools_used list (deduplicated while
// preserving first occurrence)").
func dedupToolNames(calls []ToolCall) []string {
	seen := make(map[string]bool, len(calls))
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c.Name)
	}
	return out
}

// collectToolCalls accumulates every ToolCall recorded on an assistant
// message, in conversation order (spec.md §4.11 "accumulates tool_calls
// across tool messages").
func collectToolCalls(messages []Message) []ToolCall {
	var calls []ToolCall
	for _, m := range messages {
		calls = append(calls, m.ToolCalls...)
	}
	return calls
}

// collectDocuments walks every tool-role message and harvests a
// DocumentInfo wherever its content decodes to a dict carrying a
// `metadata.doc_id` (spec.md §4.11 "Metadata harvest").
func collectDocuments(messages []Message) []DocumentInfo {
	var docs []DocumentInfo
	for _, m := range messages {
		if m.Role != "tool" {
			continue
		}
		if info, ok := harvestMetadata(m.Content.Normalize()); ok {
			docs = append(docs, info)
		}
	}
	return docs
}

// ResultFromMessages derives a Result purely by inspecting a finished
// conversation's message list, without running the loop: it normalizes
// the last message's content (handling the plain-string, block-list, and
// null MessageContent variants per spec.md §4.11) and harvests tool_calls
// and document metadata from everything before it. Exposed so callers
// resuming a conversation externally (or the test suite) can re-derive the
// structured result.
func ResultFromMessages(messages []Message) Result {
	answer := ""
	if len(messages) > 0 {
		answer = messages[len(messages)-1].Content.Normalize()
	}
	return parseResult(messages, answer)
}

// parseResult implements spec.md §4.11's "Result parsing": accumulate
// tool_calls, infer intent, and attach harvested document metadata,
// alongside the already-normalized final answer text.
func parseResult(messages []Message, answer string) Result {
	calls := collectToolCalls(messages)
	toolsUsed := dedupToolNames(calls)
	return Result{
		Answer:    answer,
		Intent:    inferIntent(toolsUsed),
		ToolsUsed: toolsUsed,
		ToolCalls: calls,
		Documents: collectDocuments(messages),
	}
}
