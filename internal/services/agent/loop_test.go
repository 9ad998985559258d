package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// scriptedProvider replays a fixed sequence of InvokeStructured JSON
// responses, one per call, regardless of prompt content — enough to drive
// the ReAct loop deterministically in tests.
type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) ModelName() string    { return "scripted" }
func (p *scriptedProvider) ProviderName() string { return "test" }
func (p *scriptedProvider) SupportsVision() bool { return false }

func (p *scriptedProvider) InvokeStructured(ctx context.Context, prompt string, schema map[string]interface{}, out interface{}) error {
	if p.calls >= len(p.responses) {
		return assertNeverReached{}
	}
	resp := p.responses[p.calls]
	p.calls++
	return json.Unmarshal([]byte(resp), out)
}

func (p *scriptedProvider) InvokeVision(ctx context.Context, textPrompt string, imageBytes []byte, mimeType string) (string, error) {
	return "", nil
}

type assertNeverReached struct{}

func (assertNeverReached) Error() string { return "scriptedProvider: ran out of scripted responses" }

func newTestOrchestrator(t *testing.T, provider *scriptedProvider, tools *Toolset) *Orchestrator {
	t.Helper()
	if tools == nil {
		tools = &Toolset{}
	}
	return NewOrchestrator(provider, tools, Config{MaxTurns: 5, MaxToolCalls: 5, Timeout: 10 * time.Second}, arbor.NewLogger())
}

func TestRun_ImmediateFinalAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"thought": "no tools needed", "final_answer": "Toyota Motor is sec_code 72030."}`,
	}}
	orch := newTestOrchestrator(t, provider, nil)

	result, messages, err := orch.Run(context.Background(), "What is Toyota's sec code?")
	require.NoError(t, err)
	assert.Equal(t, "Toyota Motor is sec_code 72030.", result.Answer)
	assert.Empty(t, result.ToolsUsed)
	assert.Equal(t, "", result.Intent)
	// system + user + assistant
	assert.Len(t, messages, 3)
}

func TestRun_OneToolCallThenFinalAnswer(t *testing.T) {
	tools := &Toolset{Directory: nil}
	provider := &scriptedProvider{responses: []string{
		`{"thought": "search for the company", "tool_call": {"name": "search_company", "arguments": {"query": "Toyota"}}}`,
		`{"thought": "done", "final_answer": "Found Toyota."}`,
	}}
	// search_company will fail (nil Directory) but the loop must still
	// proceed, recording an error-flagged tool result rather than aborting.
	orch := newTestOrchestrator(t, provider, tools)

	result, _, err := orch.Run(context.Background(), "Find Toyota")
	require.NoError(t, err)
	assert.Equal(t, "Found Toyota.", result.Answer)
	assert.Equal(t, []string{ToolSearchCompany}, result.ToolsUsed)
	assert.Equal(t, "search", result.Intent)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, ToolSearchCompany, result.ToolCalls[0].Name)
}

func TestRun_ExceedsMaxTurns(t *testing.T) {
	responses := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		responses = append(responses, `{"thought": "still working", "tool_call": {"name": "unknown_tool", "arguments": {}}}`)
	}
	provider := &scriptedProvider{responses: responses}
	orch := NewOrchestrator(provider, &Toolset{}, Config{MaxTurns: 3, MaxToolCalls: 10, Timeout: 10 * time.Second}, arbor.NewLogger())

	_, _, err := orch.Run(context.Background(), "loop forever")
	require.Error(t, err)
}

func TestRun_UnknownToolIsRecordedAsErrorNotAborted(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"thought": "try a bogus tool", "tool_call": {"name": "does_not_exist", "arguments": {}}}`,
		`{"thought": "give up gracefully", "final_answer": "I could not find that."}`,
	}}
	orch := newTestOrchestrator(t, provider, &Toolset{})

	result, messages, err := orch.Run(context.Background(), "do something odd")
	require.NoError(t, err)
	assert.Equal(t, "I could not find that.", result.Answer)

	var sawErrorToolMessage bool
	for _, m := range messages {
		if m.Role == "tool" && strings.Contains(m.Content.Normalize(), "unknown tool") {
			sawErrorToolMessage = true
		}
	}
	assert.True(t, sawErrorToolMessage)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.MaxTurns)
	assert.Equal(t, 15, cfg.MaxToolCalls)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
}
