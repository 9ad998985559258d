package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/interfaces"
)

// Config mirrors the teacher's AgentConfig: turn and tool-call budgets plus
// an overall timeout for one orchestration run.
type Config struct {
	MaxTurns     int
	MaxToolCalls int
	Timeout      time.Duration
}

// DefaultConfig returns the orchestrator's default budgets.
func DefaultConfig() Config {
	return Config{MaxTurns: 10, MaxToolCalls: 15, Timeout: 5 * time.Minute}
}

// Orchestrator binds a chat model (via interfaces.LLMProvider), a tool set,
// and the system prompt into spec.md §4.11's ReAct loop.
type Orchestrator struct {
	provider interfaces.LLMProvider
	tools    *Toolset
	defs     []ToolDefinition
	cfg      Config
	logger   arbor.ILogger
}

// NewOrchestrator wires the agent's collaborators.
func NewOrchestrator(provider interfaces.LLMProvider, tools *Toolset, cfg Config, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{provider: provider, tools: tools, defs: Definitions(), cfg: cfg, logger: logger}
}

// Run starts a fresh conversation with userMessage and runs the ReAct loop
// to completion.
func (o *Orchestrator) Run(ctx context.Context, userMessage string) (Result, []Message, error) {
	messages := []Message{
		{Role: "system", Content: TextContent(buildSystemPrompt(o.defs, o.nowOrZero()))},
		{Role: "user", Content: TextContent(userMessage)},
	}
	return o.RunWithHistory(ctx, messages)
}

// RunWithHistory is the "alternate conversation history" entry point spec.md
// §4.11 describes: it accepts a prior message list (already ending in the
// new user turn, or with one appended by the caller) and runs the loop,
// returning the structured result alongside the updated message list so
// callers can maintain multi-turn state across calls.
func (o *Orchestrator) RunWithHistory(ctx context.Context, messages []Message) (Result, []Message, error) {
	ctx, cancel := context.WithTimeout(ctx, o.effectiveTimeout())
	defer cancel()

	toolCallCount := 0
	for turn := 0; turn < o.effectiveMaxTurns(); turn++ {
		select {
		case <-ctx.Done():
			return Result{}, messages, ctx.Err()
		default:
		}

		prompt := renderTranscript(messages)
		var step nextStep
		if err := o.provider.InvokeStructured(ctx, prompt, nextStepSchema, &step); err != nil {
			return Result{}, messages, apperrors.LLMProviderError(err, "agent step failed")
		}

		if step.ToolCall == nil || step.ToolCall.Name == "" {
			answer := ""
			if step.FinalAnswer != nil {
				answer = *step.FinalAnswer
			} else {
				answer = step.Thought
			}
			messages = append(messages, Message{Role: "assistant", Content: TextContent(answer)})
			return parseResult(messages, answer), messages, nil
		}

		if toolCallCount >= o.effectiveMaxToolCalls() {
			return Result{}, messages, apperrors.New(apperrors.KindAgentTurnLimit, "exceeded maximum tool calls")
		}
		toolCallCount++

		call := ToolCall{ID: uuid.New().String(), Name: step.ToolCall.Name, Arguments: step.ToolCall.Arguments}

		o.logger.Debug().Str("tool", call.Name).Str("thought", step.Thought).Msg("agent requested tool use")

		result := o.tools.Execute(ctx, call)

		messages = append(messages, Message{
			Role:      "assistant",
			Content:   TextContent(step.Thought),
			ToolCalls: []ToolCall{call},
		})
		messages = append(messages, Message{
			Role:       "tool",
			Content:    TextContent(result.Content),
			ToolCallID: call.ID,
		})
	}

	return Result{}, messages, apperrors.AgentTurnLimitError(o.effectiveMaxTurns())
}

func (o *Orchestrator) effectiveMaxTurns() int {
	if o.cfg.MaxTurns > 0 {
		return o.cfg.MaxTurns
	}
	return DefaultConfig().MaxTurns
}

func (o *Orchestrator) effectiveMaxToolCalls() int {
	if o.cfg.MaxToolCalls > 0 {
		return o.cfg.MaxToolCalls
	}
	return DefaultConfig().MaxToolCalls
}

func (o *Orchestrator) effectiveTimeout() time.Duration {
	if o.cfg.Timeout > 0 {
		return o.cfg.Timeout
	}
	return DefaultConfig().Timeout
}

// nowOrZero is a hook point so tests can pin the prompt's date reference;
// production callers get the real clock.
func (o *Orchestrator) nowOrZero() time.Time {
	return time.Now()
}
