package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
)

// anthropicVisionModelSubstrings are the Claude model-name fragments known to
// accept image content blocks. Matched as a substring so date-suffixed model
// IDs ("claude-sonnet-4-20250514") still hit.
var anthropicVisionModelSubstrings = []string{"claude-3", "claude-opus-4", "claude-sonnet-4", "claude-haiku-4"}

// anthropicProvider implements interfaces.LLMProvider over the Claude API.
// Claude has no native JSON-schema-constrained output mode, so
// InvokeStructured embeds the schema in the prompt and repairs/parses the
// response text.
type anthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
	limiter   *rate.Limiter
	retry     *GeminiRetryConfig
	logger    arbor.ILogger
}

func newAnthropicProvider(apiKey, model string, maxTokens, rpmLimit int, logger arbor.ILogger) *anthropicProvider {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &anthropicProvider{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		limiter:   newRPMLimiter(rpmLimit),
		retry:     NewDefaultRetryConfig(),
		logger:    logger,
	}
}

func (p *anthropicProvider) ModelName() string    { return p.model }
func (p *anthropicProvider) ProviderName() string { return "anthropic" }

func (p *anthropicProvider) SupportsVision() bool {
	m := strings.ToLower(p.model)
	for _, sub := range anthropicVisionModelSubstrings {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func (p *anthropicProvider) InvokeStructured(ctx context.Context, prompt string, schema map[string]interface{}, out interface{}) error {
	prompt = schemaInstructionPrompt(prompt, schema)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	text, err := p.send(ctx, params)
	if err != nil {
		return err
	}
	return decodeStructured(text, out)
}

func (p *anthropicProvider) InvokeVision(ctx context.Context, textPrompt string, imageBytes []byte, mimeType string) (string, error) {
	if !p.SupportsVision() {
		return "", apperrors.UnsupportedVisionError(p.ProviderName(), p.model)
	}

	imageBlock := anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(imageBytes))
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(imageBlock, anthropic.NewTextBlock(textPrompt)),
		},
	}
	return p.send(ctx, params)
}

func (p *anthropicProvider) send(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	if err := waitRPMLimiter(ctx, p.limiter); err != nil {
		return "", err
	}

	var resp *anthropic.Message
	var apiErr error

	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		resp, apiErr = p.client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}
		if attempt == p.retry.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = p.retry.CalculateBackoff(attempt, 0)
		}

		p.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(apiErr).Msg("retrying claude call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", apperrors.LLMProviderError(apiErr, fmt.Sprintf("claude call failed after %d retries", p.retry.MaxRetries))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", apperrors.New(apperrors.KindLLMProvider, "empty response from claude")
	}
	return text.String(), nil
}

func (p *anthropicProvider) Close() {
	p.client = anthropic.Client{}
}
