package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
)

// openAIVisionModelPrefixes are the OpenAI model-name prefixes known to
// accept multimodal image content parts.
var openAIVisionModelPrefixes = []string{"gpt-4o", "gpt-4-turbo", "gpt-4-vision", "gpt-5", "o1", "o3"}

// openAICompatibleProvider implements interfaces.LLMProvider over the
// OpenAI chat-completions wire format. Both the `openai` and `local` vendors
// speak this exact API — `local` just points the client at a different
// base URL and uses a different vision-capability predicate.
type openAICompatibleProvider struct {
	client       *openai.Client
	model        string
	providerName string
	visionCheck  func(model string) bool
	limiter      *rate.Limiter
	maxRetries   int
	logger       arbor.ILogger
}

func newOpenAIProvider(apiKey, model string, maxRetries, rpmLimit int, logger arbor.ILogger) *openAICompatibleProvider {
	return &openAICompatibleProvider{
		client:       openai.NewClient(apiKey),
		model:        model,
		providerName: "openai",
		visionCheck:  hasPrefixAny(openAIVisionModelPrefixes),
		limiter:      newRPMLimiter(rpmLimit),
		maxRetries:   maxRetries,
		logger:       logger,
	}
}

// localModelVisionPrefixes is the fixed set of known multimodal local model
// families spec.md §4.6 calls for ("capability detection ... fixed prefix
// set").
var localModelVisionPrefixes = []string{"llava", "bakllava", "llama3.2-vision", "qwen2-vl", "minicpm-v"}

func newLocalProvider(baseURL, model string, maxRetries, rpmLimit int, logger arbor.ILogger) *openAICompatibleProvider {
	config := openai.DefaultConfig("local")
	config.BaseURL = baseURL
	return &openAICompatibleProvider{
		client:       openai.NewClientWithConfig(config),
		model:        model,
		providerName: "local",
		visionCheck:  hasPrefixAny(localModelVisionPrefixes),
		limiter:      newRPMLimiter(rpmLimit),
		maxRetries:   maxRetries,
		logger:       logger,
	}
}

func hasPrefixAny(prefixes []string) func(string) bool {
	return func(model string) bool {
		m := strings.ToLower(model)
		for _, p := range prefixes {
			if strings.HasPrefix(m, p) {
				return true
			}
		}
		return false
	}
}

func (p *openAICompatibleProvider) ModelName() string    { return p.model }
func (p *openAICompatibleProvider) ProviderName() string { return p.providerName }
func (p *openAICompatibleProvider) SupportsVision() bool { return p.visionCheck(p.model) }

func (p *openAICompatibleProvider) InvokeStructured(ctx context.Context, prompt string, schema map[string]interface{}, out interface{}) error {
	prompt = schemaInstructionPrompt(prompt, schema)
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	text, err := p.complete(ctx, req)
	if err != nil {
		return err
	}
	return decodeStructured(text, out)
}

func (p *openAICompatibleProvider) InvokeVision(ctx context.Context, textPrompt string, imageBytes []byte, mimeType string) (string, error) {
	if !p.SupportsVision() {
		return "", apperrors.UnsupportedVisionError(p.providerName, p.model)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageBytes))
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: textPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	}
	return p.complete(ctx, req)
}

func (p *openAICompatibleProvider) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if err := waitRPMLimiter(ctx, p.limiter); err != nil {
		return "", err
	}

	var resp openai.ChatCompletionResponse
	var apiErr error
	maxRetries := p.maxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, apiErr = p.client.CreateChatCompletion(ctx, req)
		if apiErr == nil {
			break
		}
		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if apperrors.IsRateLimit(apiErr) {
			backoff = DefaultInitialBackoff
		}

		p.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(apiErr).
			Str("provider", p.providerName).Msg("retrying chat-completions call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", apperrors.LLMProviderError(apiErr, fmt.Sprintf("%s call failed after %d retries", p.providerName, maxRetries))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperrors.New(apperrors.KindLLMProvider, fmt.Sprintf("empty response from %s", p.providerName))
	}
	return resp.Choices[0].Message.Content, nil
}
