package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
)

// googleProvider implements interfaces.LLMProvider over the Gemini API.
// Gemini models are natively multimodal, so SupportsVision is always true.
type googleProvider struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	retry   *GeminiRetryConfig
	logger  arbor.ILogger
}

func newGoogleProvider(ctx context.Context, apiKey, model string, rpmLimit int, logger arbor.ILogger) (*googleProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &googleProvider{
		client:  client,
		model:   model,
		limiter: newRPMLimiter(rpmLimit),
		retry:   NewDefaultRetryConfig(),
		logger:  logger,
	}, nil
}

func (p *googleProvider) ModelName() string    { return p.model }
func (p *googleProvider) ProviderName() string { return "google" }
func (p *googleProvider) SupportsVision() bool { return true }

func (p *googleProvider) InvokeStructured(ctx context.Context, prompt string, schema map[string]interface{}, out interface{}) error {
	config := &genai.GenerateContentConfig{}

	if genaiSchema, err := convertToGenaiSchema(schema); err != nil {
		p.logger.Warn().Err(err).Msg("failed to convert schema to genai schema, falling back to prompt instruction")
		prompt = schemaInstructionPrompt(prompt, schema)
	} else if genaiSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = genaiSchema
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	text, err := p.generate(ctx, contents, config)
	if err != nil {
		return err
	}
	return decodeStructured(text, out)
}

func (p *googleProvider) InvokeVision(ctx context.Context, textPrompt string, imageBytes []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(imageBytes, mimeType),
		genai.NewPartFromText(textPrompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return p.generate(ctx, contents, &genai.GenerateContentConfig{})
}

func (p *googleProvider) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if err := waitRPMLimiter(ctx, p.limiter); err != nil {
		return "", err
	}

	var resp *genai.GenerateContentResponse
	var apiErr error

	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		resp, apiErr = p.client.Models.GenerateContent(ctx, p.model, contents, config)
		if apiErr == nil {
			break
		}
		if attempt == p.retry.MaxRetries {
			break
		}

		apiDelay := ExtractRetryDelay(apiErr)
		backoff := p.retry.CalculateBackoff(attempt, apiDelay)
		if !IsRateLimitError(apiErr) {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		p.logger.Warn().Int("attempt", attempt+1).Dur("backoff", backoff).Err(apiErr).Msg("retrying gemini call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", apperrors.LLMProviderError(apiErr, fmt.Sprintf("gemini call failed after %d retries", p.retry.MaxRetries))
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", apperrors.New(apperrors.KindLLMProvider, "empty response from gemini")
	}

	text := resp.Text()
	if text == "" {
		return "", apperrors.New(apperrors.KindLLMProvider, "empty text in gemini response")
	}
	return text, nil
}

func (p *googleProvider) Close() {
	p.client = nil
}
