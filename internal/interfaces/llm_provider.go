package interfaces

import "context"

// LLMProvider is the provider-agnostic contract over the four vendor
// backends (openai, google, anthropic, local) spec.md §4.6 describes.
// Every structured downstream consumer (IR explorer, PDF vision strategy,
// tool-orchestration agent) goes through this interface rather than a
// vendor SDK directly.
type LLMProvider interface {
	ModelName() string
	ProviderName() string
	SupportsVision() bool

	// InvokeStructured sends prompt and unmarshals the vendor's JSON
	// response into out, which must be a non-nil pointer. schema is the
	// declarative JSON schema describing out's shape, passed to vendors
	// that support native structured-output constraints.
	InvokeStructured(ctx context.Context, prompt string, schema map[string]interface{}, out interface{}) error

	// InvokeVision sends a single image plus a text prompt to a
	// vision-capable model and returns the raw text response. Callers
	// MUST check SupportsVision first; implementations that don't
	// support vision return a typed error instead of silently degrading.
	InvokeVision(ctx context.Context, textPrompt string, imageBytes []byte, mimeType string) (string, error)
}
