package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/apperrors"
	"github.com/tak-akashi/company-research-agent/internal/common"
	"github.com/tak-akashi/company-research-agent/internal/interfaces"
)

// ProviderFactory creates and validates a vendor-specific LLMProvider from
// the single settings object spec.md §4.6 describes (one of openai, google,
// anthropic, local).
type ProviderFactory struct {
	cfg    *common.Config
	logger arbor.ILogger
}

func NewProviderFactory(cfg *common.Config, logger arbor.ILogger) *ProviderFactory {
	return &ProviderFactory{cfg: cfg, logger: logger}
}

// CreateProvider builds the provider for vendor, using model if non-empty or
// the vendor's configured default otherwise. The local backend needs no
// credential; every other vendor requires its <vendor>_api_key.
func (f *ProviderFactory) CreateProvider(ctx context.Context, vendor, model string) (interfaces.LLMProvider, error) {
	switch vendor {
	case "google":
		apiKey, err := common.ResolveAPIKey("google", f.cfg.Google.APIKey)
		if err != nil {
			return nil, apperrors.LLMProviderError(err, "resolve google api key")
		}
		if model == "" {
			model = f.cfg.Google.Model
		}
		return newGoogleProvider(ctx, apiKey, model, f.cfg.LLM.RPMLimit, f.logger)

	case "anthropic":
		apiKey, err := common.ResolveAPIKey("anthropic", f.cfg.Anthropic.APIKey)
		if err != nil {
			return nil, apperrors.LLMProviderError(err, "resolve anthropic api key")
		}
		if model == "" {
			model = f.cfg.Anthropic.Model
		}
		return newAnthropicProvider(apiKey, model, 0, f.cfg.LLM.RPMLimit, f.logger), nil

	case "openai":
		apiKey, err := common.ResolveAPIKey("openai", f.cfg.OpenAI.APIKey)
		if err != nil {
			return nil, apperrors.LLMProviderError(err, "resolve openai api key")
		}
		if model == "" {
			model = f.cfg.OpenAI.Model
		}
		return newOpenAIProvider(apiKey, model, f.cfg.LLM.MaxRetries, f.cfg.LLM.RPMLimit, f.logger), nil

	case "local":
		if err := validateLocalConfig(&f.cfg.Local); err != nil {
			return nil, err
		}
		if model == "" {
			model = f.cfg.Local.Model
		}
		return newLocalProvider(f.cfg.Local.BaseURL, model, f.cfg.LLM.MaxRetries, f.cfg.LLM.RPMLimit, f.logger), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q: must be one of openai, google, anthropic, local", vendor)
	}
}

// validateLocalConfig validates the local-backend configuration. Adapted
// from the teacher's required-fields validate-before-construct shape; unlike
// the teacher's in-process offline model loader, the local vendor here is
// endpoint-based, so only the endpoint and model name are required — no API
// key, matching spec.md §4.6's "the local backend needs none".
func validateLocalConfig(cfg *common.LocalConfig) error {
	if cfg.BaseURL == "" {
		return apperrors.New(apperrors.KindLLMProvider, "local_base_url is required for the local provider")
	}
	if cfg.Model == "" {
		return apperrors.New(apperrors.KindLLMProvider, "model is required for the local provider")
	}
	return nil
}

var (
	defaultProviderMu   sync.Mutex
	defaultProviderInst interfaces.LLMProvider

	visionProviderMu   sync.Mutex
	visionProviderInst interfaces.LLMProvider
)

// DefaultProvider returns the memoized text-path provider, constructing it
// on first use from cfg.LLM.Provider/Model.
func DefaultProvider(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.LLMProvider, error) {
	defaultProviderMu.Lock()
	defer defaultProviderMu.Unlock()
	if defaultProviderInst != nil {
		return defaultProviderInst, nil
	}

	provider, err := NewProviderFactory(cfg, logger).CreateProvider(ctx, cfg.LLM.Provider, cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	defaultProviderInst = provider
	return provider, nil
}

// VisionProvider returns the memoized vision-path provider. It falls back to
// cfg.LLM.Provider/Model when vision_provider/vision_model are unset, and
// raises a typed error if the resolved provider turns out not to support
// vision (rather than letting a later InvokeVision call surface it).
func VisionProvider(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.LLMProvider, error) {
	visionProviderMu.Lock()
	defer visionProviderMu.Unlock()
	if visionProviderInst != nil {
		return visionProviderInst, nil
	}

	vendor := cfg.LLM.VisionProvider
	if vendor == "" {
		vendor = cfg.LLM.Provider
	}
	model := cfg.LLM.VisionModel
	if model == "" {
		model = cfg.LLM.Model
	}

	provider, err := NewProviderFactory(cfg, logger).CreateProvider(ctx, vendor, model)
	if err != nil {
		return nil, err
	}
	if !provider.SupportsVision() {
		return nil, apperrors.UnsupportedVisionError(provider.ProviderName(), provider.ModelName())
	}
	visionProviderInst = provider
	return provider, nil
}

// ResetProviders clears both memoized singletons. Exposed for tests and for
// reconfiguration at runtime (spec.md §4.6's "clear_cache() escape hatch").
func ResetProviders() {
	defaultProviderMu.Lock()
	defaultProviderInst = nil
	defaultProviderMu.Unlock()

	visionProviderMu.Lock()
	visionProviderInst = nil
	visionProviderMu.Unlock()
}
