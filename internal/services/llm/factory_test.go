package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/common"
)

func localOnlyConfig(baseURL string) *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Local.BaseURL = baseURL
	cfg.Local.Model = "llava-v1.5"
	cfg.LLM.Provider = "local"
	cfg.LLM.Model = ""
	return cfg
}

func TestValidateLocalConfig_RequiresBaseURLAndModel(t *testing.T) {
	require.Error(t, validateLocalConfig(&common.LocalConfig{}))
	require.Error(t, validateLocalConfig(&common.LocalConfig{BaseURL: "http://x"}))
	require.NoError(t, validateLocalConfig(&common.LocalConfig{BaseURL: "http://x", Model: "llava-v1.5"}))
}

func TestCreateProvider_UnknownVendorReturnsError(t *testing.T) {
	f := NewProviderFactory(common.NewDefaultConfig(), arbor.NewLogger())
	_, err := f.CreateProvider(context.Background(), "unknown-vendor", "")
	require.Error(t, err)
}

func TestCreateProvider_LocalUsesConfiguredModelWhenOverrideEmpty(t *testing.T) {
	cfg := localOnlyConfig("http://127.0.0.1:1")
	f := NewProviderFactory(cfg, arbor.NewLogger())
	provider, err := f.CreateProvider(context.Background(), "local", "")
	require.NoError(t, err)
	assert.Equal(t, "llava-v1.5", provider.ModelName())
	assert.Equal(t, "local", provider.ProviderName())
}

func TestDefaultProvider_MemoizesAcrossCalls(t *testing.T) {
	defer ResetProviders()
	cfg := localOnlyConfig("http://127.0.0.1:1")

	first, err := DefaultProvider(context.Background(), cfg, arbor.NewLogger())
	require.NoError(t, err)
	second, err := DefaultProvider(context.Background(), cfg, arbor.NewLogger())
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestResetProviders_ClearsMemoizedSingletons(t *testing.T) {
	defer ResetProviders()
	cfg := localOnlyConfig("http://127.0.0.1:1")

	first, err := DefaultProvider(context.Background(), cfg, arbor.NewLogger())
	require.NoError(t, err)

	ResetProviders()

	second, err := DefaultProvider(context.Background(), cfg, arbor.NewLogger())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestVisionProvider_FallsBackToDefaultProviderAndModel(t *testing.T) {
	defer ResetProviders()
	cfg := localOnlyConfig("http://127.0.0.1:1")

	provider, err := VisionProvider(context.Background(), cfg, arbor.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, "llava-v1.5", provider.ModelName())
	assert.True(t, provider.SupportsVision())
}

func TestVisionProvider_RejectsNonVisionCapableModel(t *testing.T) {
	defer ResetProviders()
	cfg := localOnlyConfig("http://127.0.0.1:1")
	cfg.Local.Model = "mistral-7b"

	_, err := VisionProvider(context.Background(), cfg, arbor.NewLogger())
	require.Error(t, err)
}
