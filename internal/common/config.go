package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig   `toml:"logging"`
	Download    DownloadConfig  `toml:"download"`
	IR          IRConfig        `toml:"ir"`
	Company     CompanyConfig   `toml:"company"`
	Scraper     ScraperConfig   `toml:"scraper"`
	Filings     FilingsConfig   `toml:"filings"`
	OpenAI      OpenAIConfig    `toml:"openai"`
	Google      GoogleConfig    `toml:"google"`
	Anthropic   AnthropicConfig `toml:"anthropic"`
	Local       LocalConfig     `toml:"local"`
	LLM         LLMConfig       `toml:"llm"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default: "15:04:05.000"
}

// DownloadConfig controls the on-disk download hierarchy (§6 of SPEC_FULL.md).
type DownloadConfig struct {
	Root      string `toml:"root"`       // download root directory
	IndexPath string `toml:"index_path"` // badger accelerator index directory for the local cache service (§4.10)
}

// IRConfig controls the IR template engine and pipeline.
type IRConfig struct {
	TemplatesDir  string        `toml:"templates_dir"`
	WindowDays    int           `toml:"window_days"`    // default window for fetch_ir_documents's `since` (default 90)
	MaxLinksLLM   int           `toml:"max_links_llm"`  // explorer's max_links
	CompactCapLen int           `toml:"compact_cap_len"` // compact-representation cap (default 15000)
	SummaryCapLen int           `toml:"summary_cap_len"` // PDF/news text cap before summarization (default 30000)
	WatchReload   bool          `toml:"watch_reload"`    // enable fsnotify template hot-reload
	_             time.Duration // placeholder to keep gofmt alignment stable across edits
}

// CompanyConfig controls the company directory cache.
type CompanyConfig struct {
	CacheDir        string `toml:"cache_dir"`
	CodeListURL     string `toml:"code_list_url"`
	TTLDays         int    `toml:"ttl_days"` // default 7
	FuzzyMinScore   int    `toml:"fuzzy_min_score"`
	FuzzyLimit      int    `toml:"fuzzy_limit"`
}

// ScraperConfig controls the HTTP/browser substrate (§4.1).
type ScraperConfig struct {
	UserAgent          string        `toml:"user_agent"`
	MinRequestInterval time.Duration `toml:"min_request_interval"` // per-instance rate limit, default 1s
	RequestTimeout     time.Duration `toml:"request_timeout"`
	JavaScriptWaitTime time.Duration `toml:"javascript_wait_time"`
	MaxBrowserPool     int           `toml:"max_browser_pool"`
	IgnoreRobotsTxt    bool          `toml:"ignore_robots_txt"` // testing only, default false
	Headless           bool          `toml:"headless"`
}

// FilingsConfig controls the Filings API client.
type FilingsConfig struct {
	BaseURL         string        `toml:"base_url"`
	APIKey          string        `toml:"api_key"`
	ListTimeout     time.Duration `toml:"list_timeout"`
	DownloadTimeout time.Duration `toml:"download_timeout"`
}

type OpenAIConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type GoogleConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type AnthropicConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type LocalConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// LLMConfig contains provider-agnostic settings shared across vendors (§4.6).
type LLMConfig struct {
	Provider       string `toml:"provider"`        // one of openai, google, anthropic, local
	Model          string `toml:"model"`           // override default model for `provider`
	VisionProvider string `toml:"vision_provider"` // overrides provider for the vision path
	VisionModel    string `toml:"vision_model"`    // overrides model for the vision path
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	RPMLimit       int    `toml:"rpm_limit"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings are expected in a config file.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05.000",
		},
		Download: DownloadConfig{
			Root:      "./data/downloads",
			IndexPath: "./data/cache-index",
		},
		IR: IRConfig{
			TemplatesDir:  "./ir-templates",
			WindowDays:    90,
			MaxLinksLLM:   10,
			CompactCapLen: 15000,
			SummaryCapLen: 30000,
			WatchReload:   true,
		},
		Company: CompanyConfig{
			CacheDir:      "./data/company-cache",
			CodeListURL:   "https://disclosure2dl.edinet-fsa.go.jp/searchdocument/codelist/Edinetcode.zip",
			TTLDays:       7,
			FuzzyMinScore: 50,
			FuzzyLimit:    10,
		},
		Scraper: ScraperConfig{
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MinRequestInterval: 1 * time.Second,
			RequestTimeout:     30 * time.Second,
			JavaScriptWaitTime: 3 * time.Second,
			MaxBrowserPool:     2,
			IgnoreRobotsTxt:    false,
			Headless:           true,
		},
		Filings: FilingsConfig{
			ListTimeout:     15 * time.Second,
			DownloadTimeout: 60 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Google: GoogleConfig{
			Model: "gemini-2.0-flash",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-haiku-3-5-20241022",
		},
		Local: LocalConfig{
			BaseURL: "http://localhost:11434/v1",
		},
		LLM: LLMConfig{
			Provider:       "google",
			TimeoutSeconds: 60,
			MaxRetries:     3,
			RPMLimit:       15,
		},
	}
}

// LoadFromFile loads configuration with priority (lowest to highest): default -> file -> env vars, including values loaded from .env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple TOML files, merged in order, then
// applies `.env` values and environment-variable overrides (highest priority).
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// .env is loaded before file/env overrides so exported shell vars still win.
	_ = godotenv.Load()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies CRA_*-prefixed environment variable overrides to config.
// This is the highest-priority layer (env > file > default).
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CRA_ENV"); env != "" {
		config.Environment = env
	}

	if v := os.Getenv("CRA_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("CRA_LOG_OUTPUT"); v != "" {
		config.Logging.Output = strings.Split(v, ",")
	}

	if v := os.Getenv("CRA_DOWNLOAD_DIR"); v != "" {
		config.Download.Root = v
	}
	if v := os.Getenv("CRA_CACHE_INDEX_PATH"); v != "" {
		config.Download.IndexPath = v
	}
	if v := os.Getenv("CRA_TEMPLATES_DIR"); v != "" {
		config.IR.TemplatesDir = v
	}
	if v := os.Getenv("CRA_CACHE_TTL_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Company.TTLDays = n
		}
	}

	if v := os.Getenv("CRA_SCRAPER_MIN_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Scraper.MinRequestInterval = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("CRA_SCRAPER_IGNORE_ROBOTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Scraper.IgnoreRobotsTxt = b
		}
	}

	if v := os.Getenv("CRA_FILINGS_API_KEY"); v != "" {
		config.Filings.APIKey = v
	}

	if v := os.Getenv("CRA_OPENAI_API_KEY"); v != "" {
		config.OpenAI.APIKey = v
	}
	if v := os.Getenv("CRA_GOOGLE_API_KEY"); v != "" {
		config.Google.APIKey = v
	}
	if v := os.Getenv("CRA_ANTHROPIC_API_KEY"); v != "" {
		config.Anthropic.APIKey = v
	} else if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		// Standard SDK env var honored as a fallback, matching vendor convention.
		config.Anthropic.APIKey = v
	}
	if v := os.Getenv("CRA_LOCAL_BASE_URL"); v != "" {
		config.Local.BaseURL = v
	}

	if v := os.Getenv("CRA_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("CRA_LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("CRA_LLM_VISION_PROVIDER"); v != "" {
		config.LLM.VisionProvider = v
	}
	if v := os.Getenv("CRA_LLM_VISION_MODEL"); v != "" {
		config.LLM.VisionModel = v
	}
	if v := os.Getenv("CRA_LLM_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.LLM.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("CRA_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.LLM.MaxRetries = n
		}
	}
	if v := os.Getenv("CRA_LLM_RPM_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.LLM.RPMLimit = n
		}
	}
}

// ResolveAPIKey returns the supplied config value for a vendor (which already
// reflects any CRA_<VENDOR>_API_KEY override applied by applyEnvOverrides), or
// an error if it is empty; it does not read the environment itself.
func ResolveAPIKey(vendor string, configFallback string) (string, error) {
	if configFallback != "" {
		return configFallback, nil
	}
	return "", fmt.Errorf("API key for vendor %q not configured (set CRA_%s_API_KEY or the config file)", vendor, strings.ToUpper(vendor))
}

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepCloneConfig creates a deep copy of the Config struct, preventing
// shared-slice mutation across callers (e.g. test fixtures).
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Logging.Output = append([]string(nil), c.Logging.Output...)
	return &clone
}
