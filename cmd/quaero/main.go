// -----------------------------------------------------------------------
// Last Modified: Friday, 8th November 2025 4:00:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/tak-akashi/company-research-agent/internal/common"
	"github.com/tak-akashi/company-research-agent/internal/services/agent"
	"github.com/tak-akashi/company-research-agent/internal/services/cache"
	"github.com/tak-akashi/company-research-agent/internal/services/company"
	"github.com/tak-akashi/company-research-agent/internal/services/filings"
	"github.com/tak-akashi/company-research-agent/internal/services/irexplorer"
	"github.com/tak-akashi/company-research-agent/internal/services/irpipeline"
	"github.com/tak-akashi/company-research-agent/internal/services/irtemplate"
	"github.com/tak-akashi/company-research-agent/internal/services/llm"
	"github.com/tak-akashi/company-research-agent/internal/services/pdfextract"
	"github.com/tak-akashi/company-research-agent/internal/services/substrate"
)

var (
	configFiles []string
	config      *common.Config
	logger      arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "quaero",
	Short:         "Research Japanese listed-company disclosures",
	Long:          "Company Research Agent: search, download, and analyze Japanese corporate disclosure and investor-relations filings via a tool-orchestration agent.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if len(configFiles) == 0 {
			if _, statErr := os.Stat("quaero.toml"); statErr == nil {
				configFiles = append(configFiles, "quaero.toml")
			}
		}
		config, err = common.LoadFromFiles(configFiles...)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = common.SetupLogger(config)
		common.PrintBanner(config, logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times, later files override earlier ones)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// orchestratorDeps is what buildOrchestrator returns: the agent orchestrator
// and the logger it was built with. The individual services it wires are not
// kept.
type orchestratorDeps struct {
	orchestrator *agent.Orchestrator
	logger       arbor.ILogger
}

// buildOrchestrator wires every domain service behind the agent's Toolset,
// following the startup order the teacher's own application bootstrap
// follows: substrate first (everything else fetches through it), then the
// directory/search/cache layers, then the LLM provider, then the IR stack,
// and finally the agent that ties them together.
func buildOrchestrator(ctx context.Context, cfg *common.Config, log arbor.ILogger) (*orchestratorDeps, error) {
	sub := substrate.New(cfg.Scraper, log)

	directory := company.NewDirectory(cfg.Company, sub, log)
	filingClient := filings.NewClient(cfg.Filings, log)
	searchService := filings.NewSearchService(filingClient, log)

	index, err := cache.OpenIndex(cfg.Download.IndexPath, log)
	if err != nil {
		log.Warn().Err(err).Msg("cache index unavailable, falling back to filesystem glob lookups")
		index = nil
	}
	cacheService := cache.NewService(cfg.Download.Root, index, log)

	providerFactory := llm.NewProviderFactory(cfg, log)
	provider, err := providerFactory.CreateProvider(ctx, cfg.LLM.Provider, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	var visionProvider = provider
	if cfg.LLM.VisionProvider != "" {
		visionProvider, err = providerFactory.CreateProvider(ctx, cfg.LLM.VisionProvider, cfg.LLM.VisionModel)
		if err != nil {
			log.Warn().Err(err).Msg("vision provider unavailable, PDF extraction will skip the vision-LLM fallback")
			visionProvider = nil
		}
	}
	extractor := pdfextract.NewExtractor(os.TempDir(), visionProvider, log)

	irEngine, err := irtemplate.NewEngine(cfg.IR.TemplatesDir, nil, cfg.IR.WatchReload, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load IR templates: %w", err)
	}
	irExplorer := irexplorer.NewExplorer(provider, cfg.IR.CompactCapLen, cfg.IR.MaxLinksLLM, log)
	irService := irpipeline.NewService(irEngine, irExplorer, directory, sub, extractor, provider, irpipeline.Config{
		DownloadRoot:  cfg.Download.Root,
		WindowDays:    cfg.IR.WindowDays,
		SummaryCapLen: cfg.IR.SummaryCapLen,
	}, log)

	tools := &agent.Toolset{
		Directory:    directory,
		Search:       searchService,
		FilingClient: filingClient,
		Cache:        cacheService,
		PDF:          extractor,
		IR:           irService,
		Provider:     provider,
		DownloadRoot: cfg.Download.Root,
		Logger:       log,
	}

	orchestrator := agent.NewOrchestrator(provider, tools, agent.DefaultConfig(), log)
	return &orchestratorDeps{orchestrator: orchestrator, logger: log}, nil
}
