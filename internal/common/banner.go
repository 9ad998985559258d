package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner.
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	build := GetBuild()

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("COMPANY RESEARCH AGENT")
	b.PrintCenteredText("Japanese Corporate Disclosure Research")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 18)
	b.PrintKeyValue("Build", build, 18)
	b.PrintKeyValue("Environment", config.Environment, 18)
	b.PrintKeyValue("LLM Provider", config.LLM.Provider, 18)
	b.PrintKeyValue("Download Root", config.Download.Root, 18)
	b.PrintKeyValue("IR Templates", config.IR.TemplatesDir, 18)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("environment", config.Environment).
		Str("llm_provider", config.LLM.Provider).
		Msg("Application started")

	printCapabilities(config, logger)
	fmt.Printf("\n")
}

// printCapabilities displays the system capabilities.
func printCapabilities(config *Config, logger arbor.ILogger) {
	fmt.Printf("Enabled Features:\n")
	fmt.Printf("   - Filings search and document retrieval\n")
	fmt.Printf("   - IR site scraping (template engine + LLM fallback explorer)\n")
	fmt.Printf("   - PDF extraction (native / OCR / vision-LLM fallback chain)\n")
	fmt.Printf("   - Tool-orchestration research agent\n")
	fmt.Printf("   - LLM provider: %s (vision: %s)\n", config.LLM.Provider, effectiveVisionProvider(config))

	logger.Info().
		Str("llm_provider", config.LLM.Provider).
		Str("vision_provider", effectiveVisionProvider(config)).
		Int("scraper_pool_size", config.Scraper.MaxBrowserPool).
		Msg("System capabilities")
}

func effectiveVisionProvider(config *Config) string {
	if config.LLM.VisionProvider != "" {
		return config.LLM.VisionProvider
	}
	return config.LLM.Provider
}

// PrintShutdownBanner displays the application shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("COMPANY RESEARCH AGENT")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("Application shutting down")
}

// PrintColorizedMessage prints a message in the specified color. It does not log; the logger argument is not used.
func PrintColorizedMessage(color, message string, logger arbor.ILogger) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints a success message in green and logs it.
func PrintSuccess(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("[ok] %s", message), logger)
	logger.Info().Str("type", "success").Msg(message)
}

// PrintError prints an error message in red and logs it.
func PrintError(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("[error] %s", message), logger)
	logger.Error().Str("type", "error").Msg(message)
}

// PrintWarning prints a warning message in yellow and logs it.
func PrintWarning(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("[warn] %s", message), logger)
	logger.Warn().Str("type", "warning").Msg(message)
}

// PrintInfo prints an info message in cyan and logs it.
func PrintInfo(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorCyan, fmt.Sprintf("[info] %s", message), logger)
	logger.Info().Str("type", "info").Msg(message)
}
