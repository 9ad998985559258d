package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a natural language question about a listed company's disclosures",
	Long:  "Runs the tool-orchestration agent against a free-form question, letting it search, download, analyze, summarize, or compare filings and investor-relations documents as needed.",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var queryVerbose bool

func init() {
	queryCmd.Flags().BoolVar(&queryVerbose, "verbose", false, "Print every tool result alongside the final answer")
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := args[0]

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	deps, err := buildOrchestrator(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize research agent: %w", err)
	}

	logger.Info().Str("question", question).Msg("Running research agent")
	result, messages, err := deps.orchestrator.Run(ctx, question)
	if err != nil {
		return fmt.Errorf("agent run failed: %w", err)
	}

	if queryVerbose {
		for _, m := range messages {
			if m.Role == "tool" {
				fmt.Printf("[tool result] %s\n", m.Content.Normalize())
			}
		}
		fmt.Println()
	}

	fmt.Println(result.Answer)

	if len(result.ToolsUsed) > 0 {
		fmt.Printf("\n(intent: %s, tools used: %v)\n", result.Intent, result.ToolsUsed)
	}
	if len(result.Documents) > 0 {
		fmt.Println("\nDocuments touched:")
		for _, doc := range result.Documents {
			fmt.Printf("  - %s (%s, %s)\n", doc.DocID, doc.FilerName, doc.DocTypeCode)
		}
	}

	return nil
}
