// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var researchCmd = &cobra.Command{
	Use:   "research [query...]",
	Short: "Run one research query end to end",
	Long: `Research runs a single query through the full pipeline: concurrent
search across the enabled tools, model-driven filtering, synthesis, and
schema validation. A validated summary is printed and saved to the output
directory; the run is recorded in the metrics database either way.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("empty query")
	}

	a, store, cfg, err := buildAgent(os.Stderr)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	summary, err := a.Run(context.Background(), query)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		printSummary(os.Stdout, summary)
	}

	noSave, _ := cmd.Flags().GetBool("no-save")
	if !noSave && summary.Metadata.ParseSuccess {
		format, _ := cmd.Flags().GetString("format")
		path, err := saveSummary(cfg.Agent.OutputDir, format, summary)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: saving summary failed: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Saved to %s\n", path)
		}
	}

	if !summary.Metadata.ParseSuccess {
		return fmt.Errorf("research did not produce a validated summary")
	}
	return nil
}

func init() {
	researchCmd.Flags().Bool("json", false, "print the summary as JSON instead of formatted text")
	researchCmd.Flags().Bool("no-save", false, "do not save the summary to the output directory")
	researchCmd.Flags().String("format", "yaml", "saved output format: yaml or json")

	rootCmd.AddCommand(researchCmd)
}
