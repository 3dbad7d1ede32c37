// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run research queries interactively",
	Long: `Repl starts an interactive session. Each line is run as a research
query through the full pipeline; results are printed, saved, and recorded
like single 'research' runs. Exit with 'exit', 'quit', or Ctrl-D.`,
	RunE: runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	a, store, cfg, err := buildAgent(os.Stderr)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	fmt.Println("research-agent interactive session. Type a question, or 'exit' to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nresearch> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		summary, err := a.Run(context.Background(), query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		printSummary(os.Stdout, summary)

		if summary.Metadata.ParseSuccess {
			if path, err := saveSummary(cfg.Agent.OutputDir, "yaml", summary); err == nil {
				fmt.Fprintf(os.Stderr, "Saved to %s\n", path)
			}
		}
	}
	return scanner.Err()
}

func init() {
	rootCmd.AddCommand(replCmd)
}
