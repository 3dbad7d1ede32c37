// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/bench"
)

var benchCmd = &cobra.Command{
	Use:   "bench [query-file]",
	Short: "Replay a YAML query file through the pipeline",
	Long: `Bench loads a YAML file of research queries and runs each one through
the full pipeline, printing per-query outcomes and a pass count. Useful for
checking prompt or configuration changes against a standing set of queries.`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func runBench(cmd *cobra.Command, args []string) error {
	qf, err := bench.ReadQueryFile(args[0])
	if err != nil {
		return err
	}

	a, store, _, err := buildAgent(os.Stderr)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	results, err := bench.Run(context.Background(), a, qf, os.Stdout)
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("out")
	if outPath != "" {
		if err := bench.WriteResults(outPath, results); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Results written to %s\n", outPath)
	}
	return nil
}

func init() {
	benchCmd.Flags().String("out", "", "write per-query results to a YAML file")

	rootCmd.AddCommand(benchCmd)
}
