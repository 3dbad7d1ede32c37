// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show aggregates over recorded research runs",
	Long: `Metrics reads the run-record database and prints aggregates: run
count, parse success rate, average query time and source counts, total
retries, and per-tool usage. Use --recent to list the latest runs instead.`,
	RunE: runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	store, err := metrics.NewStore(cfg.Metrics)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	recent, _ := cmd.Flags().GetInt("recent")

	if recent > 0 {
		records, err := store.Recent(context.Background(), recent)
		if err != nil {
			return err
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		if len(records) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}
		fmt.Printf("%-20s  %-40s  %-5s  %-7s  %s\n", "Timestamp", "Query", "OK", "Retries", "Seconds")
		fmt.Println(strings.Repeat("-", 85))
		for _, r := range records {
			query := r.Query
			if len(query) > 40 {
				query = query[:37] + "..."
			}
			fmt.Printf("%-20s  %-40s  %-5v  %-7d  %.1f\n",
				r.Timestamp, query, r.ParseSuccess, r.RetryCount, r.QueryTimeSeconds)
		}
		return nil
	}

	sum, err := store.Aggregate(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	if sum.Runs == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("Runs:               %d\n", sum.Runs)
	fmt.Printf("Parse success rate: %.0f%%\n", sum.ParseSuccessRate*100)
	fmt.Printf("Avg query time:     %.1fs\n", sum.AvgQueryTime)
	fmt.Printf("Avg sources found:  %.1f\n", sum.AvgSourcesFound)
	fmt.Printf("Avg sources used:   %.1f\n", sum.AvgSourcesUsed)
	fmt.Printf("Total retries:      %d\n", sum.TotalRetries)

	if len(sum.ToolUsage) > 0 {
		tools := make([]string, 0, len(sum.ToolUsage))
		for t := range sum.ToolUsage {
			tools = append(tools, t)
		}
		sort.Strings(tools)
		fmt.Println("Tool usage:")
		for _, t := range tools {
			fmt.Printf("  %-12s %d\n", t, sum.ToolUsage[t])
		}
	}
	return nil
}

func init() {
	metricsCmd.Flags().Bool("json", false, "output as JSON")
	metricsCmd.Flags().Int("recent", 0, "list the N most recent runs instead of aggregates")

	rootCmd.AddCommand(metricsCmd)
}
