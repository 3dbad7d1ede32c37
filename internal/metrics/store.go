// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics persists one record per research run in a SQLite
// database and computes aggregates over them. Recording is advisory:
// a failed write is reported to the caller but must never fail the run
// that produced the record.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-agent/pkg/types"
)

const dbFile = "runs.db"

// Store manages the run-record SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the metrics database at cfg.Dir/runs.db,
// creating the schema if it does not exist.
func NewStore(cfg types.MetricsConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "metrics"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating metrics directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			query_time_seconds REAL NOT NULL,
			sources_found INTEGER NOT NULL,
			sources_used INTEGER NOT NULL,
			tools_used TEXT,
			parse_success INTEGER NOT NULL,
			retry_count INTEGER NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts one run record drawn from a completed summary. Failed
// runs are recorded too; parse_success distinguishes them.
func (s *Store) Record(ctx context.Context, summary *types.ResearchSummary) error {
	md := summary.Metadata
	toolsJSON, _ := json.Marshal(md.ToolsUsed)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, query, query_time_seconds, sources_found, sources_used,
			tools_used, parse_success, retry_count, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), summary.Query, md.QueryTimeSeconds,
		md.SourcesFound, md.SourcesUsed, string(toolsJSON),
		md.ParseSuccess, md.RetryCount, md.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}
	return nil
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID               string   `json:"id" yaml:"id"`
	Query            string   `json:"query" yaml:"query"`
	QueryTimeSeconds float64  `json:"query_time_seconds" yaml:"query_time_seconds"`
	SourcesFound     int      `json:"sources_found" yaml:"sources_found"`
	SourcesUsed      int      `json:"sources_used" yaml:"sources_used"`
	ToolsUsed        []string `json:"tools_used" yaml:"tools_used"`
	ParseSuccess     bool     `json:"parse_success" yaml:"parse_success"`
	RetryCount       int      `json:"retry_count" yaml:"retry_count"`
	Timestamp        string   `json:"timestamp" yaml:"timestamp"`
}

// Recent returns the latest n run records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, query_time_seconds, sources_found, sources_used,
			tools_used, parse_success, retry_count, timestamp
		 FROM runs ORDER BY timestamp DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var toolsJSON string
		if err := rows.Scan(&r.ID, &r.Query, &r.QueryTimeSeconds, &r.SourcesFound,
			&r.SourcesUsed, &toolsJSON, &r.ParseSuccess, &r.RetryCount, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		if toolsJSON != "" {
			json.Unmarshal([]byte(toolsJSON), &r.ToolsUsed)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Summary holds aggregates over all recorded runs.
type Summary struct {
	Runs             int            `json:"runs" yaml:"runs"`
	ParseSuccessRate float64        `json:"parse_success_rate" yaml:"parse_success_rate"`
	AvgQueryTime     float64        `json:"avg_query_time_seconds" yaml:"avg_query_time_seconds"`
	AvgSourcesFound  float64        `json:"avg_sources_found" yaml:"avg_sources_found"`
	AvgSourcesUsed   float64        `json:"avg_sources_used" yaml:"avg_sources_used"`
	TotalRetries     int            `json:"total_retries" yaml:"total_retries"`
	ToolUsage        map[string]int `json:"tool_usage" yaml:"tool_usage"`
}

// Aggregate computes the summary across every run in the store. An
// empty store yields a zero Summary and no error.
func (s *Store) Aggregate(ctx context.Context) (Summary, error) {
	var sum Summary
	var avgTime, avgFound, avgUsed, successRate sql.NullFloat64
	var retries sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(query_time_seconds), AVG(sources_found),
			AVG(sources_used), AVG(parse_success), SUM(retry_count)
		 FROM runs`,
	).Scan(&sum.Runs, &avgTime, &avgFound, &avgUsed, &successRate, &retries)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregating runs: %w", err)
	}

	sum.AvgQueryTime = avgTime.Float64
	sum.AvgSourcesFound = avgFound.Float64
	sum.AvgSourcesUsed = avgUsed.Float64
	sum.ParseSuccessRate = successRate.Float64
	sum.TotalRetries = int(retries.Int64)
	sum.ToolUsage = make(map[string]int)

	rows, err := s.db.QueryContext(ctx, `SELECT tools_used FROM runs`)
	if err != nil {
		return Summary{}, fmt.Errorf("querying tool usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var toolsJSON string
		if err := rows.Scan(&toolsJSON); err != nil {
			return Summary{}, fmt.Errorf("scanning tool usage: %w", err)
		}
		var tools []string
		if toolsJSON == "" || json.Unmarshal([]byte(toolsJSON), &tools) != nil {
			continue
		}
		for _, t := range tools {
			sum.ToolUsage[t]++
		}
	}
	return sum, rows.Err()
}
