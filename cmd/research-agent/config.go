// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/viper"

	"github.com/pdiddy/research-agent/internal/agent"
	"github.com/pdiddy/research-agent/internal/metrics"
	"github.com/pdiddy/research-agent/internal/model"
	"github.com/pdiddy/research-agent/internal/tools"
	"github.com/pdiddy/research-agent/pkg/types"
)

// loadConfig assembles the full configuration from the viper config
// file, environment, and defaults.
func loadConfig() types.Config {
	var cfg types.Config

	cfg.Tools.Timeout = viper.GetDuration("tools.timeout")
	cfg.Tools.UserAgent = viper.GetString("tools.user_agent")
	cfg.Tools.MaxResults = viper.GetInt("tools.max_results")
	cfg.Tools.EnableDuckDuckGo = viper.GetBool("tools.enable_duckduckgo")
	cfg.Tools.EnableWikipedia = viper.GetBool("tools.enable_wikipedia")
	cfg.Tools.EnableArxiv = viper.GetBool("tools.enable_arxiv")
	cfg.Tools.ScrapeURLs = viper.GetStringSlice("tools.scrape_urls")
	cfg.Tools.RatePerSecond = viper.GetFloat64("tools.rate_per_second")
	cfg.Tools.MaxRetries = viper.GetInt("tools.max_retries")
	cfg.Tools.RetryBaseDelay = viper.GetDuration("tools.retry_base_delay")

	cfg.Model.Model = viper.GetString("model.model")
	cfg.Model.APIKey = viper.GetString("model.api_key")
	cfg.Model.MaxTokens = viper.GetInt("model.max_tokens")

	cfg.Agent.MaxValidationRetries = viper.GetInt("agent.max_validation_retries")
	cfg.Agent.MaxCandidates = viper.GetInt("agent.max_candidates")
	cfg.Agent.RunTimeout = viper.GetDuration("agent.run_timeout")
	cfg.Agent.OutputDir = viper.GetString("agent.output_dir")

	cfg.Metrics.Dir = viper.GetString("metrics.dir")

	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = loadedSecrets["anthropic-api-key"]
	}
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	cfg.ApplyDefaults()

	// Polite scraping: identify a contact address when one is configured.
	if email := loadedSecrets["scraper-contact-email"]; email != "" {
		cfg.Tools.UserAgent += " (mailto:" + email + ")"
	}
	return cfg
}

// buildAgent constructs the agent and its collaborators from the
// loaded configuration. Progress output goes to w. The returned store
// is the agent's run recorder; the caller closes it. It may be nil if
// the metrics database could not be opened — runs still work.
func buildAgent(w io.Writer) (*agent.Agent, *metrics.Store, types.Config, error) {
	cfg := loadConfig()
	if cfg.Model.APIKey == "" {
		return nil, nil, cfg, fmt.Errorf("no model API key: set model.api_key, ANTHROPIC_API_KEY, or .secrets/anthropic-api-key")
	}

	client := &http.Client{Timeout: cfg.Tools.Timeout}
	ts := tools.New(cfg.Tools, client)
	if len(ts) == 0 {
		return nil, nil, cfg, fmt.Errorf("no tools enabled: enable at least one of duckduckgo, wikipedia, arxiv, or configure scrape_urls")
	}

	backend := &model.ClaudeBackend{
		Config: cfg.Model,
		// Synthesis replies take longer than search requests.
		Client: &http.Client{Timeout: cfg.Agent.RunTimeout},
	}

	a := agent.New(backend, ts, tools.NewLimiter(cfg.Tools.RatePerSecond), cfg, w)

	store, err := metrics.NewStore(cfg.Metrics)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: metrics unavailable: %v\n", err)
	} else {
		a.Recorder = store
	}
	return a, store, cfg, nil
}
