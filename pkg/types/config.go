package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-agent/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ToolConfig holds settings for the tool adapter layer.
type ToolConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of results requested per tool
	// (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnableDuckDuckGo controls whether the DuckDuckGo tool is used.
	EnableDuckDuckGo bool `json:"enable_duckduckgo" yaml:"enable_duckduckgo"`

	// EnableWikipedia controls whether the Wikipedia tool is used.
	EnableWikipedia bool `json:"enable_wikipedia" yaml:"enable_wikipedia"`

	// EnableArxiv controls whether the arXiv tool is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// ScrapeURLs lists seed pages the scraper tool fetches for every
	// query. An empty list disables the scraper.
	ScrapeURLs []string `json:"scrape_urls" yaml:"scrape_urls"`

	// RatePerSecond caps outbound requests per tool so concurrent runs
	// do not overwhelm a single source (default 2).
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`

	// MaxRetries is the per-tool retry attempt count for failed network
	// calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the base duration for exponential backoff between
	// tool retries; it doubles each attempt (default 2s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`
}

// ModelConfig holds settings for the generative-model collaborator.
type ModelConfig struct {
	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the model API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens is the response token limit (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// AgentConfig holds settings for the orchestration pipeline.
type AgentConfig struct {
	// MaxValidationRetries bounds the validate→synthesize retry loop
	// (default 2). A run that exhausts this count terminates as failed.
	MaxValidationRetries int `json:"max_validation_retries" yaml:"max_validation_retries"`

	// MaxCandidates caps the filtered candidate set passed to synthesis
	// (default 5).
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// RunTimeout bounds total wall-clock time per run; on expiry the run
	// terminates as failed (default 3m).
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout"`

	// OutputDir is the directory validated summaries are saved to
	// (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// MetricsConfig holds settings for the run-record sink.
type MetricsConfig struct {
	// Dir is the directory the metrics database lives in (default "metrics").
	Dir string `json:"dir" yaml:"dir"`
}

// Config groups all component configurations.
type Config struct {
	Tools   ToolConfig    `json:"tools" yaml:"tools"`
	Model   ModelConfig   `json:"model" yaml:"model"`
	Agent   AgentConfig   `json:"agent" yaml:"agent"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// ApplyDefaults fills zero-valued fields with documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Tools.Timeout <= 0 {
		c.Tools.Timeout = 15 * time.Second
	}
	if c.Tools.UserAgent == "" {
		c.Tools.UserAgent = "research-agent/0.1"
	}
	if c.Tools.MaxResults <= 0 {
		c.Tools.MaxResults = 5
	}
	if c.Tools.RatePerSecond <= 0 {
		c.Tools.RatePerSecond = 2
	}
	if c.Tools.MaxRetries <= 0 {
		c.Tools.MaxRetries = 3
	}
	if c.Tools.RetryBaseDelay <= 0 {
		c.Tools.RetryBaseDelay = 2 * time.Second
	}
	if c.Model.MaxTokens <= 0 {
		c.Model.MaxTokens = 4096
	}
	if c.Agent.MaxValidationRetries <= 0 {
		c.Agent.MaxValidationRetries = 2
	}
	if c.Agent.MaxCandidates <= 0 {
		c.Agent.MaxCandidates = 5
	}
	if c.Agent.RunTimeout <= 0 {
		c.Agent.RunTimeout = 3 * time.Minute
	}
	if c.Agent.OutputDir == "" {
		c.Agent.OutputDir = "output"
	}
	if c.Metrics.Dir == "" {
		c.Metrics.Dir = "metrics"
	}
}
