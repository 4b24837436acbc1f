package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

const (
	DefaultBaseURL       = "https://api.routescan.io/v2/network/mainnet/evm/43114/etherscan/api"
	DefaultPageSize      = 10000
	DefaultBatchesPerRun = 10
	DefaultStatePath     = "state/global_state.json"
	DefaultStateKey      = "global_state"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Explorer.BaseURL == "" {
		c.Explorer.BaseURL = DefaultBaseURL
	}
	if c.Explorer.APIKey == "" {
		c.Explorer.APIKey = os.Getenv("SCAN_API_KEY")
	}
	if c.Explorer.Timeout == 0 {
		c.Explorer.Timeout = 10 * time.Second
	}
	if c.Explorer.MinInterval == 0 {
		c.Explorer.MinInterval = 201 * time.Millisecond
	}
	if c.Explorer.MaxAttempts == 0 {
		c.Explorer.MaxAttempts = 2
	}
	if c.Ingest.PageSize == 0 {
		c.Ingest.PageSize = DefaultPageSize
	}
	if c.Ingest.BatchesPerRun == 0 {
		c.Ingest.BatchesPerRun = DefaultBatchesPerRun
	}
	if c.State.Backend == "" {
		c.State.Backend = BackendFile
	}
	if c.State.Path == "" {
		c.State.Path = DefaultStatePath
	}
	if c.State.Key == "" {
		c.State.Key = DefaultStateKey
	}
	if c.Sink.Backend == "" {
		c.Sink.Backend = BackendFile
	}
	if c.Sink.Dir == "" {
		c.Sink.Dir = "data"
	}
	if c.Sink.DropApprovals == nil {
		v := true
		c.Sink.DropApprovals = &v
	}
	if c.Sink.DropFailed == nil {
		v := true
		c.Sink.DropFailed = &v
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "ledgermirror"
	}
	for i := range c.Tokens {
		c.Tokens[i].Address = domain.NormalizeAddress(c.Tokens[i].Address)
		if c.Tokens[i].Decimals == 0 {
			c.Tokens[i].Decimals = 18
		}
	}
}

// Validate checks settings that would make a run meaningless.
func (c *AppConfig) Validate() error {
	if len(c.Tokens) == 0 {
		return fmt.Errorf("no tokens configured")
	}
	seen := make(map[string]struct{}, len(c.Tokens))
	for _, t := range c.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("token %s has no symbol", t.Address)
		}
		if _, dup := seen[t.Symbol]; dup {
			return fmt.Errorf("duplicate token symbol %s", t.Symbol)
		}
		seen[t.Symbol] = struct{}{}
		if !addressPattern.MatchString(t.Address) {
			return fmt.Errorf("token %s: invalid address %q", t.Symbol, t.Address)
		}
	}
	if c.Ingest.PageSize < 1 || c.Ingest.BatchesPerRun < 1 {
		return fmt.Errorf("page_size and batches_per_run must be positive")
	}
	if c.Explorer.MaxAttempts < 1 {
		return fmt.Errorf("explorer.max_attempts must be positive")
	}

	switch c.State.Backend {
	case BackendFile, BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("state backend postgres requires database.url")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("state backend redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}

	switch c.Sink.Backend {
	case BackendFile, BackendDiscard:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("sink backend postgres requires database.url")
		}
	default:
		return fmt.Errorf("unknown sink backend %q", c.Sink.Backend)
	}
	return nil
}
