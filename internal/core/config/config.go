package config

import (
	"time"

	"github.com/vietddude/ledgermirror/internal/core/domain"
	redisclient "github.com/vietddude/ledgermirror/internal/infra/redis"
	"github.com/vietddude/ledgermirror/internal/infra/storage/postgres"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendDiscard  = "discard"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Explorer ExplorerConfig     `yaml:"explorer"`
	Ingest   IngestConfig       `yaml:"ingest"`
	Tokens   []domain.Token     `yaml:"tokens"`
	State    StateConfig        `yaml:"state"`
	Sink     SinkConfig         `yaml:"sink"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Metrics  MetricsConfig      `yaml:"metrics"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ExplorerConfig holds settings for the Etherscan-compatible API.
type ExplorerConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MinInterval time.Duration `yaml:"min_interval"` // fixed gap before every call
	MaxAttempts int           `yaml:"max_attempts"`
}

// IngestConfig bounds the work of one run.
type IngestConfig struct {
	PageSize      int `yaml:"page_size"`
	BatchesPerRun int `yaml:"batches_per_run"`
}

// StateConfig selects where the cursor document lives.
type StateConfig struct {
	Backend string `yaml:"backend"` // file, postgres, redis, memory
	Path    string `yaml:"path"`    // file backend
	Key     string `yaml:"key"`     // postgres row name / redis key
}

// SinkConfig selects where fetched batches are written.
type SinkConfig struct {
	Backend       string `yaml:"backend"` // file, postgres, discard
	Dir           string `yaml:"dir"`
	DropApprovals *bool  `yaml:"drop_approvals"`
	DropFailed    *bool  `yaml:"drop_failed"`
}

// MetricsConfig holds Pushgateway settings. Empty URL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
