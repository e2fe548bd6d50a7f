package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Sandbox  SandboxConfig  `toml:"sandbox"`
	Scoring  ScoringConfig  `toml:"scoring"`
	Research ResearchConfig `toml:"research"`
	LLM      LLMConfig      `toml:"llm"`
	Instance InstanceConfig `toml:"instance"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DatabaseConfig struct {
	// Path is the claims database (themes, claims, traces). Read-write.
	Path string `toml:"path"`
	// TrafficPath is the operational vessel-traffic mirror. Opened read-only;
	// only the sandbox ever touches it.
	TrafficPath string `toml:"traffic_path"`
}

type SandboxConfig struct {
	// RowLimit caps rows returned per query; excess rows are truncated, not an error.
	RowLimit int `toml:"row_limit"`
	// TimeoutSec is the wall-clock budget per query. The in-flight query is
	// cancelled driver-side when it expires.
	TimeoutSec int `toml:"timeout_sec"`
	// QueriesPerSec throttles sandbox executions across all callers.
	QueriesPerSec float64 `toml:"queries_per_sec"`
	QueryBurst    int     `toml:"query_burst"`
}

type ScoringConfig struct {
	ExecutionWeight   float64 `toml:"execution_weight"`
	VolumeWeight      float64 `toml:"volume_weight"`
	VolumeSaturation  int     `toml:"volume_saturation"`
	TruncationPenalty float64 `toml:"truncation_penalty"`
}

type ResearchConfig struct {
	// Workers bounds concurrent claim validations in a bulk run.
	Workers int `toml:"workers"`
	// MaxClaims caps how many claims the generator may seed per research run.
	MaxClaims int `toml:"max_claims"`
}

type LLMConfig struct {
	AnthropicAPIKey string `toml:"anthropic_api_key"`
	OpenAIAPIKey    string `toml:"openai_api_key"`
	Model           string `toml:"model"`
}

type InstanceConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Path:        "data/claims.db",
			TrafficPath: "data/traffic.db",
		},
		Sandbox: SandboxConfig{
			RowLimit:      500,
			TimeoutSec:    30,
			QueriesPerSec: 10,
			QueryBurst:    5,
		},
		Scoring: ScoringConfig{
			ExecutionWeight:   0.4,
			VolumeWeight:      0.6,
			VolumeSaturation:  10,
			TruncationPenalty: 0.15,
		},
		Research: ResearchConfig{
			Workers:   4,
			MaxClaims: 10,
		},
		Instance: InstanceConfig{
			ID:   "local",
			Name: "etsotracker-local",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Sandbox.RowLimit <= 0 {
		return fmt.Errorf("sandbox.row_limit must be positive, got %d", c.Sandbox.RowLimit)
	}
	if c.Sandbox.TimeoutSec <= 0 {
		return fmt.Errorf("sandbox.timeout_sec must be positive, got %d", c.Sandbox.TimeoutSec)
	}
	w := c.Scoring
	if w.ExecutionWeight < 0 || w.VolumeWeight < 0 || w.TruncationPenalty < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if w.VolumeSaturation <= 0 {
		return fmt.Errorf("scoring.volume_saturation must be positive, got %d", w.VolumeSaturation)
	}
	if c.Research.Workers <= 0 {
		return fmt.Errorf("research.workers must be positive, got %d", c.Research.Workers)
	}
	return nil
}
