package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "30s" or
// "2m" instead of raw nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// OpenAIConfig configures the external AI classification service.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// AgentConfig configures the background prescription scanner.
type AgentConfig struct {
	// PollInterval is the idle time between scan cycles.
	PollInterval Duration `yaml:"poll_interval"`
	// ClassifyTimeout bounds a single call to the AI service.
	ClassifyTimeout Duration `yaml:"classify_timeout"`
	// CheckpointPath is where the last-scanned timestamp is persisted.
	CheckpointPath string `yaml:"checkpoint_path"`
}

// NotifyConfig configures the optional doctor notification webhook.
type NotifyConfig struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// Config is the full application configuration. Values come from an
// optional YAML file and are overridden by environment variables.
type Config struct {
	ListenAddr  string       `yaml:"listen_addr"`
	DatabaseURL string       `yaml:"database_url"`
	OpenAI      OpenAIConfig `yaml:"openai"`
	Agent       AgentConfig  `yaml:"agent"`
	Notify      NotifyConfig `yaml:"notify"`
}

func (c *Config) defaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Agent.PollInterval <= 0 {
		c.Agent.PollInterval = Duration(30 * time.Second)
	}
	if c.Agent.ClassifyTimeout <= 0 {
		c.Agent.ClassifyTimeout = Duration(15 * time.Second)
	}
	if c.Agent.CheckpointPath == "" {
		c.Agent.CheckpointPath = ".last_prescription_scan"
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = Duration(10 * time.Second)
	}
}

// Load reads the configuration file at path (skipped when path is empty or
// the file does not exist), applies environment overrides, and fills in
// defaults. DATABASE_URL is the only required setting.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	cfg.overrideFromEnv()
	cfg.defaults()
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url (or DATABASE_URL) must be set")
	}
	return &cfg, nil
}

func (c *Config) overrideFromEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.ListenAddr = ":" + v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv("NOTIFY_URL"); v != "" {
		c.Notify.URL = v
	}
	if v := os.Getenv("CHECKPOINT_PATH"); v != "" {
		c.Agent.CheckpointPath = v
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Agent.PollInterval = Duration(parsed)
		}
	}
	if v := os.Getenv("CLASSIFY_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Agent.ClassifyTimeout = Duration(parsed)
		}
	}
}
