// Package config loads medflow configuration from a config file and
// MEDFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hupe1980/medflow/registry"
)

// Config holds all settings for the agent fleet and the orchestrators.
type Config struct {
	Host         string         `mapstructure:"host"`
	RegistryPath string         `mapstructure:"registry_path"`
	Ports        map[string]int `mapstructure:"ports"`
	Client       ClientConfig   `mapstructure:"client"`
	Pipeline     PipelineConfig `mapstructure:"pipeline"`
	LLM          LLMConfig      `mapstructure:"llm"`
	Log          LogConfig      `mapstructure:"log"`
}

// ClientConfig tunes outbound agent calls.
type ClientConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// PipelineConfig tunes the orchestrators.
type PipelineConfig struct {
	CheckerAttempts int    `mapstructure:"checker_attempts"`
	MaxChunks       int    `mapstructure:"max_chunks"`
	SummaryStyle    string `mapstructure:"summary_style"`
}

// LLMConfig overrides provider auto-detection.
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// defaultPorts assigns each agent its conventional local port.
var defaultPorts = map[string]int{
	"keyword":             8002,
	"grep":                8003,
	"chunk":               8004,
	"summarize":           8005,
	"simple_orchestrator": 8008,
	"cancer_pipeline":     8009,
	"temporal_tagging":    8010,
	"encounter_grouping":  8011,
	"reconciliation":      8012,
	"summary_extractor":   8013,
	"timeline_builder":    8014,
	"checker":             8015,
	"unified_extractor":   8016,
	"unified_verifier":    8017,
	"narrative_synthesis": 8018,
}

// Load reads configuration from the given file (optional) and the
// environment. A missing config file is not an error; MEDFLOW_* environment
// variables always apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("medflow")
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetDefault("host", "localhost")
	v.SetDefault("registry_path", registry.DefaultPath)
	v.SetDefault("client.timeout", "120s")
	v.SetDefault("client.max_retries", 2)
	v.SetDefault("pipeline.checker_attempts", 3)
	v.SetDefault("pipeline.max_chunks", 10)
	v.SetDefault("pipeline.summary_style", "clinical")
	// Empty defaults so AutomaticEnv picks the keys up during Unmarshal.
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	for name, port := range defaultPorts {
		v.SetDefault("ports."+name, port)
	}

	v.SetEnvPrefix("MEDFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// AgentURL returns the local URL an agent listens on.
func (c *Config) AgentURL(name string) (string, error) {
	port, ok := c.Ports[name]
	if !ok {
		return "", fmt.Errorf("no port configured for agent %q", name)
	}
	return fmt.Sprintf("http://%s:%d", c.Host, port), nil
}

// Registry builds an in-memory registry pointing every configured agent at
// its local URL.
func (c *Config) Registry() *registry.Registry {
	entries := make(map[string]registry.Entry, len(c.Ports))
	for name, port := range c.Ports {
		entries[name] = registry.Entry{
			URL: fmt.Sprintf("http://%s:%d", c.Host, port),
		}
	}
	return registry.New(entries)
}
