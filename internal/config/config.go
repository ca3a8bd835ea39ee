// Package config loads the executor's settings from a small yaml file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/execute"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/poll"
)

// Duration is a time.Duration that unmarshals from yaml strings like
// "2s" or "500ms".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML emits the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config drives the executor's backend addressing and pacing.
type Config struct {
	// BaseURL is the backend's HTTP base.
	BaseURL string `yaml:"base_url"`

	// WSURL is the backend's websocket base. Empty means derive it from
	// BaseURL by scheme substitution.
	WSURL string `yaml:"ws_url"`

	// Token is sent as "Authorization: token <t>" when non-empty.
	Token string `yaml:"token"`

	// Transport is the default transport: "poll" or "stream".
	Transport string `yaml:"transport"`

	// PollInterval is the delay between status checks.
	PollInterval Duration `yaml:"poll_interval"`

	// MaxPolls caps status checks per execution.
	MaxPolls int `yaml:"max_polls"`

	// RefetchInterval, when positive, re-sends the streaming fetch on a
	// timer. Zero keeps the reference single-fetch behavior.
	RefetchInterval Duration `yaml:"refetch_interval"`

	// HistoryPath is the sqlite execution log. Empty disables history.
	HistoryPath string `yaml:"history_path"`
}

// Defaults returns a baseline configuration for a local backend.
func Defaults() Config {
	return Config{
		BaseURL:      "http://localhost:8888",
		Transport:    string(execute.TransportPoll),
		PollInterval: Duration(poll.DefaultInterval),
		MaxPolls:     poll.DefaultMaxPolls,
	}
}

// Load reads a yaml config file over the defaults. An empty path means
// no config file: the defaults are returned unchanged. A path that was
// given but cannot be read is an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures the config is usable.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url required")
	}
	if _, err := execute.ParseTransport(c.Transport); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must be >= 0")
	}
	if c.MaxPolls < 0 {
		return fmt.Errorf("max_polls must be >= 0")
	}
	return nil
}
