// Package config loads connection settings for the jtagvpi CLI from an
// optional YAML file. Flags override anything set here.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/jtagvpi/pkg/vpi"
)

// Config holds connection defaults for the CLI.
type Config struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TimeoutMS int    `yaml:"timeout_ms"`
	// Retries is the number of connect attempts; simulators take a moment
	// to start listening after launch.
	Retries int `yaml:"retries"`
}

// Default returns the settings used when no file or flags are supplied.
func Default() Config {
	return Config{
		Host:      "127.0.0.1",
		Port:      vpi.DefaultPort,
		TimeoutMS: int(vpi.DefaultTimeout / time.Millisecond),
		Retries:   1,
	}
}

// Timeout converts the configured receive deadline to a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Validate checks ranges before anything dials.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("config: host must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range [1, 65535]", c.Port)
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("config: timeout_ms %d must not be negative", c.TimeoutMS)
	}
	if c.Retries < 1 {
		return fmt.Errorf("config: retries %d must be at least 1", c.Retries)
	}
	return nil
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
