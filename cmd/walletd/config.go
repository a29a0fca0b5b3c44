// config.go - Configuration management for the wallet node
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration
type Config struct {
	// HTTP surface
	ListenAddr string `yaml:"listen_addr"`

	// File paths
	LedgerPath     string `yaml:"ledger_path"`
	ProvingKeyPath string `yaml:"proving_key_path"`
	VerifyKeyPath  string `yaml:"verify_key_path"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "console" or "json"

	// Proving
	ProverEnabled    bool `yaml:"prover_enabled"`
	ProverQueueSize  int  `yaml:"prover_queue_size"`
	ShutdownTimeoutS int  `yaml:"shutdown_timeout_seconds"`

	// Rate limiting (per identity)
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       ":8288",
		LedgerPath:       "data/ledger.json",
		ProvingKeyPath:   "keys/transition_pk.bin",
		VerifyKeyPath:    "keys/transition_vk.bin",
		LogLevel:         "info",
		LogFormat:        "console",
		ProverEnabled:    true,
		ProverQueueSize:  64,
		ShutdownTimeoutS: 30,
		RateRPS:          5,
		RateBurst:        10,
	}
}

// LoadConfig loads configuration from file or creates the default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		config := DefaultConfig()
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return config, nil
	}

	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("ledger_path must be set")
	}
	if c.ProverEnabled {
		if c.ProvingKeyPath == "" || c.VerifyKeyPath == "" {
			return fmt.Errorf("proving_key_path and verify_key_path must be set when the prover is enabled")
		}
		if c.ProverQueueSize <= 0 {
			return fmt.Errorf("prover_queue_size must be positive")
		}
	}
	if c.ShutdownTimeoutS <= 0 {
		return fmt.Errorf("shutdown_timeout_seconds must be positive")
	}
	if c.RateRPS < 0 || c.RateBurst < 0 {
		return fmt.Errorf("rate_rps and rate_burst must not be negative")
	}
	return nil
}
