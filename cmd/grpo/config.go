package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the grpo configuration file (~/.config/grpo/config.yaml).
// Numeric fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	// Loss defaults
	Variant        string   `yaml:"variant"`
	EpsilonLow     *float64 `yaml:"epsilon_low"`
	EpsilonHigh    *float64 `yaml:"epsilon_high"`
	ClipRatio      *float64 `yaml:"clip_ratio"`
	EntropyPercent *float64 `yaml:"entropy_percent"`
	Temperature    *float64 `yaml:"temperature"`

	// Synthetic batch defaults
	ScoreDType string `yaml:"score_dtype"`
	Seed       *int64 `yaml:"seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "grpo", "config.yaml")
}

// applyEvalConfig applies config file defaults to eval command variables
// when the corresponding CLI flag was not explicitly set.
func applyEvalConfig(c *cli.Command, cfg Config) {
	if cfg.Variant != "" && !c.IsSet("variant") {
		variantType = cfg.Variant
	}
	if cfg.EpsilonLow != nil && !c.IsSet("epsilon-low") {
		epsilonLow = *cfg.EpsilonLow
	}
	if cfg.EpsilonHigh != nil && !c.IsSet("epsilon-high") {
		epsilonHigh = *cfg.EpsilonHigh
	}
	if cfg.ClipRatio != nil && !c.IsSet("clip-ratio") {
		clipRatio = *cfg.ClipRatio
	}
	if cfg.EntropyPercent != nil && !c.IsSet("entropy-percent") {
		entropyPercent = *cfg.EntropyPercent
	}
	if cfg.Temperature != nil && !c.IsSet("temp") && !c.IsSet("temperature") && !c.IsSet("t") {
		temperature = *cfg.Temperature
	}
	if cfg.ScoreDType != "" && !c.IsSet("dtype") {
		scoreDType = cfg.ScoreDType
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
