// Package config holds the immutable configuration record a VAE is built from.
//
// Files are YAML (JSON is accepted as well, being a YAML subset):
//
//	in_channels: 3
//	channels: [32, 64, 128, 256]
//	norm: batch
//	w_kl: 0.0005
//	norm_groups: 8      # optional
//	init: default       # optional, default | xavier | xavier_uniform
//	seed: 42            # optional, 0 draws a seed from the clock
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/vae3d/internal/nn"
)

// MinStages and MaxStages bound len(Channels). The upper bound is one more
// than the length of the fixed transition stride table.
const (
	MinStages = 3
	MaxStages = 7
)

// Config is the VAE configuration record.
//
// Treat a Config as read-only once a model has been built from it; the model
// keeps its own copy of Channels.
type Config struct {
	InChannels int     `yaml:"in_channels"`
	Channels   []int   `yaml:"channels"`
	Norm       string  `yaml:"norm"`
	KLWeight   float64 `yaml:"w_kl"`

	NormGroups   int     `yaml:"norm_groups,omitempty"`
	NormEps      float64 `yaml:"norm_eps,omitempty"`
	NormMomentum float64 `yaml:"norm_momentum,omitempty"`
	Init         string  `yaml:"init,omitempty"`
	Seed         uint64  `yaml:"seed,omitempty"`
}

// Default returns a small, valid configuration: three input channels, four
// stages and batch normalization.
func Default() Config {
	return Config{
		InChannels:   3,
		Channels:     []int{16, 32, 64, 64},
		Norm:         "batch",
		KLWeight:     5e-4,
		NormGroups:   8,
		NormEps:      1e-5,
		NormMomentum: 0.1,
		Init:         "default",
	}
}

// fileConfig mirrors Config with pointers for the required keys so a missing
// key can be told apart from a zero value.
type fileConfig struct {
	InChannels *int     `yaml:"in_channels"`
	Channels   []int    `yaml:"channels"`
	Norm       *string  `yaml:"norm"`
	KLWeight   *float64 `yaml:"w_kl"`

	NormGroups   *int     `yaml:"norm_groups"`
	NormEps      *float64 `yaml:"norm_eps"`
	NormMomentum *float64 `yaml:"norm_momentum"`
	Init         *string  `yaml:"init"`
	Seed         *uint64  `yaml:"seed"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document. Unknown keys are
// rejected. Optional keys left out take the values of Default.
func Parse(data []byte) (Config, error) {
	var raw fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, invalid("in_channels", "missing required key")
		}
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch {
	case raw.InChannels == nil:
		return Config{}, invalid("in_channels", "missing required key")
	case raw.Channels == nil:
		return Config{}, invalid("channels", "missing required key")
	case raw.Norm == nil:
		return Config{}, invalid("norm", "missing required key")
	case raw.KLWeight == nil:
		return Config{}, invalid("w_kl", "missing required key")
	}

	cfg := Default()
	cfg.InChannels = *raw.InChannels
	cfg.Channels = raw.Channels
	cfg.Norm = *raw.Norm
	cfg.KLWeight = *raw.KLWeight
	if raw.NormGroups != nil {
		cfg.NormGroups = *raw.NormGroups
	}
	if raw.NormEps != nil {
		cfg.NormEps = *raw.NormEps
	}
	if raw.NormMomentum != nil {
		cfg.NormMomentum = *raw.NormMomentum
	}
	if raw.Init != nil {
		cfg.Init = *raw.Init
	}
	if raw.Seed != nil {
		cfg.Seed = *raw.Seed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the built-in normalizations.
func (c Config) Validate() error {
	return c.ValidateWith(nn.IsBuiltinNorm)
}

// ValidateWith checks cfg, resolving the norm identifier with knownNorm.
// The returned error is a *ConfigError.
func (c Config) ValidateWith(knownNorm func(string) bool) error {
	if c.InChannels <= 0 {
		return invalid("in_channels", "must be positive, got %d", c.InChannels)
	}
	if n := len(c.Channels); n < MinStages || n > MaxStages {
		return invalid("channels", "need between %d and %d entries, got %d", MinStages, MaxStages, n)
	}
	for i, ch := range c.Channels {
		if ch <= 0 {
			return invalid("channels", "entry %d must be positive, got %d", i, ch)
		}
	}
	if c.Norm == "" {
		return invalid("norm", "must not be empty")
	}
	if knownNorm != nil && !knownNorm(c.Norm) {
		return invalid("norm", "unknown normalization %q", c.Norm)
	}
	if math.IsNaN(c.KLWeight) || math.IsInf(c.KLWeight, 0) || c.KLWeight < 0 {
		return invalid("w_kl", "must be a finite non-negative number, got %v", c.KLWeight)
	}
	if c.NormGroups < 0 {
		return invalid("norm_groups", "must not be negative, got %d", c.NormGroups)
	}
	if c.NormEps < 0 || math.IsNaN(c.NormEps) {
		return invalid("norm_eps", "must not be negative, got %v", c.NormEps)
	}
	if c.NormMomentum < 0 || c.NormMomentum > 1 || math.IsNaN(c.NormMomentum) {
		return invalid("norm_momentum", "must be in [0, 1], got %v", c.NormMomentum)
	}
	if _, ok := nn.InitByName(c.Init); !ok {
		return invalid("init", "unknown initializer %q", c.Init)
	}
	return nil
}

// NormConfig returns the normalization hyperparameters, substituting the
// defaults for zero values.
func (c Config) NormConfig() nn.NormConfig {
	cfg := nn.DefaultNormConfig()
	if c.NormGroups > 0 {
		cfg.Groups = c.NormGroups
	}
	if c.NormEps > 0 {
		cfg.Eps = float32(c.NormEps)
	}
	if c.NormMomentum > 0 {
		cfg.Momentum = float32(c.NormMomentum)
	}
	return cfg
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	c.Channels = slices.Clone(c.Channels)
	return c
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
