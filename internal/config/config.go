// Package config loads render presets for the crossfeed command from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	crossfeed "github.com/tphakala/go-audio-crossfeed"
	"github.com/tphakala/go-audio-crossfeed/internal/pipeline"
	"github.com/tphakala/go-audio-crossfeed/internal/wavout"
)

// Defaults applied before the file and environment are read.
const (
	DefaultChunkFrames = pipeline.DefaultChunkFrames
	DefaultDrainMode   = "exact"
	DefaultLogLevel    = "info"
	DefaultBitDepth    = wavout.BitDepth24

	maxChunkFrames = 1 << 20
)

// Environment variables that override file values.
const (
	EnvImpulseA    = "CROSSFEED_IMPULSE_A"
	EnvImpulseB    = "CROSSFEED_IMPULSE_B"
	EnvChunkFrames = "CROSSFEED_CHUNK_FRAMES"
	EnvLogLevel    = "CROSSFEED_LOG_LEVEL"
	EnvDrainMode   = "CROSSFEED_DRAIN_MODE"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is a render preset.
type Config struct {
	ImpulseA    string `yaml:"impulse_a"`    // Impulse for the left speaker position.
	ImpulseB    string `yaml:"impulse_b"`    // Impulse for the right speaker position.
	ChunkFrames int    `yaml:"chunk_frames"` // Frames read per pipeline step.
	DrainMode   string `yaml:"drain_mode"`   // "exact" or "full".
	LogLevel    string `yaml:"log_level"`    // logrus level name.
	BitDepth    int    `yaml:"bit_depth"`    // Output WAV bit depth.
}

// Default returns a preset with built-in defaults and no impulses.
func Default() *Config {
	return &Config{
		ChunkFrames: DefaultChunkFrames,
		DrainMode:   DefaultDrainMode,
		LogLevel:    DefaultLogLevel,
		BitDepth:    DefaultBitDepth,
	}
}

// Load reads the preset at path over the defaults, then applies environment
// overrides. An empty path skips the file. Impulse paths are not required
// here since flags may still supply them; call Validate once they are final.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks a complete preset.
func (c *Config) Validate() error {
	if c.ImpulseA == "" || c.ImpulseB == "" {
		return fmt.Errorf("%w: both impulse_a and impulse_b are required", ErrInvalid)
	}
	if c.ChunkFrames <= 0 || c.ChunkFrames > maxChunkFrames {
		return fmt.Errorf("%w: chunk_frames %d out of range (1..%d)", ErrInvalid, c.ChunkFrames, maxChunkFrames)
	}
	if _, err := crossfeed.ParseDrainMode(c.DrainMode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.BitDepth {
	case wavout.BitDepth16, wavout.BitDepth24, wavout.BitDepth32:
	default:
		return fmt.Errorf("%w: bit_depth %d (want 16, 24 or 32)", ErrInvalid, c.BitDepth)
	}
	return nil
}

// Drain returns the parsed drain mode. Call after Validate.
func (c *Config) Drain() crossfeed.DrainMode {
	mode, _ := crossfeed.ParseDrainMode(c.DrainMode)
	return mode
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func (c *Config) applyEnvOverrides() error {
	log := logrus.WithField("component", "config")

	if val, ok := os.LookupEnv(EnvImpulseA); ok {
		c.ImpulseA = val
		log.WithField("impulse_a", val).Debug("impulse_a overridden from environment")
	}
	if val, ok := os.LookupEnv(EnvImpulseB); ok {
		c.ImpulseB = val
		log.WithField("impulse_b", val).Debug("impulse_b overridden from environment")
	}
	if val, ok := os.LookupEnv(EnvChunkFrames); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvChunkFrames, val, err)
		}
		c.ChunkFrames = n
		log.WithField("chunk_frames", n).Debug("chunk_frames overridden from environment")
	}
	if val, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = val
		log.WithField("log_level", val).Debug("log_level overridden from environment")
	}
	if val, ok := os.LookupEnv(EnvDrainMode); ok {
		c.DrainMode = val
		log.WithField("drain_mode", val).Debug("drain_mode overridden from environment")
	}
	return nil
}
