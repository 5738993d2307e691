package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/dwarfscope/internal/safe"
)

// Layer represents a configuration layer source.
type Layer string

const (
	// LayerDefaults represents default configuration values.
	LayerDefaults Layer = "defaults"

	// LayerFile represents configuration from a file.
	LayerFile Layer = "file"

	// LayerEnv represents configuration from environment variables.
	LayerEnv Layer = "env"

	// LayerFlags represents configuration from command-line flags.
	LayerFlags Layer = "flags"
)

// Flag names bound by the flags layer.
const (
	FlagLogLevel = "log-level"
	FlagFormat   = "format"
	FlagNoColor  = "no-color"
	FlagLoadAddr = "load-address"
	FlagBaseAddr = "base-address"
)

// LayeredLoader provides layered configuration loading.
// Configuration is loaded in the following order:
// 1. Defaults - hardcoded default values
// 2. File - configuration file (YAML)
// 3. Environment - environment variables
// 4. Flags - command-line flags that were explicitly set
//
// Each layer overrides values from previous layers.
type LayeredLoader struct {
	enabledLayers map[Layer]bool
}

// NewLayeredLoader creates a new layered configuration loader with every
// layer enabled.
func NewLayeredLoader() *LayeredLoader {
	return &LayeredLoader{
		enabledLayers: map[Layer]bool{
			LayerDefaults: true,
			LayerFile:     true,
			LayerEnv:      true,
			LayerFlags:    true,
		},
	}
}

// EnableLayer enables a specific configuration layer.
func (l *LayeredLoader) EnableLayer(layer Layer) {
	l.enabledLayers[layer] = true
}

// DisableLayer disables a specific configuration layer.
func (l *LayeredLoader) DisableLayer(layer Layer) {
	l.enabledLayers[layer] = false
}

// Load builds a configuration from every enabled layer and validates it.
// A missing config file is skipped; flags may be nil.
func (l *LayeredLoader) Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	var cfg *Config

	// Layer 1: Defaults
	if l.enabledLayers[LayerDefaults] {
		cfg = DefaultConfig()
	} else {
		cfg = &Config{}
	}

	// Layer 2: File
	if l.enabledLayers[LayerFile] && configPath != "" {
		if err := l.mergeFromFile(cfg, configPath); err != nil {
			// If file doesn't exist, it's not an error - just skip this layer
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	// Layer 3: Environment
	if l.enabledLayers[LayerEnv] {
		if err := LoadFromEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	// Layer 4: Flags
	if l.enabledLayers[LayerFlags] && flags != nil {
		if err := mergeFromFlags(cfg, flags); err != nil {
			return nil, fmt.Errorf("failed to load config from flags: %w", err)
		}
	}

	if err := l.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFromFile loads configuration from a YAML file and merges it into cfg.
func (l *LayeredLoader) mergeFromFile(cfg interface{}, filePath string) error {
	data, err := safe.ReadFile(filePath, &safe.ReadOptions{AllowSymlinks: true})
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// mergeFromFlags copies explicitly set flags into cfg. Flags the set does not
// define are ignored.
func mergeFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed(FlagLogLevel) {
		if cfg.Log.Level, err = flags.GetString(FlagLogLevel); err != nil {
			return err
		}
	}
	if changed(FlagFormat) {
		if cfg.Output.Format, err = flags.GetString(FlagFormat); err != nil {
			return err
		}
	}
	if changed(FlagNoColor) {
		if cfg.Output.NoColor, err = flags.GetBool(FlagNoColor); err != nil {
			return err
		}
	}
	if changed(FlagLoadAddr) {
		if cfg.Symbolizer.LoadAddress, err = flags.GetUint64(FlagLoadAddr); err != nil {
			return err
		}
	}
	if changed(FlagBaseAddr) {
		if cfg.Symbolizer.BaseAddress, err = flags.GetUint64(FlagBaseAddr); err != nil {
			return err
		}
	}
	return nil
}

// ValidateConfig validates a configuration and returns detailed errors.
func (l *LayeredLoader) ValidateConfig(cfg Validator) error {
	return cfg.Validate()
}
