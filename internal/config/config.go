// Package config provides configuration loading for dwarfscope.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// DWARFSCOPE_* environment variables, then command-line flags.
package config

import (
	"os"
	"path/filepath"

	"github.com/coral-mesh/dwarfscope/pkg/elf"
)

const (
	// DefaultDir is the directory under the user config dir holding dwarfscope files.
	DefaultDir = "dwarfscope"
	// ConfigFile is the default config file name.
	ConfigFile = "config.yaml"
	// ConfigEnv overrides the config file path.
	ConfigEnv = "DWARFSCOPE_CONFIG"

	// DefaultSymbolCacheEntries bounds the symbolizer cache.
	DefaultSymbolCacheEntries = 4096
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Log output styles.
const (
	LogStyleAuto    = "auto"
	LogStyleConsole = "console"
	LogStyleJSON    = "json"
)

// Config is the complete dwarfscope configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Output     OutputConfig     `yaml:"output"`
	Decode     DecodeConfig     `yaml:"decode"`
	Symbolizer SymbolizerConfig `yaml:"symbolizer"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `yaml:"level" env:"DWARFSCOPE_LOG_LEVEL"`
	// Style is auto, console or json. Auto picks console on a terminal.
	Style string `yaml:"style" env:"DWARFSCOPE_LOG_STYLE"`
}

// OutputConfig controls how command results are rendered.
type OutputConfig struct {
	Format string `yaml:"format" env:"DWARFSCOPE_FORMAT"`
	// NoColor disables styled headers in text output.
	NoColor bool `yaml:"no_color" env:"DWARFSCOPE_NO_COLOR"`
}

// DecodeConfig controls which optional sections are read.
type DecodeConfig struct {
	// MetadataPrefix selects the vendor string sections listed by `metadata`.
	MetadataPrefix string `yaml:"metadata_prefix" env:"DWARFSCOPE_METADATA_PREFIX"`
	// SkipLines leaves .debug_line unread.
	SkipLines bool `yaml:"skip_lines" env:"DWARFSCOPE_SKIP_LINES"`
}

// SymbolizerConfig controls address resolution.
type SymbolizerConfig struct {
	CacheEntries int `yaml:"cache_entries" env:"DWARFSCOPE_SYMBOL_CACHE_ENTRIES"`
	// LoadAddress is where the image was loaded at runtime; zero means
	// addresses are already image-relative.
	LoadAddress uint64 `yaml:"load_address" env:"DWARFSCOPE_LOAD_ADDRESS"`
	// BaseAddress is the link-time address of the first loadable segment.
	BaseAddress uint64 `yaml:"base_address" env:"DWARFSCOPE_BASE_ADDRESS"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "warn",
			Style: LogStyleAuto,
		},
		Output: OutputConfig{
			Format: FormatText,
		},
		Decode: DecodeConfig{
			MetadataPrefix: elf.DefaultMetadataPrefix,
		},
		Symbolizer: SymbolizerConfig{
			CacheEntries: DefaultSymbolCacheEntries,
		},
	}
}

// DefaultConfigPath returns the config file path: $DWARFSCOPE_CONFIG when set,
// otherwise <user config dir>/dwarfscope/config.yaml. It returns "" when no
// config directory can be determined.
func DefaultConfigPath() string {
	if path := os.Getenv(ConfigEnv); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, DefaultDir, ConfigFile)
}
