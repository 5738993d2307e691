package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/coral-mesh/dwarfscope/pkg/elf"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(FlagLogLevel, "", "")
	flags.String(FlagFormat, "", "")
	flags.Bool(FlagNoColor, false, "")
	flags.Uint64(FlagLoadAddr, 0, "")
	flags.Uint64(FlagBaseAddr, 0, "")
	return flags
}

func TestLayeredLoader_DefaultsOnly(t *testing.T) {
	loader := NewLayeredLoader()
	loader.DisableLayer(LayerFile)
	loader.DisableLayer(LayerEnv)

	cfg, err := loader.Load("", nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Output.Format != FormatText {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, FormatText)
	}
	if cfg.Decode.MetadataPrefix != elf.DefaultMetadataPrefix {
		t.Errorf("Decode.MetadataPrefix = %q, want %q", cfg.Decode.MetadataPrefix, elf.DefaultMetadataPrefix)
	}
	if cfg.Symbolizer.CacheEntries != DefaultSymbolCacheEntries {
		t.Errorf("Symbolizer.CacheEntries = %d, want %d", cfg.Symbolizer.CacheEntries, DefaultSymbolCacheEntries)
	}
}

func TestLayeredLoader_FileOverridesDefaults(t *testing.T) {
	configPath := writeConfig(t, `
log:
  level: debug
output:
  format: json
symbolizer:
  load_address: 0x7f0000400000
  base_address: 0x400000
`)

	loader := NewLayeredLoader()
	loader.DisableLayer(LayerEnv)

	cfg, err := loader.Load(configPath, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Output.Format != FormatJSON {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, FormatJSON)
	}
	if cfg.Symbolizer.LoadAddress != 0x7f0000400000 {
		t.Errorf("Symbolizer.LoadAddress = 0x%x, want 0x7f0000400000", cfg.Symbolizer.LoadAddress)
	}

	// Verify other defaults are still present
	if cfg.Log.Style != LogStyleAuto {
		t.Errorf("Log.Style = %q, want %q", cfg.Log.Style, LogStyleAuto)
	}
	if cfg.Symbolizer.CacheEntries != DefaultSymbolCacheEntries {
		t.Errorf("Symbolizer.CacheEntries = %d, want %d", cfg.Symbolizer.CacheEntries, DefaultSymbolCacheEntries)
	}
}

func TestLayeredLoader_Precedence(t *testing.T) {
	configPath := writeConfig(t, `
log:
  level: debug
output:
  format: json
`)
	t.Setenv("DWARFSCOPE_LOG_LEVEL", "error")
	t.Setenv("DWARFSCOPE_FORMAT", "csv")

	flags := testFlags()
	if err := flags.Parse([]string{"--format", "text", "--load-address", "0x1000"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLayeredLoader().Load(configPath, flags)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Env overrides file.
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want %q (from env)", cfg.Log.Level, "error")
	}
	// Flags override env.
	if cfg.Output.Format != FormatText {
		t.Errorf("Output.Format = %q, want %q (from flags)", cfg.Output.Format, FormatText)
	}
	if cfg.Symbolizer.LoadAddress != 0x1000 {
		t.Errorf("Symbolizer.LoadAddress = 0x%x, want 0x1000 (from flags)", cfg.Symbolizer.LoadAddress)
	}
	// Unset flags leave earlier layers alone.
	if cfg.Output.NoColor {
		t.Error("Output.NoColor = true, want false")
	}
}

func TestLayeredLoader_NonExistentFile(t *testing.T) {
	loader := NewLayeredLoader()
	loader.DisableLayer(LayerEnv)

	cfg, err := loader.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("Load() should not fail for a missing file: %v", err)
	}
	if cfg.Output.Format != FormatText {
		t.Errorf("Output.Format = %q, want default %q", cfg.Output.Format, FormatText)
	}
}

func TestLayeredLoader_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "log: [unclosed")

	if _, err := NewLayeredLoader().Load(configPath, nil); err == nil {
		t.Error("Load() should fail on invalid YAML")
	}
}

func TestLayeredLoader_RejectsInvalidResult(t *testing.T) {
	configPath := writeConfig(t, "output:\n  format: xml\n")

	loader := NewLayeredLoader()
	loader.DisableLayer(LayerEnv)

	if _, err := loader.Load(configPath, nil); err == nil {
		t.Error("Load() should reject an unsupported output format")
	}
}

func TestLayeredLoader_EnableDisableLayers(t *testing.T) {
	t.Setenv("DWARFSCOPE_FORMAT", "json")

	loader := NewLayeredLoader()
	loader.DisableLayer(LayerEnv)
	cfg, err := loader.Load("", nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Output.Format != FormatText {
		t.Errorf("Output.Format = %q, want %q with env layer disabled", cfg.Output.Format, FormatText)
	}

	loader.EnableLayer(LayerEnv)
	cfg, err = loader.Load("", nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Output.Format != FormatJSON {
		t.Errorf("Output.Format = %q, want %q with env layer enabled", cfg.Output.Format, FormatJSON)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv(ConfigEnv, "/etc/dwarfscope.yaml")
	if got := DefaultConfigPath(); got != "/etc/dwarfscope.yaml" {
		t.Errorf("DefaultConfigPath() = %q, want env override", got)
	}

	t.Setenv(ConfigEnv, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")
	got := DefaultConfigPath()
	if filepath.Base(got) != ConfigFile || filepath.Base(filepath.Dir(got)) != DefaultDir {
		t.Errorf("DefaultConfigPath() = %q, want .../%s/%s", got, DefaultDir, ConfigFile)
	}
}
