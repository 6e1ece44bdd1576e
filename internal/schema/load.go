package schema

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a configuration document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor infers the format from a file extension.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	}
	return "", false
}

// Load reads, decodes and validates the configuration at path.
func Load(path string) (*Config, error) {
	format, ok := FormatFor(path)
	if !ok {
		return nil, loadError(path, "unsupported config extension %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}
	cfg, err := Parse(data, format)
	if err != nil {
		var le *ConfigLoadError
		if errors.As(err, &le) && le.Path == "" {
			le.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	var err error
	switch format {
	case FormatJSON:
		err = sonic.Unmarshal(data, &cfg)
	case FormatYAML:
		err = yaml.Unmarshal(data, &cfg)
	case FormatTOML:
		if err = toml.Unmarshal(data, &cfg); err == nil {
			cfg.Template = tomlNulls(cfg.Template).(map[string]any)
		}
	default:
		return nil, loadError("", "unsupported format %q", format)
	}
	if err != nil {
		return nil, loadError("", "decode %s: %w", format, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// tomlNulls turns the empty-string defaults of a TOML template into nil.
// TOML has no null, so "" stands in for it.
func tomlNulls(v any) any {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
	case map[string]any:
		for k, inner := range t {
			t[k] = tomlNulls(inner)
		}
	case []any:
		for i, inner := range t {
			t[i] = tomlNulls(inner)
		}
	}
	return v
}

//go:embed default.yaml
var defaultYAML []byte

var defaultConfig = sync.OnceValues(func() (*Config, error) {
	return Parse(defaultYAML, FormatYAML)
})

// Default returns the built-in configuration. The value is shared and must
// not be modified.
func Default() *Config {
	cfg, err := defaultConfig()
	if err != nil {
		panic("resumex: embedded default schema is invalid: " + err.Error())
	}
	return cfg
}

// LoadOrDefault loads path, or returns the built-in configuration when path
// is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// DefaultYAML returns the source of the built-in configuration, useful as a
// starting point for custom schemas.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultYAML))
	copy(out, defaultYAML)
	return out
}
