package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileConfig is the content of inlay.yaml. Every field is optional; command
// line flags take precedence over it.
type FileConfig struct {
	Vault      string       `yaml:"vault"`
	Adapter    string       `yaml:"adapter" validate:"omitempty,oneof=fs badger"`
	Versioning *bool        `yaml:"versioning"`
	ReadOnly   bool         `yaml:"read_only"`
	SystemDir  string       `yaml:"system_dir" validate:"omitempty,excludes=/"`
	DefaultExt string       `yaml:"default_ext" validate:"omitempty,oneof=md .md json .json yaml .yaml yml .yml"`
	Escape     bool         `yaml:"escape_html"`
	RichImport bool         `yaml:"rich_import"`
	Server     ServerConfig `yaml:"server"`
}

// ServerConfig configures `inlay serve`.
type ServerConfig struct {
	Address     string   `yaml:"address" validate:"omitempty,hostname_port"`
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`
}

// LoadConfig reads and validates the YAML configuration at path. A missing
// file yields a zero FileConfig and no error.
func LoadConfig(path string) (FileConfig, error) {
	var cfg FileConfig
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Options converts the file configuration into functional options.
func (c FileConfig) Options() []Option {
	var opts []Option
	if c.Adapter != "" {
		opts = append(opts, WithAdapter(c.Adapter))
	}
	if c.Versioning != nil {
		opts = append(opts, WithVersioning(*c.Versioning))
	}
	if c.ReadOnly {
		opts = append(opts, WithReadOnly(true))
	}
	if c.SystemDir != "" {
		opts = append(opts, WithSystemDir(c.SystemDir))
	}
	if c.DefaultExt != "" {
		ext := c.DefaultExt
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		opts = append(opts, WithDefaultExt(ext))
	}
	if c.Escape {
		opts = append(opts, WithEscaping(true))
	}
	if c.RichImport {
		opts = append(opts, WithRichImport(true))
	}
	return opts
}
