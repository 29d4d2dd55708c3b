package wiz

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/grub-wiz/internal/catalog"
	"github.com/oakwood-commons/grub-wiz/internal/cel"
	"github.com/oakwood-commons/grub-wiz/internal/menuentries"
	"github.com/oakwood-commons/grub-wiz/pkg/settings"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// ConfigFileName is looked up in the user's config directory.
const ConfigFileName = "config.yaml"

var configValidate = validator.New()

// DefaultConfigYAML returns a copy of the embedded default config.
func DefaultConfigYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// ThemeColors are lipgloss color strings; empty means the terminal default.
type ThemeColors struct {
	Header   string `yaml:"header"`
	Section  string `yaml:"section"`
	Selected string `yaml:"selected"`
	Changed  string `yaml:"changed"`
	Dim      string `yaml:"dim"`
	Warn     string `yaml:"warn"`
	Status   string `yaml:"status"`
}

// UIConfig drives the terminal surface.
type UIConfig struct {
	Theme       string                 `yaml:"theme" validate:"required"`
	Guide       bool                   `yaml:"guide"`
	TickSeconds int                    `yaml:"tick_seconds" validate:"min=1,max=60"`
	Themes      map[string]ThemeColors `yaml:"themes" validate:"required"`
}

// DiscoveryConfig names the boot menu title supplier.
type DiscoveryConfig struct {
	Mode           string   `yaml:"mode" validate:"oneof=enable disable show"`
	Command        []string `yaml:"command"`
	GrubCfg        string   `yaml:"grub_cfg"`
	TimeoutSeconds int      `yaml:"timeout_seconds" validate:"min=1"`
}

// Source returns the command source when a command is set, else the
// grub.cfg reader.
func (d DiscoveryConfig) Source() menuentries.Source {
	if len(d.Command) > 0 {
		return menuentries.NewCommandSource(d.Command, time.Duration(d.TimeoutSeconds)*time.Second)
	}
	return menuentries.CfgSource{Path: d.GrubCfg}
}

// HiddenConfig seeds the visibility store on first run.
type HiddenConfig struct {
	Params []string `yaml:"params" validate:"dive,startswith=GRUB_"`
}

// Config is the merged application config.
type Config struct {
	UI        UIConfig          `yaml:"ui"`
	Discovery DiscoveryConfig   `yaml:"discovery"`
	Hidden    HiddenConfig      `yaml:"hidden"`
	Catalog   catalog.Overrides `yaml:"catalog"`
	Rules     []cel.Rule        `yaml:"rules" validate:"dive"`

	// Path is the user file merged over the defaults, or "".
	Path string `yaml:"-"`
}

// ThemeColors returns the selected theme, falling back to an empty palette.
func (c *Config) ThemeColors() ThemeColors {
	return c.UI.Themes[c.UI.Theme]
}

// LoadConfig decodes the embedded defaults and then, when path is set, the
// user file over them.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if len(embeddedDefaultConfig) == 0 {
		return nil, fmt.Errorf("embedded default config is empty")
	}
	if err := yaml.Unmarshal(embeddedDefaultConfig, cfg); err != nil {
		return nil, fmt.Errorf("decode default config: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			if err := dec.Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
		cfg.Path = path
	}
	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, ok := cfg.UI.Themes[cfg.UI.Theme]; !ok {
		return nil, fmt.Errorf("invalid config: unknown theme %q", cfg.UI.Theme)
	}
	return cfg, nil
}

// ResolveConfigPath returns explicit if set, else the first existing
// config.yaml under $XDG_CONFIG_HOME/grub-wiz or configDir. An empty result
// means defaults only.
func ResolveConfigPath(explicit, configDir string) string {
	if explicit != "" {
		return explicit
	}
	var candidates []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, settings.CliBinaryName, ConfigFileName))
	}
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, ConfigFileName))
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}
