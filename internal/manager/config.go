package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hoppxi/wilux/internal/logging"
	"github.com/hoppxi/wilux/pkg/displayinfo"
	"github.com/hoppxi/wilux/pkg/operation"
	"github.com/spf13/viper"
)

type DiscoverySettings struct {
	Command       string   `mapstructure:"command" yaml:"command"`
	Args          []string `mapstructure:"args" yaml:"args"`
	Policy        string   `mapstructure:"policy" yaml:"policy"`
	Fallback      []string `mapstructure:"fallback" yaml:"fallback"`
	ProbeInternal bool     `mapstructure:"probe_internal" yaml:"probe_internal"`
}

type InternalSettings struct {
	Command string `mapstructure:"command" yaml:"command"`
}

type ExternalSettings struct {
	Command      string `mapstructure:"command" yaml:"command"`
	Feature      string `mapstructure:"feature" yaml:"feature"`
	AddressOnSet bool   `mapstructure:"address_on_set" yaml:"address_on_set"`
}

type LogSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

type NotifySettings struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type Settings struct {
	Discovery DiscoverySettings `mapstructure:"discovery" yaml:"discovery"`
	Internal  InternalSettings  `mapstructure:"internal" yaml:"internal"`
	External  ExternalSettings  `mapstructure:"external" yaml:"external"`
	Timeout   time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	Log       LogSettings       `mapstructure:"log" yaml:"log"`
	Notify    NotifySettings    `mapstructure:"notify" yaml:"notify"`
}

func DefaultSettings() Settings {
	return Settings{
		Discovery: DiscoverySettings{
			Command:  "xrandr",
			Args:     []string{"--query"},
			Policy:   string(displayinfo.PolicyStrict),
			Fallback: []string{"eDP-1", "HDMI-1"},
		},
		Internal: InternalSettings{Command: "brightnessctl"},
		External: ExternalSettings{Command: "ddcutil", Feature: "10"},
		Timeout:  5 * time.Second,
		Log:      LogSettings{Level: "info", Format: "console"},
	}
}

func (s Settings) Validate() error {
	switch displayinfo.Policy(s.Discovery.Policy) {
	case displayinfo.PolicyStrict, displayinfo.PolicyFallback:
	default:
		return fmt.Errorf("discovery.policy must be %q or %q, got %q",
			displayinfo.PolicyStrict, displayinfo.PolicyFallback, s.Discovery.Policy)
	}
	if s.Discovery.Command == "" || s.Internal.Command == "" || s.External.Command == "" {
		return errors.New("discovery, internal and external commands must be set")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	return nil
}

func (s Settings) Enumerator() displayinfo.EnumeratorConfig {
	return displayinfo.EnumeratorConfig{
		Command:       s.Discovery.Command,
		Args:          s.Discovery.Args,
		Policy:        displayinfo.Policy(s.Discovery.Policy),
		Fallback:      s.Discovery.Fallback,
		ProbeInternal: s.Discovery.ProbeInternal,
		ProbeCommand:  s.Internal.Command,
	}
}

func (s Settings) Display() operation.DisplayConfig {
	return operation.DisplayConfig{
		InternalCommand: s.Internal.Command,
		ExternalCommand: s.External.Command,
		Feature:         s.External.Feature,
		AddressOnSet:    s.External.AddressOnSet,
		Timeout:         s.Timeout,
	}
}

func (s Settings) Logging() logging.Options {
	return logging.Options{Level: s.Log.Level, Format: s.Log.Format, File: s.Log.File}
}

func ConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "wilux")
	}
	return filepath.Join(configDir, "wilux")
}

func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "wilux.yaml")
}

type ConfigManager struct {
	mu sync.Mutex
	v  *viper.Viper
}

// Config is backed by the global viper instance so cobra flags bound in
// internal/cmd apply to it.
var Config = &ConfigManager{v: viper.GetViper()}

func NewConfigManager(v *viper.Viper) *ConfigManager {
	return &ConfigManager{v: v}
}

func setDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("discovery.command", d.Discovery.Command)
	v.SetDefault("discovery.args", d.Discovery.Args)
	v.SetDefault("discovery.policy", d.Discovery.Policy)
	v.SetDefault("discovery.fallback", d.Discovery.Fallback)
	v.SetDefault("discovery.probe_internal", d.Discovery.ProbeInternal)
	v.SetDefault("internal.command", d.Internal.Command)
	v.SetDefault("external.command", d.External.Command)
	v.SetDefault("external.feature", d.External.Feature)
	v.SetDefault("external.address_on_set", d.External.AddressOnSet)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("notify.enabled", d.Notify.Enabled)
}

// Load reads path (or the default config path when empty). A missing file
// is not an error; defaults and WILUX_* environment variables still apply.
func (c *ConfigManager) Load(path string) (Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	setDefaults(c.v)
	c.v.SetEnvPrefix("wilux")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	if path == "" {
		path = DefaultConfigPath()
	}
	c.v.SetConfigFile(path)
	c.v.SetConfigType("yaml")

	if err := c.v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return Settings{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return c.decode()
}

func (c *ConfigManager) decode() (Settings, error) {
	var s Settings
	if err := c.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Watch calls onChange with freshly decoded settings whenever the config
// file changes. Invalid edits are reported through onError and ignored.
func (c *ConfigManager) Watch(onChange func(Settings), onError func(error)) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.mu.Lock()
		s, err := c.decode()
		c.mu.Unlock()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(s)
	})
	c.v.WatchConfig()
}
