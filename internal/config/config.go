// Package config handles configuration loading, validation, and management
// for shiftprompt.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Version is the current configuration schema version.
const Version = 1

// PressPolicy selects which double-press sequences count as a trigger.
type PressPolicy string

const (
	// PolicySameSide requires two rapid presses of the same Shift key.
	PolicySameSide PressPolicy = "same-side"

	// PolicyAnySide accepts two rapid presses of either Shift key.
	PolicyAnySide PressPolicy = "any-side"
)

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" yaml:"version"`

	// Hotkey configures the double-press detector.
	Hotkey HotkeyConfig `toml:"hotkey" yaml:"hotkey"`

	// Inject configures clipboard and paste synthesis.
	Inject InjectConfig `toml:"inject" yaml:"inject"`

	// Picker configures the prompt chooser.
	Picker PickerConfig `toml:"picker" yaml:"picker"`

	// Prompts configures the snippet store.
	Prompts PromptsConfig `toml:"prompts" yaml:"prompts"`

	// History configures the paste-usage store.
	History HistoryConfig `toml:"history" yaml:"history"`

	// Logging configures log output.
	Logging LoggingConfig `toml:"logging" yaml:"logging"`

	// IPC configures the control socket.
	IPC IPCConfig `toml:"ipc" yaml:"ipc"`

	// Notifications configures desktop notifications.
	Notifications NotificationsConfig `toml:"notifications" yaml:"notifications"`
}

// HotkeyConfig holds double-press detection settings.
type HotkeyConfig struct {
	// ThresholdMs is the maximum interval between the two Shift presses.
	ThresholdMs int `toml:"threshold_ms" yaml:"threshold_ms"`

	// Policy is "same-side" or "any-side".
	Policy string `toml:"policy" yaml:"policy"`
}

// Threshold returns the double-press window as a duration.
func (h HotkeyConfig) Threshold() time.Duration {
	return time.Duration(h.ThresholdMs) * time.Millisecond
}

// InjectConfig holds clipboard/paste injection settings.
type InjectConfig struct {
	// SettleMs is the wait after clipboard writes and paste synthesis.
	SettleMs int `toml:"settle_ms" yaml:"settle_ms"`

	// ToolTimeoutMs bounds each external tool invocation.
	ToolTimeoutMs int `toml:"tool_timeout_ms" yaml:"tool_timeout_ms"`

	// RestoreClipboard controls whether the prior clipboard is put back.
	RestoreClipboard bool `toml:"restore_clipboard" yaml:"restore_clipboard"`

	// CopyTool overrides the session-selected clipboard write tool.
	CopyTool string `toml:"copy_tool" yaml:"copy_tool"`

	// ReadTool overrides the session-selected clipboard read tool.
	ReadTool string `toml:"read_tool" yaml:"read_tool"`

	// PasteTool overrides the session-selected paste-synthesis tool.
	PasteTool string `toml:"paste_tool" yaml:"paste_tool"`
}

// Settle returns the settle interval as a duration.
func (i InjectConfig) Settle() time.Duration {
	return time.Duration(i.SettleMs) * time.Millisecond
}

// ToolTimeout returns the per-tool timeout as a duration.
func (i InjectConfig) ToolTimeout() time.Duration {
	return time.Duration(i.ToolTimeoutMs) * time.Millisecond
}

// PickerConfig holds prompt chooser settings.
type PickerConfig struct {
	// Tool overrides the session-selected chooser binary.
	Tool string `toml:"tool" yaml:"tool"`

	// Args are extra arguments passed to the chooser.
	Args []string `toml:"args" yaml:"args"`
}

// PromptsConfig holds snippet store settings.
type PromptsConfig struct {
	// Path is the prompts JSON file location.
	Path string `toml:"path" yaml:"path"`

	// WatchExternalEdits reloads the store when the file changes on disk.
	WatchExternalEdits bool `toml:"watch_external_edits" yaml:"watch_external_edits"`
}

// HistoryConfig holds paste-usage history settings.
type HistoryConfig struct {
	// Enabled toggles history recording.
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// Path is the SQLite database location.
	Path string `toml:"path" yaml:"path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Output string `toml:"output" yaml:"output"`
	Path   string `toml:"path" yaml:"path"`
}

// IPCConfig holds control socket settings.
type IPCConfig struct {
	// SocketPath is the unix socket the daemon listens on.
	SocketPath string `toml:"socket_path" yaml:"socket_path"`
}

// NotificationsConfig holds desktop notification settings.
type NotificationsConfig struct {
	// Enabled toggles org.freedesktop.Notifications diagnostics.
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// ConfigDir returns the shiftprompt configuration directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "shiftprompt")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "shiftprompt")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	if p := os.Getenv("SHIFTPROMPT_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultSocketPath returns the default IPC socket path.
func DefaultSocketPath() string {
	if p := os.Getenv("SHIFTPROMPT_SOCKET"); p != "" {
		return p
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "shiftprompt.sock")
	}
	return filepath.Join(ConfigDir(), "shiftprompt.sock")
}

// Default returns a configuration populated with defaults.
func Default() *Config {
	return &Config{
		Version: Version,
		Hotkey: HotkeyConfig{
			ThresholdMs: 400,
			Policy:      string(PolicySameSide),
		},
		Inject: InjectConfig{
			SettleMs:         150,
			ToolTimeoutMs:    3000,
			RestoreClipboard: true,
		},
		Prompts: PromptsConfig{
			Path:               filepath.Join(ConfigDir(), "prompts.json"),
			WatchExternalEdits: true,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(ConfigDir(), "history.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		IPC: IPCConfig{
			SocketPath: DefaultSocketPath(),
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
	}
}

// Load reads the configuration at path, or defaults when the file is absent.
// An empty path uses ConfigPath(). TOML and YAML are accepted, keyed on the
// file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if p := os.Getenv("SHIFTPROMPT_SOCKET"); p != "" {
		c.IPC.SocketPath = p
	}
	if p := os.Getenv("SHIFTPROMPT_PROMPTS"); p != "" {
		c.Prompts.Path = p
	}
	if lvl := os.Getenv("SHIFTPROMPT_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	var errs []error

	if c.Hotkey.ThresholdMs <= 0 {
		errs = append(errs, errors.New("hotkey.threshold_ms must be positive"))
	}
	if c.Hotkey.ThresholdMs > 5000 {
		errs = append(errs, errors.New("hotkey.threshold_ms must be at most 5000"))
	}
	switch PressPolicy(c.Hotkey.Policy) {
	case PolicySameSide, PolicyAnySide:
	default:
		errs = append(errs, fmt.Errorf("hotkey.policy must be %q or %q", PolicySameSide, PolicyAnySide))
	}

	if c.Inject.SettleMs < 0 {
		errs = append(errs, errors.New("inject.settle_ms must not be negative"))
	}
	if c.Inject.ToolTimeoutMs <= 0 {
		errs = append(errs, errors.New("inject.tool_timeout_ms must be positive"))
	}

	if c.Prompts.Path == "" {
		errs = append(errs, errors.New("prompts.path must not be empty"))
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history.path must not be empty when history is enabled"))
	}
	if c.IPC.SocketPath == "" {
		errs = append(errs, errors.New("ipc.socket_path must not be empty"))
	}

	return errors.Join(errs...)
}

// Save writes the configuration to path as TOML.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, path)
}
