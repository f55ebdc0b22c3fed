package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// applyDefaults seeds Viper with defaults defined in GetConfigOptions.
// This centralizes default values and descriptions in one place.
func applyDefaults(v *viper.Viper) {
	for _, o := range GetConfigOptions() {
		v.SetDefault(o.Key, o.Default)
	}
}

// Load resolves configuration with precedence: defaults < file < env.
// The provided Viper instance is mutated with defaults, file contents, and env.
func Load(ctx context.Context, v *viper.Viper) error {
	// If SetConfigFile was provided upstream it takes precedence; these
	// paths are fallbacks.
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "binderctl"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "binderctl"))
		}
		v.AddConfigPath(".")
	}

	applyDefaults(v)

	// A missing file is fine; defaults and env still apply.
	_ = v.ReadInConfig()

	// Environment variables: BINDERCTL_* (highest among these sources)
	v.SetEnvPrefix("binderctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.Set("backend", strings.ToLower(strings.TrimSpace(v.GetString("backend"))))

	// Allow comma-separated env overrides for list options
	for _, key := range []string{"log.outputs", "daemon.objects"} {
		splitListOption(v, key)
	}
	return nil
}

func splitListOption(v *viper.Viper, key string) {
	raw, ok := v.Get(key).(string)
	if !ok {
		return
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	v.Set(key, out)
}

// DefaultConfigPath resolves the standard config.toml location.
func DefaultConfigPath() string {
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, _ := os.UserHomeDir()
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, "binderctl", "config.toml")
}

type ConfigOption struct {
	Key     string
	Default any
	Comment string
}

// GetConfigOptions returns the default configuration options and their meanings.
func GetConfigOptions() []ConfigOption {
	return []ConfigOption{
		{Key: "backend", Default: "loopback", Comment: "Native binder backend: loopback (in-process) or ndk (libbinder_ndk, Android only)"},
		{Key: "socket_path", Default: "", Comment: "Debug endpoint socket; empty uses $XDG_RUNTIME_DIR/binderctl.sock"},

		{Key: "log.level", Default: "info", Comment: "Log level: debug, info, warn, error"},
		{Key: "log.format", Default: "console", Comment: "Log format: console or json"},
		{Key: "log.outputs", Default: []string{"stderr"}, Comment: "Log outputs: stdout, stderr, or file paths"},
		{Key: "log.development", Default: false, Comment: "Development-friendly log output"},

		{Key: "log.rotation.enable", Default: false, Comment: "Rotate file outputs"},
		{Key: "log.rotation.max_size_mb", Default: 50, Comment: "Rotate after this many megabytes"},
		{Key: "log.rotation.max_backups", Default: 3, Comment: "Rotated files to keep"},
		{Key: "log.rotation.max_age_days", Default: 28, Comment: "Days to keep rotated files"},
		{Key: "log.rotation.compress", Default: true, Comment: "Gzip rotated files"},

		{Key: "daemon.descriptor", Default: "com.example.IFoo", Comment: "Interface descriptor of the hosted sample class"},
		{Key: "daemon.objects", Default: []string{"foo"}, Comment: "Names of the objects hosted by serve"},
		{Key: "daemon.thread_pool", Default: 4, Comment: "Binder thread pool size (ndk backend)"},

		{Key: "dump.timeout", Default: "5s", Comment: "Maximum time a dump request may take"},
	}
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Log extracts the log section.
func Log(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:       v.GetString("log.level"),
		Format:      v.GetString("log.format"),
		Outputs:     v.GetStringSlice("log.outputs"),
		Development: v.GetBool("log.development"),
		Rotation: RotationConfig{
			Enable:     v.GetBool("log.rotation.enable"),
			MaxSizeMB:  v.GetInt("log.rotation.max_size_mb"),
			MaxBackups: v.GetInt("log.rotation.max_backups"),
			MaxAgeDays: v.GetInt("log.rotation.max_age_days"),
			Compress:   v.GetBool("log.rotation.compress"),
		},
	}
}
