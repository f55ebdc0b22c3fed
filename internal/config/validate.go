package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// CheckConfigValidity reports every problem in the resolved configuration at
// once; the returned error lists one problem per line.
func CheckConfigValidity(v *viper.Viper) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	switch b := strings.ToLower(v.GetString("backend")); b {
	case "loopback", "ndk":
	case "":
		add("backend is required")
	default:
		add("backend %q must be loopback or ndk", b)
	}

	if lvl := strings.ToLower(v.GetString("log.level")); lvl != "" && !validLevels[lvl] {
		add("log.level %q is not a known level", lvl)
	}
	switch f := strings.ToLower(v.GetString("log.format")); f {
	case "", "console", "json":
	default:
		add("log.format %q must be console or json", f)
	}
	if len(v.GetStringSlice("log.outputs")) == 0 {
		add("log.outputs must not be empty")
	}
	if v.GetBool("log.rotation.enable") && v.GetInt("log.rotation.max_size_mb") <= 0 {
		add("log.rotation.max_size_mb must be greater than 0")
	}

	desc := v.GetString("daemon.descriptor")
	switch {
	case desc == "":
		add("daemon.descriptor is required")
	case !utf8.ValidString(desc) || strings.IndexByte(desc, 0) >= 0:
		add("daemon.descriptor must be UTF-8 without NUL bytes")
	}
	seen := make(map[string]bool)
	for _, name := range v.GetStringSlice("daemon.objects") {
		if strings.TrimSpace(name) == "" {
			add("daemon.objects contains an empty name")
			continue
		}
		if seen[name] {
			add("daemon.objects has duplicate name %q", name)
		}
		seen[name] = true
	}
	if v.GetInt("daemon.thread_pool") < 0 {
		add("daemon.thread_pool must not be negative")
	}

	if raw := v.GetString("dump.timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			add("dump.timeout %q is not a duration", raw)
		} else if d <= 0 {
			add("dump.timeout must be greater than 0")
		}
	}

	return errors.Join(errs...)
}

// DumpTimeout returns dump.timeout, falling back to five seconds.
func DumpTimeout(v *viper.Viper) time.Duration {
	if d, err := time.ParseDuration(v.GetString("dump.timeout")); err == nil && d > 0 {
		return d
	}
	return 5 * time.Second
}
