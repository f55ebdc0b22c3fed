package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigValidityValid(t *testing.T) {
	v := viper.New()
	applyDefaults(v)
	require.NoError(t, CheckConfigValidity(v))
}

func TestCheckConfigValidityInvalid(t *testing.T) {
	v := viper.New()
	v.Set("backend", "kernel")
	v.Set("log.level", "loud")
	v.Set("log.format", "xml")
	v.Set("log.outputs", []string{})
	v.Set("log.rotation.enable", true)
	v.Set("log.rotation.max_size_mb", 0)
	v.Set("daemon.descriptor", "bad\x00desc")
	v.Set("daemon.objects", []string{"foo", "foo", " "})
	v.Set("daemon.thread_pool", -1)
	v.Set("dump.timeout", "soon")

	err := CheckConfigValidity(v)
	require.Error(t, err)

	msg := err.Error()
	expected := []string{
		`backend "kernel" must be loopback or ndk`,
		`log.level "loud" is not a known level`,
		`log.format "xml" must be console or json`,
		"log.outputs must not be empty",
		"log.rotation.max_size_mb must be greater than 0",
		"daemon.descriptor must be UTF-8 without NUL bytes",
		`daemon.objects has duplicate name "foo"`,
		"daemon.objects contains an empty name",
		"daemon.thread_pool must not be negative",
		`dump.timeout "soon" is not a duration`,
	}
	for _, want := range expected {
		assert.Contains(t, msg, want)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("backend = \"ndk\"\n[log]\nlevel = \"debug\"\n"), 0o600))

	t.Setenv("BINDERCTL_LOG_LEVEL", "warn")
	t.Setenv("BINDERCTL_DAEMON_OBJECTS", "a, b,,c")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, Load(context.Background(), v))

	assert.Equal(t, "ndk", v.GetString("backend"), "file overrides default")
	assert.Equal(t, "warn", v.GetString("log.level"), "env overrides file")
	assert.Equal(t, "console", v.GetString("log.format"), "default survives")
	assert.Equal(t, []string{"a", "b", "c"}, v.GetStringSlice("daemon.objects"))
	assert.Equal(t, 5*time.Second, DumpTimeout(v))

	lc := Log(v)
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, []string{"stderr"}, lc.Outputs)
	assert.Equal(t, 50, lc.Rotation.MaxSizeMB)
}

func TestRenderDefaultTOMLRoundTrip(t *testing.T) {
	out := RenderDefaultTOML()
	assert.Contains(t, out, "[log.rotation]\n")
	assert.Contains(t, out, "backend = \"loopback\"")
	assert.Contains(t, out, "objects = [\"foo\"]")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o600))
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, "com.example.IFoo", v.GetString("daemon.descriptor"))
	assert.Equal(t, 28, v.GetInt("log.rotation.max_age_days"))
	require.NoError(t, CheckConfigValidity(v))
}

func TestUpdateTOML(t *testing.T) {
	existing := "backend = \"ndk\"\nlegacy = 1\n[log]\nlevel = \"debug\"\n"
	out, changed := UpdateTOML(existing)
	require.True(t, changed)
	assert.Contains(t, out, "backend = \"ndk\"")
	assert.Contains(t, out, "# OUTDATED: option removed from config schema\n# legacy = 1")
	assert.Contains(t, out, "format = \"console\"")
	assert.NotContains(t, out, "level = \"info\"")

	again, changed := UpdateTOML(out)
	assert.False(t, changed)
	assert.Equal(t, out, again)
}
