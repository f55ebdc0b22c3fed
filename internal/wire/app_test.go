package wire

import (
	"context"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/ndkbinder/internal/config"
	"github.com/mithrel/ndkbinder/internal/ndk"
)

func newViper(t *testing.T, backend string) *viper.Viper {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	v := viper.New()
	require.NoError(t, config.Load(context.Background(), v))
	v.Set("backend", backend)
	v.Set("log.outputs", []string{"stderr"})
	v.Set("log.level", "error")
	return v
}

func TestBuildAppLoopback(t *testing.T) {
	app, err := BuildApp(context.Background(), newViper(t, "loopback"))
	require.NoError(t, err)
	defer app.Close()
	require.NotNil(t, app.Loopback)
	assert.Same(t, app.Loopback, app.Native)
}

func TestBuildAppNDKUnavailable(t *testing.T) {
	if runtime.GOOS == "android" {
		t.Skip("real backend present")
	}
	_, err := BuildApp(context.Background(), newViper(t, "ndk"))
	require.ErrorIs(t, err, ndk.ErrUnavailable)
}

func TestBuildAppUnknownBackend(t *testing.T) {
	_, err := BuildApp(context.Background(), newViper(t, "kernel"))
	require.ErrorContains(t, err, `unknown backend "kernel"`)
}
