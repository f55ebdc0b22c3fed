package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/ndkbinder/internal/config"
	"github.com/mithrel/ndkbinder/internal/daemon"
	"github.com/mithrel/ndkbinder/internal/wire"
	"github.com/mithrel/ndkbinder/pkg/binder"
)

// isolate points every config and runtime location at temp dirs.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(tmp, "run"))
	t.Setenv("BINDERCTL_LOG_LEVEL", "error")
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "run"), 0o700))
	return tmp
}

// startTestDaemon runs the daemon in-process and returns its socket path.
func startTestDaemon(t *testing.T, objects ...string) string {
	t.Helper()
	v := viper.New()
	require.NoError(t, config.Load(context.Background(), v))
	v.Set("daemon.objects", objects)
	app, err := wire.BuildApp(context.Background(), v)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = daemon.Run(ctx, app)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	sock := filepath.Join(os.Getenv("XDG_RUNTIME_DIR"), "binderctl.sock")
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(sock); err == nil {
			break
		}
		require.True(t, time.Now().Before(deadline), "socket not ready: %s", sock)
		time.Sleep(10 * time.Millisecond)
	}
	return sock
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEchoCommand(t *testing.T) {
	isolate(t)
	out, err := run(t, "echo", "hello", "--name", "cli", "--dump")
	require.NoError(t, err, out)
	assert.Contains(t, out, "echo: hello\n")
	assert.Contains(t, out, "reverse: olleh\n")
	assert.Contains(t, out, "count: 3\n")
	assert.Contains(t, out, "name: cli\ntransactions: 3\n")
}

func TestDaemonCommands(t *testing.T) {
	isolate(t)
	startTestDaemon(t, "foo", "bar")

	out, err := run(t, "transact", "foo", "1", "ping")
	require.NoError(t, err, out)
	assert.Equal(t, "ping\n", out)

	out, err = run(t, "transact", "foo", "2", "--hex", "010203", "--hex-out")
	require.NoError(t, err, out)
	assert.Equal(t, "030201\n", out)

	out, err = run(t, "objects")
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "DESCRIPTOR")
	assert.Contains(t, lines[1], "bar")
	assert.Contains(t, lines[2], "foo")
	assert.Contains(t, lines[2], "com.example.IFoo")

	out, err = run(t, "classes")
	require.NoError(t, err, out)
	assert.Equal(t, "com.example.IFoo\tbar,foo\n", out)

	out, err = run(t, "dump", "foo", "--", "-a")
	require.NoError(t, err, out)
	assert.Equal(t, "descriptor: com.example.IFoo\nname: foo\ntransactions: 2\nargs: -a\n", out)

	out, err = run(t, "dump", "foo", "--", "--fail")
	require.ErrorIs(t, err, binder.StatusInvalidOperation)
	assert.Contains(t, out, "name: foo\n")

	_, err = run(t, "transact", "foo", "99")
	require.ErrorIs(t, err, binder.StatusUnknownTransaction)

	_, err = run(t, "dump", "nobody")
	require.ErrorContains(t, err, `no object named "nobody"`)
}

func TestConfigGenerateCheckShow(t *testing.T) {
	tmp := isolate(t)
	path := filepath.Join(tmp, "config.toml")

	out, err := run(t, "config", "generate", "-o", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Wrote "+path)

	_, err = run(t, "config", "generate", "-o", path)
	require.ErrorContains(t, err, "config already exists")

	out, err = run(t, "--config", path, "config", "generate", "-o", path, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Config already up to date")

	out, err = run(t, "--config", path, "config", "check")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Config OK ("+path+")")

	out, err = run(t, "--config", path, "--socket", "/tmp/x.sock", "config", "show")
	require.NoError(t, err, out)
	assert.Contains(t, out, "socket_path = /tmp/x.sock\n")
	assert.Contains(t, out, "daemon.descriptor = com.example.IFoo\n")

	require.NoError(t, os.WriteFile(path, []byte("backend = \"kernel\"\n"), 0o600))
	_, err = run(t, "--config", path, "config", "check")
	require.ErrorContains(t, err, `backend "kernel" must be loopback or ndk`)
}

func TestRootFlagsOverrideConfig(t *testing.T) {
	isolate(t)
	t.Setenv("BINDERCTL_LOG_LEVEL", "warn")
	out, err := run(t, "--backend", " NDK ", "--log-level", "DEBUG", "--socket", "/tmp/b.sock", "config", "show")
	require.NoError(t, err, out)
	assert.Contains(t, out, "backend = ndk\n")
	assert.Contains(t, out, "log.level = debug\n")
	assert.Contains(t, out, "socket_path = /tmp/b.sock\n")

	out, err = run(t, "config", "show")
	require.NoError(t, err, out)
	assert.Contains(t, out, "backend = loopback\n")
	assert.Contains(t, out, "log.level = warn\n")
}

func TestUnknownBackendFailsWiring(t *testing.T) {
	isolate(t)
	_, err := run(t, "--backend", "kernel", "echo")
	require.ErrorContains(t, err, `unknown backend "kernel"`)
}

func TestRankNames(t *testing.T) {
	names := []string{"audio", "camera", "sensors"}
	assert.Equal(t, names, rankNames("", names, 5))
	assert.Equal(t, []string{"camera"}, rankNames("cam", names, 5))
	assert.Empty(t, rankNames("zz", names, 5))
}
