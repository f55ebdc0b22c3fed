package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMessageTranslationRoundTrip(t *testing.T) {
	original := Message{
		Name:    CmdObjectTransact,
		Object:  "foo",
		Args:    []string{"-a", "--fail"},
		Code:    2,
		Payload: []byte{0, 1, 0xfe},
	}
	s, err := toStruct(original)
	require.NoError(t, err)
	got, err := fromStruct(s)
	require.NoError(t, err)
	assert.Equal(t, original, got)

	// empty and null payloads stay distinct
	s, err = toStruct(Message{Name: CmdObjectTransact, Payload: []byte{}})
	require.NoError(t, err)
	got, err = fromStruct(s)
	require.NoError(t, err)
	assert.NotNil(t, got.Payload)
	assert.Empty(t, got.Payload)

	s, err = toStruct(Message{Name: CmdObjectsList})
	require.NoError(t, err)
	got, err = fromStruct(s)
	require.NoError(t, err)
	assert.Nil(t, got.Payload)
}

func TestResponseTranslationRoundTrip(t *testing.T) {
	original := Response{
		OK:      false,
		Msg:     "binder: INVALID_OPERATION",
		Status:  -38,
		Output:  "name: foo\n",
		Payload: []byte("oof"),
		Objects: []ObjectInfo{
			{Name: "foo", Descriptor: "com.example.IFoo", Alive: true, Served: 3},
			{Name: "bar", Descriptor: "com.example.IFoo", Remote: true},
		},
	}
	s, err := responseToStruct(original)
	require.NoError(t, err)
	got, err := responseFromStruct(s)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestSocketPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	p, err := SocketPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "binderctl.sock"), p)

	override := filepath.Join(dir, "nested", "custom.sock")
	p, err = SocketPath(override)
	require.NoError(t, err)
	assert.Equal(t, override, p)
	st, err := os.Stat(filepath.Dir(override))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), st.Mode().Perm())
}

func TestServeAndRequest(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ipc.sock")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = Serve(ctx, sock, zaptest.NewLogger(t), func(_ context.Context, m Message) Response {
			if m.Name != CmdObjectTransact {
				return Response{OK: false, Msg: "unknown command"}
			}
			return Response{OK: true, Payload: append([]byte(m.Object+":"), m.Payload...)}
		})
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(sock); err == nil {
			break
		}
		require.True(t, time.Now().Before(deadline), "socket not ready")
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := Request(context.Background(), sock, Message{Name: CmdObjectTransact, Object: "foo", Payload: []byte("ping")})
	require.NoError(t, err)
	require.True(t, resp.OK, resp.Msg)
	assert.Equal(t, "foo:ping", string(resp.Payload))

	resp, err = Request(context.Background(), sock, Message{Name: "nope"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown command", resp.Msg)
}
