package transport

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type upper struct{}

func (upper) ProtoTypes() (proto.Message, proto.Message) {
	return &structpb.Struct{}, &structpb.Struct{}
}

func (upper) Handle(_ context.Context, req proto.Message) (proto.Message, error) {
	in := req.(*structpb.Struct)
	name := in.GetFields()["name"].GetStringValue()
	return structpb.NewStruct(map[string]any{"greeting": "hello " + name})
}

func waitForFile(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return os.ErrNotExist
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUnixRoundTrip(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "t.sock")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewUnixServer(UnixListener{Path: sock}, zaptest.NewLogger(t)).Serve(ctx, upper{})
	}()
	require.NoError(t, waitForFile(sock, 2*time.Second))

	req, err := structpb.NewStruct(map[string]any{"name": "binder"})
	require.NoError(t, err)
	var resp structpb.Struct
	require.NoError(t, NewUnixClient(sock).Do(context.Background(), req, &resp))
	assert.Equal(t, "hello binder", resp.GetFields()["greeting"].GetStringValue())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

type noTypes struct{}

func (noTypes) Handle(context.Context, proto.Message) (proto.Message, error) { return nil, nil }

func TestServeRequiresProtoTypes(t *testing.T) {
	err := NewUnixServer(UnixListener{Path: filepath.Join(t.TempDir(), "x.sock")}, nil).Serve(context.Background(), noTypes{})
	require.Error(t, err)
}

func TestFrameLimit(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff, 0x0f}) // varint far above the limit
	err := readProto(&buf, &structpb.Struct{})
	require.ErrorContains(t, err, "message too large")

	buf.Reset()
	msg, err := structpb.NewStruct(map[string]any{"k": "v"})
	require.NoError(t, err)
	require.NoError(t, writeProto(&buf, msg))
	var got structpb.Struct
	require.NoError(t, readProto(&buf, &got))
	assert.True(t, proto.Equal(msg, &got))
}
