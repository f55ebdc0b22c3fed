package ipc

import (
	"context"

	"go.uber.org/zap"

	"github.com/mithrel/ndkbinder/internal/ipc/transport"
)

// Serve listens on the Unix socket at path and answers one Message per
// connection until ctx is done.
func Serve(ctx context.Context, path string, log *zap.Logger, handle func(context.Context, Message) Response) error {
	srv := transport.NewUnixServer(transport.UnixListener{Path: path}, log)
	return srv.Serve(ctx, PBHandler(handle))
}
