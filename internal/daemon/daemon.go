package daemon

import (
	"context"

	"go.uber.org/zap"

	"github.com/mithrel/ndkbinder/internal/ipc"
	"github.com/mithrel/ndkbinder/internal/wire"
)

// Run hosts the configured objects and serves the debug endpoint until ctx
// is done. The caller controls the lifecycle via ctx.
func Run(ctx context.Context, app *wire.App) error {
	host, err := NewHost(app)
	if err != nil {
		return err
	}
	defer host.Close()

	sock, err := ipc.SocketPath(app.Cfg.GetString("socket_path"))
	if err != nil {
		return err
	}
	app.Log.Info("debug endpoint listening", zap.String("socket", sock))
	return ipc.Serve(ctx, sock, app.Log.Named("ipc"), host.Handle)
}
