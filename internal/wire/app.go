package wire

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mithrel/ndkbinder/internal/config"
	"github.com/mithrel/ndkbinder/internal/loopback"
	"github.com/mithrel/ndkbinder/internal/ndk"
	"github.com/mithrel/ndkbinder/internal/observability"
	"github.com/mithrel/ndkbinder/pkg/binder"
)

// App aggregates the major services for easy injection.
type App struct {
	Cfg    *viper.Viper
	Log    *zap.Logger
	Native binder.Native
	// Loopback is set when the in-process backend is in use.
	Loopback *loopback.Runtime
}

// BuildApp wires dependencies with the provided config. The binder package
// logger is replaced as a side effect.
func BuildApp(ctx context.Context, v *viper.Viper) (*App, error) {
	logger, err := observability.SetupLogger(config.Log(v))
	if err != nil {
		return nil, err
	}
	binder.SetLogger(logger)

	app := &App{Cfg: v, Log: logger}
	switch backend := v.GetString("backend"); backend {
	case "", "loopback":
		app.Loopback = loopback.New(logger)
		app.Native = app.Loopback
	case "ndk":
		n, err := ndk.Open(ndk.Options{
			ThreadPoolSize:  uint32(max(v.GetInt("daemon.thread_pool"), 0)),
			StartThreadPool: true,
		})
		if err != nil {
			return nil, err
		}
		app.Native = n
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
	logger.Debug("app wired", zap.String("backend", v.GetString("backend")))
	return app, nil
}

// Close flushes the logger.
func (a *App) Close() {
	_ = a.Log.Sync()
}
