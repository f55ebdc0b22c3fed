package daemon

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/mithrel/ndkbinder/internal/config"
	"github.com/mithrel/ndkbinder/internal/echo"
	"github.com/mithrel/ndkbinder/internal/ipc"
	"github.com/mithrel/ndkbinder/internal/wire"
	"github.com/mithrel/ndkbinder/pkg/binder"
)

// Host owns the named echo objects served by the daemon.
type Host struct {
	log         *zap.Logger
	class       *binder.Class
	objects     map[string]*binder.Object
	names       []string
	dumpTimeout time.Duration
}

// NewHost defines the echo class and creates one object per configured name.
func NewHost(app *wire.App) (*Host, error) {
	log := app.Log.Named("daemon")
	cls, err := echo.Define(app.Native, app.Cfg.GetString("daemon.descriptor"), app.Log)
	if err != nil {
		return nil, err
	}
	h := &Host{
		log:         log,
		class:       cls,
		objects:     make(map[string]*binder.Object),
		dumpTimeout: config.DumpTimeout(app.Cfg),
	}
	for _, name := range app.Cfg.GetStringSlice("daemon.objects") {
		if _, dup := h.objects[name]; dup {
			continue
		}
		obj, err := cls.New(name)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		h.objects[name] = obj
		h.names = append(h.names, name)
		log.Info("hosting object", zap.String("name", name), zap.Stringer("object", obj))
	}
	sort.Strings(h.names)
	return h, nil
}

// Object returns the hosted object called name.
func (h *Host) Object(name string) (*binder.Object, bool) {
	obj, ok := h.objects[name]
	return obj, ok
}

// Close releases every hosted object.
func (h *Host) Close() {
	for name, obj := range h.objects {
		obj.Release()
		delete(h.objects, name)
	}
	h.names = nil
}

// Handle answers one ipc request.
func (h *Host) Handle(ctx context.Context, m ipc.Message) ipc.Response {
	switch m.Name {
	case ipc.CmdObjectsList:
		return ipc.Response{OK: true, Objects: h.list()}
	case ipc.CmdObjectDump:
		obj, ok := h.objects[m.Object]
		if !ok {
			return h.unknownObject(m.Object)
		}
		return h.dump(ctx, obj, m.Args)
	case ipc.CmdObjectTransact:
		obj, ok := h.objects[m.Object]
		if !ok {
			return h.unknownObject(m.Object)
		}
		reply, err := echo.Call(obj, binder.TransactionCode(m.Code), m.Payload)
		if err != nil {
			return failure(err)
		}
		return ipc.Response{OK: true, Payload: reply}
	default:
		return ipc.Response{OK: false, Msg: "unknown command: " + m.Name}
	}
}

func (h *Host) unknownObject(name string) ipc.Response {
	msg := fmt.Sprintf("no object named %q", name)
	if matches := fuzzy.Find(name, h.names); len(matches) > 0 {
		msg += fmt.Sprintf("; did you mean %q?", matches[0].Str)
	}
	return ipc.Response{OK: false, Msg: msg, Status: int32(binder.StatusNameNotFound)}
}

func (h *Host) list() []ipc.ObjectInfo {
	out := make([]ipc.ObjectInfo, 0, len(h.names))
	for _, name := range h.names {
		obj := h.objects[name]
		info := ipc.ObjectInfo{
			Name:       name,
			Descriptor: h.class.Descriptor(),
			Alive:      obj.IsAlive(),
			Remote:     obj.IsRemote(),
		}
		if ud, ok := obj.UserData(); ok {
			if s, ok := ud.(*echo.Service); ok {
				info.Served = s.Served()
			}
		}
		out = append(out, info)
	}
	return out
}

type dumpResult struct {
	out string
	err error
}

// dump runs the object's dump handler, giving up after the configured
// timeout. A handler that never returns keeps its goroutine.
func (h *Host) dump(ctx context.Context, obj *binder.Object, args []string) ipc.Response {
	ctx, cancel := context.WithTimeout(ctx, h.dumpTimeout)
	defer cancel()
	done := make(chan dumpResult, 1)
	go func() {
		out, err := obj.DumpString(args...)
		done <- dumpResult{out: out, err: err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			resp := failure(r.err)
			resp.Output = r.out
			return resp
		}
		return ipc.Response{OK: true, Output: r.out}
	case <-ctx.Done():
		h.log.Warn("dump timed out", zap.Stringer("object", obj), zap.Duration("timeout", h.dumpTimeout))
		return ipc.Response{OK: false, Msg: "dump timed out", Status: int32(binder.StatusTimedOut)}
	}
}

func failure(err error) ipc.Response {
	resp := ipc.Response{OK: false, Msg: err.Error()}
	var st binder.Status
	if errors.As(err, &st) {
		resp.Status = int32(st)
	}
	return resp
}
