// Package loopback is an in-process implementation of binder.Native. It
// follows libbinder_ndk's rules closely enough to exercise the binder
// package off-device: reference counting with destroy on the last release,
// remote proxies that can die, interface-token checks, per-object
// transaction serialization, and callbacks delivered on goroutines the
// caller did not start.
package loopback

import (
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mithrel/ndkbinder/pkg/binder"
)

// addrs is shared by every Runtime so pointers never collide in the
// process-wide class registry.
var addrs atomic.Uintptr

func nextAddr() uintptr { return 0x7a000000 + addrs.Add(1)*0x10 }

type class struct {
	ptr          binder.ClassPtr
	descriptor   string
	t            binder.Trampolines
	dump         atomic.Bool
	noHeader     atomic.Bool
	instantiated atomic.Bool
}

type object struct {
	ptr      binder.ObjectPtr
	cls      *class
	userData uintptr
	strong   atomic.Int32
	// target is set for proxies.
	target *object
	dead   atomic.Bool
	txMu   sync.Mutex
}

func (o *object) local() *object {
	if o.target != nil {
		return o.target
	}
	return o
}

// Runtime is one simulated native binder layer.
type Runtime struct {
	log *zap.Logger

	mu      sync.RWMutex
	classes map[binder.ClassPtr]*class
	objects map[binder.ObjectPtr]*object
	parcels map[binder.ParcelPtr]*parcel

	oneway sync.WaitGroup
}

var _ binder.Native = (*Runtime)(nil)

func New(log *zap.Logger) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runtime{
		log:     log.Named("loopback"),
		classes: make(map[binder.ClassPtr]*class),
		objects: make(map[binder.ObjectPtr]*object),
		parcels: make(map[binder.ParcelPtr]*parcel),
	}
}

func (r *Runtime) class(c binder.ClassPtr) *class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.classes[c]
}

func (r *Runtime) object(o binder.ObjectPtr) *object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects[o]
}

func (r *Runtime) ClassDefine(descriptor string, t binder.Trampolines) binder.ClassPtr {
	if descriptor == "" || strings.IndexByte(descriptor, 0) >= 0 {
		return 0
	}
	if t.OnCreate == nil || t.OnDestroy == nil || t.OnTransact == nil {
		return 0
	}
	c := &class{ptr: binder.ClassPtr(nextAddr()), descriptor: descriptor, t: t}
	r.mu.Lock()
	r.classes[c.ptr] = c
	r.mu.Unlock()
	return c.ptr
}

func (r *Runtime) ClassSetOnDump(c binder.ClassPtr) {
	cls := r.class(c)
	if cls == nil {
		r.log.Error("setOnDump on unknown class", zap.Uintptr("class", uintptr(c)))
		return
	}
	if cls.t.OnDump == nil {
		r.log.Error("setOnDump without a dump trampoline", zap.String("descriptor", cls.descriptor))
		return
	}
	cls.dump.Store(true)
}

func (r *Runtime) ClassDisableInterfaceTokenHeader(c binder.ClassPtr) {
	cls := r.class(c)
	if cls == nil {
		r.log.Error("disableInterfaceTokenHeader on unknown class", zap.Uintptr("class", uintptr(c)))
		return
	}
	cls.noHeader.Store(true)
}

func (r *Runtime) ClassGetDescriptor(c binder.ClassPtr) string {
	if cls := r.class(c); cls != nil {
		return cls.descriptor
	}
	return ""
}

// New runs OnCreate on the calling goroutine, as AIBinder_new does.
func (r *Runtime) New(c binder.ClassPtr, args uintptr) binder.ObjectPtr {
	cls := r.class(c)
	if cls == nil {
		return 0
	}
	cls.instantiated.Store(true)
	ud := cls.t.OnCreate(args)
	o := &object{ptr: binder.ObjectPtr(nextAddr()), cls: cls, userData: ud}
	o.strong.Store(1)
	r.mu.Lock()
	r.objects[o.ptr] = o
	r.mu.Unlock()
	return o.ptr
}

// Proxy returns a remote handle to the local object target, as if it had
// been received from another process. The caller owns one reference.
func (r *Runtime) Proxy(target binder.ObjectPtr) binder.ObjectPtr {
	t := r.object(target)
	if t == nil {
		return 0
	}
	t = t.local()
	t.strong.Add(1)
	p := &object{ptr: binder.ObjectPtr(nextAddr()), cls: t.cls, target: t}
	p.strong.Store(1)
	r.mu.Lock()
	r.objects[p.ptr] = p
	r.mu.Unlock()
	return p.ptr
}

// Kill simulates death of the process hosting the proxy's object.
func (r *Runtime) Kill(proxy binder.ObjectPtr) {
	if p := r.object(proxy); p != nil && p.target != nil {
		p.dead.Store(true)
	}
}

func (r *Runtime) IncStrong(o binder.ObjectPtr) {
	obj := r.object(o)
	if obj == nil {
		r.log.Error("incStrong on unknown object", zap.Uintptr("object", uintptr(o)))
		return
	}
	obj.strong.Add(1)
}

func (r *Runtime) DecStrong(o binder.ObjectPtr) {
	obj := r.object(o)
	if obj == nil {
		r.log.Error("decStrong on unknown object", zap.Uintptr("object", uintptr(o)))
		return
	}
	switch n := obj.strong.Add(-1); {
	case n == 0:
		r.destroy(obj)
	case n < 0:
		r.log.Error("strong count below zero", zap.Uintptr("object", uintptr(o)), zap.Int32("count", n))
	}
}

func (r *Runtime) destroy(obj *object) {
	r.mu.Lock()
	delete(r.objects, obj.ptr)
	r.mu.Unlock()
	if obj.target != nil {
		r.DecStrong(obj.target.ptr)
		return
	}
	obj.cls.t.OnDestroy(obj.userData)
}

func (r *Runtime) IsAlive(o binder.ObjectPtr) bool {
	obj := r.object(o)
	return obj != nil && !obj.dead.Load()
}

func (r *Runtime) IsRemote(o binder.ObjectPtr) bool {
	obj := r.object(o)
	return obj != nil && obj.target != nil
}

func (r *Runtime) GetClass(o binder.ObjectPtr) binder.ClassPtr {
	if obj := r.object(o); obj != nil && obj.cls != nil {
		return obj.cls.ptr
	}
	return 0
}

func (r *Runtime) GetUserData(o binder.ObjectPtr) uintptr {
	if obj := r.object(o); obj != nil && obj.target == nil {
		return obj.userData
	}
	return 0
}

// Dump calls the dump trampoline on the calling goroutine for local objects
// and on a fresh goroutine for proxies.
func (r *Runtime) Dump(o binder.ObjectPtr, fd uintptr, args []string) binder.Status {
	obj := r.object(o)
	if obj == nil {
		return binder.StatusUnexpectedNull
	}
	if obj.dead.Load() {
		return binder.StatusDeadObject
	}
	t := obj.local()
	if !t.cls.dump.Load() {
		return binder.StatusOK
	}
	args = append([]string(nil), args...)
	call := func() binder.Status { return t.cls.t.OnDump(t.ptr, t.userData, fd, args) }
	if obj.target == nil {
		return call()
	}
	return onBinderThread(call)
}

// Live reports how many objects (local and proxies) still exist.
func (r *Runtime) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// StrongCount returns the current strong count of o, or 0 once destroyed.
func (r *Runtime) StrongCount(o binder.ObjectPtr) int32 {
	if obj := r.object(o); obj != nil {
		return obj.strong.Load()
	}
	return 0
}

// Wait blocks until every oneway transaction has been served.
func (r *Runtime) Wait() { r.oneway.Wait() }

func onBinderThread(fn func() binder.Status) binder.Status {
	done := make(chan binder.Status, 1)
	go func() { done <- fn() }()
	return <-done
}
