package binder

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	ErrNullObject = errors.New("binder: null object pointer")
	ErrReleased   = errors.New("binder: object handle released")
)

// Object is a handle to a local or remote binder object. The native layer
// owns the object's lifetime; an owned handle holds one strong reference
// and gives it back on Release. Handles passed into callbacks are borrowed:
// they hold no reference and are only valid during the callback. Clone a
// borrowed handle to keep the object.
type Object struct {
	native   Native
	ptr      ObjectPtr
	borrowed bool
	released *atomic.Bool
	cleanup  runtime.Cleanup
}

// FromPtr adopts a non-null native pointer, taking a new strong reference.
// A null pointer is rejected before any native call.
func FromPtr(n Native, p ObjectPtr) (*Object, error) {
	if p == 0 {
		return nil, ErrNullObject
	}
	n.IncStrong(p)
	return adopt(n, p), nil
}

// adopt wraps a pointer whose reference the caller already holds.
func adopt(n Native, p ObjectPtr) *Object {
	o := &Object{native: n, ptr: p, released: new(atomic.Bool)}
	o.cleanup = runtime.AddCleanup(o, releaseLeaked, leakedRef{native: n, ptr: p, released: o.released})
	return o
}

func borrow(n Native, p ObjectPtr) *Object {
	return &Object{native: n, ptr: p, borrowed: true, released: new(atomic.Bool)}
}

type leakedRef struct {
	native   Native
	ptr      ObjectPtr
	released *atomic.Bool
}

func releaseLeaked(r leakedRef) {
	if r.released.CompareAndSwap(false, true) {
		log().Warn("binder object handle collected without Release", zap.Uintptr("object", uintptr(r.ptr)))
		r.native.DecStrong(r.ptr)
	}
}

func (o *Object) Ptr() ObjectPtr { return o.ptr }

// Borrowed reports whether the handle holds no reference of its own.
func (o *Object) Borrowed() bool { return o.borrowed }

// Clone returns a new owned handle to the same object.
func (o *Object) Clone() (*Object, error) {
	if o.released.Load() {
		return nil, ErrReleased
	}
	defer runtime.KeepAlive(o)
	return FromPtr(o.native, o.ptr)
}

// Release gives back the handle's reference. It is safe to call more than
// once and does nothing on borrowed handles.
func (o *Object) Release() {
	if o.borrowed {
		return
	}
	if o.released.CompareAndSwap(false, true) {
		o.cleanup.Stop()
		o.native.DecStrong(o.ptr)
	}
}

// Every method that hands o.ptr to the native layer keeps o reachable until
// the call returns. Otherwise the cleanup of an owned handle could drop the
// last reference while the native call is still using the object.

func (o *Object) IsAlive() bool {
	if o.released.Load() {
		return false
	}
	defer runtime.KeepAlive(o)
	return o.native.IsAlive(o.ptr)
}

func (o *Object) IsRemote() bool {
	if o.released.Load() {
		return false
	}
	defer runtime.KeepAlive(o)
	return o.native.IsRemote(o.ptr)
}

// Class returns the class of the object when it was defined in this
// process, otherwise nil.
func (o *Object) Class() *Class {
	if o.released.Load() {
		return nil
	}
	defer runtime.KeepAlive(o)
	c, _ := classes.lookup(o.native.GetClass(o.ptr))
	return c
}

// UserData returns what OnCreate produced for a local object of a class
// defined through this package.
func (o *Object) UserData() (any, bool) {
	defer runtime.KeepAlive(o)
	if o.released.Load() || o.native.IsRemote(o.ptr) {
		return nil, false
	}
	v, ok := handles.lookup(o.native.GetUserData(o.ptr))
	if !ok {
		return nil, false
	}
	inst, ok := v.(*instance)
	if !ok {
		return nil, false
	}
	return inst.data, true
}

// Dump asks the object to write diagnostics to sink. sink stays open and
// owned by the caller.
func (o *Object) Dump(sink *os.File, args ...string) error {
	if o.released.Load() {
		return ErrReleased
	}
	st := o.native.Dump(o.ptr, sink.Fd(), args)
	runtime.KeepAlive(sink)
	runtime.KeepAlive(o)
	return st.Err()
}

// DumpString runs Dump through a pipe and returns everything written.
func (o *Object) DumpString(args ...string) (string, error) {
	return CollectDump(func(w *os.File) error { return o.Dump(w, args...) })
}

// Transact sends one transaction to the object. write fills the request
// after the interface token; read consumes the reply. Either may be nil.
// Oneway transactions have no reply and read is not called.
func (o *Object) Transact(code TransactionCode, flags Flags, write, read func(*Parcel) error) error {
	if o.released.Load() {
		return ErrReleased
	}
	defer runtime.KeepAlive(o)
	in, st := o.native.PrepareTransaction(o.ptr)
	if st != StatusOK {
		return fmt.Errorf("prepare transaction: %w", st)
	}
	if write != nil {
		p := newParcel(o.native, in, parcelWrite)
		err := write(p)
		p.close()
		if err != nil {
			o.native.ParcelDelete(in)
			return err
		}
	}
	out, st := o.native.Transact(o.ptr, code, in, flags)
	if st != StatusOK {
		if out != 0 {
			o.native.ParcelDelete(out)
		}
		return st
	}
	if out == 0 {
		return nil
	}
	defer o.native.ParcelDelete(out)
	if read == nil || flags&FlagOneway != 0 {
		return nil
	}
	p := newParcel(o.native, out, parcelRead)
	defer p.close()
	return read(p)
}

func (o *Object) String() string {
	return fmt.Sprintf("binder.Object(%#x)", uintptr(o.ptr))
}
