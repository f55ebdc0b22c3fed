package binder

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"
)

var (
	ErrInvalidDescriptor = errors.New("binder: invalid interface descriptor")
	ErrMissingCallback   = errors.New("binder: missing class callback")
	ErrDefineFailed      = errors.New("binder: native class definition failed")
	ErrCreateFailed      = errors.New("binder: native object creation failed")
)

// OnCreateFunc builds the user data for a new object from the args given to
// Class.New.
type OnCreateFunc func(args any) any

// OnDestroyFunc releases user data once the native side drops the last
// reference to the object.
type OnDestroyFunc func(userData any)

// OnTransactFunc serves one incoming transaction. The interface token has
// already been checked by the native layer.
type OnTransactFunc func(tx *Transaction) Status

// OnDumpFunc writes human-readable diagnostics for obj to out. out is
// flushed after the call returns and never closed.
type OnDumpFunc func(obj *Object, out io.Writer, args []string) Status

// Callbacks groups the closures of one class. OnDump is optional.
type Callbacks struct {
	OnCreate   OnCreateFunc
	OnDestroy  OnDestroyFunc
	OnTransact OnTransactFunc
	OnDump     OnDumpFunc
}

// Class is a type of binder object defined in this process. Classes live
// until the process exits.
type Class struct {
	native     Native
	ptr        ClassPtr
	descriptor string

	onCreate   OnCreateFunc
	onDestroy  OnDestroyFunc
	onTransact OnTransactFunc
	onDump     atomic.Pointer[OnDumpFunc]

	instantiated atomic.Bool
}

// Define registers a new class with the native layer.
//
// Defining the same descriptor twice creates two independent classes; the
// native layer allows it, so Define does too.
func Define(n Native, descriptor string, cb Callbacks) (*Class, error) {
	if err := validateDescriptor(descriptor); err != nil {
		return nil, err
	}
	switch {
	case cb.OnCreate == nil:
		return nil, fmt.Errorf("%w: OnCreate", ErrMissingCallback)
	case cb.OnDestroy == nil:
		return nil, fmt.Errorf("%w: OnDestroy", ErrMissingCallback)
	case cb.OnTransact == nil:
		return nil, fmt.Errorf("%w: OnTransact", ErrMissingCallback)
	}

	ptr := n.ClassDefine(descriptor, trampolines)
	if ptr == 0 {
		return nil, fmt.Errorf("%w: %q", ErrDefineFailed, descriptor)
	}
	c := &Class{
		native:     n,
		ptr:        ptr,
		descriptor: descriptor,
		onCreate:   cb.OnCreate,
		onDestroy:  cb.OnDestroy,
		onTransact: cb.OnTransact,
	}
	if prev := classes.byDescriptor(descriptor); len(prev) > 0 {
		log().Debug("descriptor defined again; classes are independent",
			zap.String("descriptor", descriptor), zap.Int("existing", len(prev)))
	}
	classes.add(c)
	if cb.OnDump != nil {
		c.SetOnDump(cb.OnDump)
	}
	log().Debug("class defined", zap.String("descriptor", descriptor), zap.Uintptr("class", uintptr(ptr)))
	return c, nil
}

func validateDescriptor(d string) error {
	switch {
	case d == "":
		return fmt.Errorf("%w: empty", ErrInvalidDescriptor)
	case !utf8.ValidString(d):
		return fmt.Errorf("%w: not UTF-8", ErrInvalidDescriptor)
	case strings.IndexByte(d, 0) >= 0:
		return fmt.Errorf("%w: embedded NUL", ErrInvalidDescriptor)
	}
	return nil
}

func (c *Class) Ptr() ClassPtr { return c.ptr }

// Descriptor asks the native layer for the class descriptor. For classes
// defined here it equals the string passed to Define.
func (c *Class) Descriptor() string { return c.native.ClassGetDescriptor(c.ptr) }

func (c *Class) String() string { return c.descriptor }

// SetOnDump installs the dump handler. It must be called before any object
// of the class is created; later calls are undefined behavior in the native
// layer and are only logged here.
func (c *Class) SetOnDump(fn OnDumpFunc) {
	if fn == nil {
		return
	}
	c.warnIfInstantiated("SetOnDump")
	c.onDump.Store(&fn)
	c.native.ClassSetOnDump(c.ptr)
}

// DisableInterfaceTokenHeader stops transactions on this class from
// carrying the interface token, which removes the native type check. Same
// ordering rule as SetOnDump.
func (c *Class) DisableInterfaceTokenHeader() {
	c.warnIfInstantiated("DisableInterfaceTokenHeader")
	c.native.ClassDisableInterfaceTokenHeader(c.ptr)
}

func (c *Class) warnIfInstantiated(op string) {
	if c.instantiated.Load() {
		log().Warn("class configured after first instantiation; behavior is undefined",
			zap.String("op", op), zap.String("descriptor", c.descriptor))
	}
}

func (c *Class) dumpFunc() OnDumpFunc {
	if p := c.onDump.Load(); p != nil {
		return *p
	}
	return nil
}

// createArgs travels through AIBinder_new's void* args.
type createArgs struct {
	class    *Class
	args     any
	userData uintptr
}

// instance is the user data attached to every object created by New.
type instance struct {
	class *Class
	data  any
}

// New creates a local object of this class. args are passed to OnCreate on
// the calling goroutine. The returned handle owns the initial reference.
func (c *Class) New(args any) (*Object, error) {
	c.instantiated.Store(true)
	ca := &createArgs{class: c, args: args}
	h := handles.register(ca)
	ptr := c.native.New(c.ptr, h)
	handles.unregister(h)
	if ptr == 0 {
		// OnCreate may have run before the native layer gave up.
		if ca.userData != 0 {
			onDestroyTrampoline(ca.userData)
		}
		return nil, fmt.Errorf("%w: %s", ErrCreateFailed, c.descriptor)
	}
	return adopt(c.native, ptr), nil
}
