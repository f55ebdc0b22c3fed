package binder

import (
	"fmt"
	"runtime/debug"
)

// trampolines is the only Trampolines value ever handed to a backend.
var trampolines = Trampolines{
	OnCreate:   onCreateTrampoline,
	OnDestroy:  onDestroyTrampoline,
	OnTransact: onTransactTrampoline,
	OnDump:     onDumpTrampoline,
}

// Transaction is one incoming call. It is only valid until OnTransact
// returns; the parcels refuse use after that.
type Transaction struct {
	Target *Object
	Code   TransactionCode
	In     *Parcel
	Out    *Parcel

	userData any
}

// UserData is the value OnCreate returned for the target object.
func (tx *Transaction) UserData() any { return tx.userData }

func (tx *Transaction) end() {
	tx.In.close()
	tx.Out.close()
}

func onCreateTrampoline(args uintptr) uintptr {
	return abortOnPanic("onCreate", func() uintptr {
		v, ok := handles.lookup(args)
		if !ok {
			panic(fmt.Sprintf("unknown create args handle %#x", args))
		}
		ca, ok := v.(*createArgs)
		if !ok {
			panic(fmt.Sprintf("create args handle %#x holds %T", args, v))
		}
		data := ca.class.onCreate(ca.args)
		ca.userData = handles.register(&instance{class: ca.class, data: data})
		return ca.userData
	})
}

func onDestroyTrampoline(userData uintptr) {
	abortOnPanic("onDestroy", func() struct{} {
		inst := mustInstance(userData)
		handles.unregister(userData)
		inst.class.onDestroy(inst.data)
		return struct{}{}
	})
}

func onTransactTrampoline(obj ObjectPtr, userData uintptr, code TransactionCode, in, out ParcelPtr) Status {
	return abortOnPanic("onTransact", func() Status {
		inst := mustInstance(userData)
		n := inst.class.native
		tx := &Transaction{
			Target:   borrow(n, obj),
			Code:     code,
			In:       newParcel(n, in, parcelRead),
			Out:      newParcel(n, out, parcelWrite),
			userData: inst.data,
		}
		defer tx.end()
		return inst.class.onTransact(tx)
	})
}

func onDumpTrampoline(obj ObjectPtr, userData uintptr, fd uintptr, args []string) Status {
	return abortOnPanic("onDump", func() Status {
		inst := mustInstance(userData)
		fn := inst.class.dumpFunc()
		if fn == nil {
			return StatusOK
		}
		sink := newFDSink(fd)
		st := fn(borrow(inst.class.native, obj), sink, args)
		if err := sink.Flush(); err != nil && st == StatusOK {
			st = statusFromError(err)
		}
		return st
	})
}

// mustInstance resolves user data handed back by the native layer. A handle
// this package never issued means state is corrupted, which the barrier
// turns into an abort.
func mustInstance(userData uintptr) *instance {
	v, ok := handles.lookup(userData)
	if !ok {
		panic(fmt.Sprintf("unknown user data handle %#x", userData))
	}
	inst, ok := v.(*instance)
	if !ok {
		panic(fmt.Sprintf("user data handle %#x holds %T", userData, v))
	}
	return inst
}

func abortOnPanic[T any](callback string, fn func() T) T {
	defer func() {
		if r := recover(); r != nil {
			abort(callback, r, debug.Stack())
		}
	}()
	return fn()
}
