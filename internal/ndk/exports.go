//go:build android && cgo

package ndk

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/mithrel/ndkbinder/pkg/binder"
)

// The functions below are reached from the C thunks in ndk_android.go on
// libbinder threads. Panics are contained by the binder trampolines they
// forward to.

//export goBinderOnCreate
func goBinderOnCreate(args C.uintptr_t) C.uintptr_t {
	return C.uintptr_t(mustTrampolines().OnCreate(uintptr(args)))
}

//export goBinderOnDestroy
func goBinderOnDestroy(userData C.uintptr_t) {
	mustTrampolines().OnDestroy(uintptr(userData))
}

//export goBinderOnTransact
func goBinderOnTransact(obj, userData C.uintptr_t, code C.uint32_t, in, out C.uintptr_t) C.int32_t {
	st := mustTrampolines().OnTransact(binder.ObjectPtr(obj), uintptr(userData),
		binder.TransactionCode(code), binder.ParcelPtr(in), binder.ParcelPtr(out))
	return C.int32_t(st)
}

//export goBinderOnDump
func goBinderOnDump(obj, userData C.uintptr_t, fd C.int, args **C.char, numArgs C.uint32_t) C.int32_t {
	var list []string
	if numArgs > 0 && args != nil {
		for _, a := range unsafe.Slice(args, int(numArgs)) {
			list = append(list, C.GoString(a))
		}
	}
	st := mustTrampolines().OnDump(binder.ObjectPtr(obj), uintptr(userData), uintptr(fd), list)
	return C.int32_t(st)
}

func mustTrampolines() *binder.Trampolines {
	t := trampolines.Load()
	if t == nil {
		// Only reachable if libbinder calls into a class it never got from us.
		panic("ndk: binder callback before any class was defined")
	}
	return t
}
