//go:build android && cgo

package ndk

/*
#cgo LDFLAGS: -lbinder_ndk
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>
#include <android/binder_ibinder.h>
#include <android/binder_parcel.h>
#include <android/binder_process.h>
#include <android/binder_status.h>

// Go side of the trampolines; see exports.go.
extern uintptr_t goBinderOnCreate(uintptr_t args);
extern void goBinderOnDestroy(uintptr_t userData);
extern int32_t goBinderOnTransact(uintptr_t binder, uintptr_t userData, uint32_t code, uintptr_t in, uintptr_t out);
extern int32_t goBinderOnDump(uintptr_t binder, uintptr_t userData, int fd, char** args, uint32_t numArgs);

static void* nb_on_create(void* args) {
	return (void*)goBinderOnCreate((uintptr_t)args);
}

static void nb_on_destroy(void* userData) {
	goBinderOnDestroy((uintptr_t)userData);
}

static binder_status_t nb_on_transact(AIBinder* binder, transaction_code_t code, const AParcel* in, AParcel* out) {
	return goBinderOnTransact((uintptr_t)binder, (uintptr_t)AIBinder_getUserData(binder),
		code, (uintptr_t)in, (uintptr_t)out);
}

static binder_status_t nb_on_dump(AIBinder* binder, int fd, const char** args, uint32_t numArgs) {
	return goBinderOnDump((uintptr_t)binder, (uintptr_t)AIBinder_getUserData(binder),
		fd, (char**)args, numArgs);
}

static uintptr_t nb_class_define(const char* descriptor) {
	return (uintptr_t)AIBinder_Class_define(descriptor, nb_on_create, nb_on_destroy, nb_on_transact);
}

static void nb_class_set_on_dump(uintptr_t clazz) {
	AIBinder_Class_setOnDump((AIBinder_Class*)clazz, nb_on_dump);
}

static void nb_class_disable_header(uintptr_t clazz) {
	AIBinder_Class_disableInterfaceTokenHeader((AIBinder_Class*)clazz);
}

static const char* nb_class_descriptor(uintptr_t clazz) {
	return AIBinder_Class_getDescriptor((const AIBinder_Class*)clazz);
}

static uintptr_t nb_new(uintptr_t clazz, uintptr_t args) {
	return (uintptr_t)AIBinder_new((const AIBinder_Class*)clazz, (void*)args);
}

static void nb_inc_strong(uintptr_t b) { AIBinder_incStrong((AIBinder*)b); }
static void nb_dec_strong(uintptr_t b) { AIBinder_decStrong((AIBinder*)b); }
static bool nb_is_alive(uintptr_t b) { return AIBinder_isAlive((const AIBinder*)b); }
static bool nb_is_remote(uintptr_t b) { return AIBinder_isRemote((const AIBinder*)b); }
static uintptr_t nb_get_class(uintptr_t b) { return (uintptr_t)AIBinder_getClass((AIBinder*)b); }
static uintptr_t nb_user_data(uintptr_t b) { return (uintptr_t)AIBinder_getUserData((AIBinder*)b); }

static binder_status_t nb_dump(uintptr_t b, int fd, const char** args, uint32_t numArgs) {
	return AIBinder_dump((AIBinder*)b, fd, args, numArgs);
}

static binder_status_t nb_prepare(uintptr_t b, uintptr_t* in) {
	AParcel* p = NULL;
	binder_status_t st = AIBinder_prepareTransaction((AIBinder*)b, &p);
	*in = (uintptr_t)p;
	return st;
}

static binder_status_t nb_transact(uintptr_t b, uint32_t code, uintptr_t in, uint32_t flags, uintptr_t* out) {
	AParcel* pin = (AParcel*)in;
	AParcel* pout = NULL;
	binder_status_t st = AIBinder_transact((AIBinder*)b, code, &pin, &pout, flags);
	*out = (uintptr_t)pout;
	return st;
}

static void nb_parcel_delete(uintptr_t p) { AParcel_delete((AParcel*)p); }

static binder_status_t nb_write_int32(uintptr_t p, int32_t v) {
	return AParcel_writeInt32((AParcel*)p, v);
}

static binder_status_t nb_read_int32(uintptr_t p, int32_t* v) {
	return AParcel_readInt32((const AParcel*)p, v);
}

static binder_status_t nb_write_string(uintptr_t p, const char* s, int32_t len) {
	return AParcel_writeString((AParcel*)p, s, len);
}

static binder_status_t nb_write_bytes(uintptr_t p, const void* data, int32_t len) {
	static const int8_t empty = 0;
	const int8_t* d = len > 0 ? (const int8_t*)data : (len == 0 ? &empty : NULL);
	return AParcel_writeByteArray((AParcel*)p, d, len);
}

typedef struct {
	char* data;
	int32_t len;
	bool is_null;
} nb_buf;

static bool nb_string_alloc(void* ctx, int32_t length, char** buffer) {
	nb_buf* b = (nb_buf*)ctx;
	if (length < 0) {
		b->is_null = true;
		*buffer = NULL;
		return true;
	}
	b->data = (char*)malloc(length > 0 ? length : 1);
	if (b->data == NULL) return false;
	b->len = length;
	*buffer = b->data;
	return true;
}

static bool nb_byte_alloc(void* ctx, int32_t length, int8_t** buffer) {
	nb_buf* b = (nb_buf*)ctx;
	if (length < 0) {
		b->is_null = true;
		*buffer = NULL;
		return true;
	}
	b->data = (char*)malloc(length > 0 ? length : 1);
	if (b->data == NULL) return false;
	b->len = length;
	*buffer = (int8_t*)b->data;
	return true;
}

static binder_status_t nb_read_string(uintptr_t p, nb_buf* b) {
	return AParcel_readString((const AParcel*)p, b, nb_string_alloc);
}

static binder_status_t nb_read_bytes(uintptr_t p, nb_buf* b) {
	return AParcel_readByteArray((const AParcel*)p, b, nb_byte_alloc);
}
*/
import "C"

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/mithrel/ndkbinder/pkg/binder"
)

// trampolines recorded by the first ClassDefine; the exported callbacks in
// exports.go forward through it.
var trampolines atomic.Pointer[binder.Trampolines]

// Backend is binder.Native over libbinder_ndk.
type Backend struct {
	mu          sync.Mutex
	descriptors map[binder.ClassPtr]*C.char
}

var _ binder.Native = (*Backend)(nil)

var setupOnce sync.Once

// Open returns the libbinder_ndk backend, configuring the process thread
// pool on first use.
func Open(opts Options) (binder.Native, error) {
	setupOnce.Do(func() {
		if opts.ThreadPoolSize > 0 {
			C.ABinderProcess_setThreadPoolMaxThreadCount(C.uint32_t(opts.ThreadPoolSize))
		}
		if opts.StartThreadPool {
			C.ABinderProcess_startThreadPool()
		}
	})
	return &Backend{descriptors: make(map[binder.ClassPtr]*C.char)}, nil
}

func (b *Backend) ClassDefine(descriptor string, t binder.Trampolines) binder.ClassPtr {
	trampolines.CompareAndSwap(nil, &t)
	// libbinder may keep the pointer and classes are never undefined, so the
	// string is intentionally never freed.
	cs := C.CString(descriptor)
	ptr := binder.ClassPtr(C.nb_class_define(cs))
	if ptr == 0 {
		C.free(unsafe.Pointer(cs))
		return 0
	}
	b.mu.Lock()
	b.descriptors[ptr] = cs
	b.mu.Unlock()
	return ptr
}

func (b *Backend) ClassSetOnDump(c binder.ClassPtr) {
	C.nb_class_set_on_dump(C.uintptr_t(c))
}

func (b *Backend) ClassDisableInterfaceTokenHeader(c binder.ClassPtr) {
	C.nb_class_disable_header(C.uintptr_t(c))
}

func (b *Backend) ClassGetDescriptor(c binder.ClassPtr) string {
	return C.GoString(C.nb_class_descriptor(C.uintptr_t(c)))
}

func (b *Backend) New(c binder.ClassPtr, args uintptr) binder.ObjectPtr {
	return binder.ObjectPtr(C.nb_new(C.uintptr_t(c), C.uintptr_t(args)))
}

func (b *Backend) IncStrong(o binder.ObjectPtr) { C.nb_inc_strong(C.uintptr_t(o)) }
func (b *Backend) DecStrong(o binder.ObjectPtr) { C.nb_dec_strong(C.uintptr_t(o)) }
func (b *Backend) IsAlive(o binder.ObjectPtr) bool {
	return bool(C.nb_is_alive(C.uintptr_t(o)))
}
func (b *Backend) IsRemote(o binder.ObjectPtr) bool {
	return bool(C.nb_is_remote(C.uintptr_t(o)))
}
func (b *Backend) GetClass(o binder.ObjectPtr) binder.ClassPtr {
	return binder.ClassPtr(C.nb_get_class(C.uintptr_t(o)))
}
func (b *Backend) GetUserData(o binder.ObjectPtr) uintptr {
	return uintptr(C.nb_user_data(C.uintptr_t(o)))
}

func (b *Backend) Dump(o binder.ObjectPtr, fd uintptr, args []string) binder.Status {
	var argv **C.char
	if len(args) > 0 {
		cargs := make([]*C.char, len(args))
		for i, a := range args {
			cargs[i] = C.CString(a)
		}
		defer func() {
			for _, p := range cargs {
				C.free(unsafe.Pointer(p))
			}
		}()
		argv = &cargs[0]
	}
	return binder.Status(C.nb_dump(C.uintptr_t(o), C.int(fd), argv, C.uint32_t(len(args))))
}

func (b *Backend) PrepareTransaction(o binder.ObjectPtr) (binder.ParcelPtr, binder.Status) {
	var in C.uintptr_t
	st := C.nb_prepare(C.uintptr_t(o), &in)
	return binder.ParcelPtr(in), binder.Status(st)
}

func (b *Backend) Transact(o binder.ObjectPtr, code binder.TransactionCode, in binder.ParcelPtr, flags binder.Flags) (binder.ParcelPtr, binder.Status) {
	var out C.uintptr_t
	st := C.nb_transact(C.uintptr_t(o), C.uint32_t(code), C.uintptr_t(in), C.uint32_t(flags), &out)
	return binder.ParcelPtr(out), binder.Status(st)
}

func (b *Backend) ParcelDelete(p binder.ParcelPtr) { C.nb_parcel_delete(C.uintptr_t(p)) }

func (b *Backend) ParcelWriteInt32(p binder.ParcelPtr, v int32) binder.Status {
	return binder.Status(C.nb_write_int32(C.uintptr_t(p), C.int32_t(v)))
}

func (b *Backend) ParcelReadInt32(p binder.ParcelPtr) (int32, binder.Status) {
	var v C.int32_t
	st := C.nb_read_int32(C.uintptr_t(p), &v)
	return int32(v), binder.Status(st)
}

func (b *Backend) ParcelWriteString(p binder.ParcelPtr, s string) binder.Status {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return binder.Status(C.nb_write_string(C.uintptr_t(p), cs, C.int32_t(len(s))))
}

func (b *Backend) ParcelReadString(p binder.ParcelPtr) (string, binder.Status) {
	var buf C.nb_buf
	st := binder.Status(C.nb_read_string(C.uintptr_t(p), &buf))
	defer C.free(unsafe.Pointer(buf.data))
	if st != binder.StatusOK {
		return "", st
	}
	if bool(buf.is_null) {
		return "", binder.StatusUnexpectedNull
	}
	// length reported to the allocator includes the terminator
	n := int(buf.len) - 1
	if n <= 0 {
		return "", binder.StatusOK
	}
	return C.GoStringN(buf.data, C.int(n)), binder.StatusOK
}

func (b *Backend) ParcelWriteBytes(p binder.ParcelPtr, data []byte) binder.Status {
	if data == nil {
		return binder.Status(C.nb_write_bytes(C.uintptr_t(p), nil, -1))
	}
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = unsafe.Pointer(&data[0])
	}
	return binder.Status(C.nb_write_bytes(C.uintptr_t(p), ptr, C.int32_t(len(data))))
}

func (b *Backend) ParcelReadBytes(p binder.ParcelPtr) ([]byte, binder.Status) {
	var buf C.nb_buf
	st := binder.Status(C.nb_read_bytes(C.uintptr_t(p), &buf))
	defer C.free(unsafe.Pointer(buf.data))
	if st != binder.StatusOK || bool(buf.is_null) {
		return nil, st
	}
	return C.GoBytes(unsafe.Pointer(buf.data), C.int(buf.len)), binder.StatusOK
}
