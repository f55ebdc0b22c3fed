package binder

// Opaque native pointers. The binder package never dereferences them; they
// are only handed back to the Native that produced them.
type (
	ClassPtr  uintptr
	ObjectPtr uintptr
	ParcelPtr uintptr
)

// Trampolines are the fixed entry points a backend invokes from native
// threads. Every field is a package-level function with no captured state;
// per-class behavior is recovered from the args and user-data handles.
type Trampolines struct {
	OnCreate   func(args uintptr) uintptr
	OnDestroy  func(userData uintptr)
	OnTransact func(obj ObjectPtr, userData uintptr, code TransactionCode, in, out ParcelPtr) Status
	OnDump     func(obj ObjectPtr, userData uintptr, fd uintptr, args []string) Status
}

// ClassAPI covers the AIBinder_Class_* entry points.
type ClassAPI interface {
	// ClassDefine returns 0 when the native layer rejects the definition.
	ClassDefine(descriptor string, t Trampolines) ClassPtr
	ClassSetOnDump(c ClassPtr)
	ClassDisableInterfaceTokenHeader(c ClassPtr)
	ClassGetDescriptor(c ClassPtr) string
}

// ObjectAPI covers the AIBinder_* entry points.
type ObjectAPI interface {
	// New instantiates c with one strong reference owned by the caller.
	New(c ClassPtr, args uintptr) ObjectPtr
	IncStrong(o ObjectPtr)
	DecStrong(o ObjectPtr)
	IsAlive(o ObjectPtr) bool
	IsRemote(o ObjectPtr) bool
	GetClass(o ObjectPtr) ClassPtr
	GetUserData(o ObjectPtr) uintptr
	Dump(o ObjectPtr, fd uintptr, args []string) Status
	PrepareTransaction(o ObjectPtr) (ParcelPtr, Status)
	// Transact consumes in. The returned reply parcel belongs to the caller.
	Transact(o ObjectPtr, code TransactionCode, in ParcelPtr, flags Flags) (ParcelPtr, Status)
}

// ParcelAPI covers the AParcel_* primitives this package needs to move
// bytes through a transaction.
type ParcelAPI interface {
	ParcelDelete(p ParcelPtr)
	ParcelWriteInt32(p ParcelPtr, v int32) Status
	ParcelReadInt32(p ParcelPtr) (int32, Status)
	ParcelWriteString(p ParcelPtr, s string) Status
	ParcelReadString(p ParcelPtr) (string, Status)
	ParcelWriteBytes(p ParcelPtr, b []byte) Status
	ParcelReadBytes(p ParcelPtr) ([]byte, Status)
}

// Native is the native binder layer as seen from Go: libbinder_ndk through
// cgo on device, or an in-process simulator elsewhere.
type Native interface {
	ClassAPI
	ObjectAPI
	ParcelAPI
}
