package loopback

import (
	"github.com/mithrel/ndkbinder/pkg/binder"
)

// PrepareTransaction allocates a request parcel and writes the interface
// token unless the class disabled it.
func (r *Runtime) PrepareTransaction(o binder.ObjectPtr) (binder.ParcelPtr, binder.Status) {
	obj := r.object(o)
	if obj == nil || obj.cls == nil {
		return 0, binder.StatusUnexpectedNull
	}
	if obj.dead.Load() {
		return 0, binder.StatusDeadObject
	}
	ptr, p := r.newParcel()
	if !obj.cls.noHeader.Load() {
		p.writeBlob([]byte(obj.cls.descriptor), false)
	}
	return ptr, binder.StatusOK
}

// Transact delivers one call. in is always consumed. Local objects are
// served on the calling goroutine and proxies on a fresh one; calls on the
// same object never overlap.
func (r *Runtime) Transact(o binder.ObjectPtr, code binder.TransactionCode, in binder.ParcelPtr, flags binder.Flags) (binder.ParcelPtr, binder.Status) {
	obj := r.object(o)
	inP := r.parcel(in)
	switch {
	case obj == nil || obj.cls == nil:
		r.ParcelDelete(in)
		return 0, binder.StatusUnexpectedNull
	case inP == nil:
		return 0, binder.StatusUnexpectedNull
	case obj.dead.Load():
		r.ParcelDelete(in)
		return 0, binder.StatusDeadObject
	case !code.UserCode():
		r.ParcelDelete(in)
		return 0, binder.StatusUnknownTransaction
	}

	t := obj.local()
	inP.rewind()
	if !t.cls.noHeader.Load() {
		tok, null, st := inP.readBlob()
		if st != binder.StatusOK || null || string(tok) != t.cls.descriptor {
			r.ParcelDelete(in)
			return 0, binder.StatusBadType
		}
	}

	out, _ := r.newParcel()
	call := func() binder.Status {
		t.txMu.Lock()
		defer t.txMu.Unlock()
		return t.cls.t.OnTransact(t.ptr, t.userData, code, in, out)
	}

	if flags&binder.FlagOneway != 0 {
		r.oneway.Add(1)
		go func() {
			defer r.oneway.Done()
			_ = call()
			r.ParcelDelete(in)
			r.ParcelDelete(out)
		}()
		return 0, binder.StatusOK
	}

	var st binder.Status
	if obj.target == nil {
		st = call()
	} else {
		st = onBinderThread(call)
	}
	r.ParcelDelete(in)
	if st != binder.StatusOK {
		r.ParcelDelete(out)
		return 0, st
	}
	if pc := r.parcel(out); pc != nil {
		pc.rewind()
	}
	return out, binder.StatusOK
}

// Call plays the part of a remote client: it sends payload as a byte array
// with code and returns the byte array from the reply.
func (r *Runtime) Call(o binder.ObjectPtr, code binder.TransactionCode, payload []byte) ([]byte, binder.Status) {
	in, st := r.PrepareTransaction(o)
	if st != binder.StatusOK {
		return nil, st
	}
	if st := r.ParcelWriteBytes(in, payload); st != binder.StatusOK {
		r.ParcelDelete(in)
		return nil, st
	}
	out, st := r.Transact(o, code, in, binder.FlagNone)
	if st != binder.StatusOK {
		return nil, st
	}
	defer r.ParcelDelete(out)
	return r.ParcelReadBytes(out)
}
