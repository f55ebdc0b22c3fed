package loopback

import (
	"encoding/binary"
	"sync"

	"github.com/mithrel/ndkbinder/pkg/binder"
)

// parcel is a flat little-endian buffer with a read cursor. Strings and byte
// arrays are length-prefixed and padded to four bytes; length -1 is null.
type parcel struct {
	mu  sync.Mutex
	buf []byte
	pos int
}

func pad4(n int) int { return (n + 3) &^ 3 }

func (p *parcel) writeInt32(v int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(v))
}

func (p *parcel) readInt32() (int32, binder.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readInt32Locked()
}

func (p *parcel) readInt32Locked() (int32, binder.Status) {
	if p.pos+4 > len(p.buf) {
		return 0, binder.StatusNotEnoughData
	}
	v := int32(binary.LittleEndian.Uint32(p.buf[p.pos:]))
	p.pos += 4
	return v, binder.StatusOK
}

func (p *parcel) writeBlob(b []byte, null bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if null {
		p.buf = binary.LittleEndian.AppendUint32(p.buf, ^uint32(0))
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(len(b)))
	p.buf = append(p.buf, b...)
	for i := len(b); i < pad4(len(b)); i++ {
		p.buf = append(p.buf, 0)
	}
}

// readBlob returns (nil, true, OK) for a null entry.
func (p *parcel) readBlob() ([]byte, bool, binder.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	start := p.pos
	n, st := p.readInt32Locked()
	if st != binder.StatusOK {
		return nil, false, st
	}
	if n < 0 {
		return nil, true, binder.StatusOK
	}
	if p.pos+pad4(int(n)) > len(p.buf) {
		p.pos = start
		return nil, false, binder.StatusNotEnoughData
	}
	out := make([]byte, n)
	copy(out, p.buf[p.pos:p.pos+int(n)])
	p.pos += pad4(int(n))
	return out, false, binder.StatusOK
}

func (p *parcel) rewind() {
	p.mu.Lock()
	p.pos = 0
	p.mu.Unlock()
}

func (r *Runtime) parcel(p binder.ParcelPtr) *parcel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.parcels[p]
}

func (r *Runtime) newParcel() (binder.ParcelPtr, *parcel) {
	ptr := binder.ParcelPtr(nextAddr())
	p := &parcel{}
	r.mu.Lock()
	r.parcels[ptr] = p
	r.mu.Unlock()
	return ptr, p
}

func (r *Runtime) ParcelDelete(p binder.ParcelPtr) {
	r.mu.Lock()
	delete(r.parcels, p)
	r.mu.Unlock()
}

func (r *Runtime) ParcelWriteInt32(p binder.ParcelPtr, v int32) binder.Status {
	pc := r.parcel(p)
	if pc == nil {
		return binder.StatusUnexpectedNull
	}
	pc.writeInt32(v)
	return binder.StatusOK
}

func (r *Runtime) ParcelReadInt32(p binder.ParcelPtr) (int32, binder.Status) {
	pc := r.parcel(p)
	if pc == nil {
		return 0, binder.StatusUnexpectedNull
	}
	return pc.readInt32()
}

func (r *Runtime) ParcelWriteString(p binder.ParcelPtr, s string) binder.Status {
	pc := r.parcel(p)
	if pc == nil {
		return binder.StatusUnexpectedNull
	}
	pc.writeBlob([]byte(s), false)
	return binder.StatusOK
}

func (r *Runtime) ParcelReadString(p binder.ParcelPtr) (string, binder.Status) {
	pc := r.parcel(p)
	if pc == nil {
		return "", binder.StatusUnexpectedNull
	}
	b, null, st := pc.readBlob()
	if st != binder.StatusOK {
		return "", st
	}
	if null {
		return "", binder.StatusUnexpectedNull
	}
	return string(b), binder.StatusOK
}

func (r *Runtime) ParcelWriteBytes(p binder.ParcelPtr, b []byte) binder.Status {
	pc := r.parcel(p)
	if pc == nil {
		return binder.StatusUnexpectedNull
	}
	pc.writeBlob(b, b == nil)
	return binder.StatusOK
}

func (r *Runtime) ParcelReadBytes(p binder.ParcelPtr) ([]byte, binder.Status) {
	pc := r.parcel(p)
	if pc == nil {
		return nil, binder.StatusUnexpectedNull
	}
	b, _, st := pc.readBlob()
	return b, st
}
