package binder

import (
	"errors"
	"sync/atomic"
)

var ErrParcelClosed = errors.New("binder: parcel used outside its transaction")

type parcelMode uint8

const (
	parcelRead parcelMode = iota + 1
	parcelWrite
)

// Parcel is a borrowed view of a native parcel. Views handed to callbacks
// are either read-only (the request) or write-only (the reply) and stop
// working once the callback returns.
type Parcel struct {
	native Native
	ptr    ParcelPtr
	mode   parcelMode
	closed atomic.Bool
}

func newParcel(n Native, p ParcelPtr, mode parcelMode) *Parcel {
	return &Parcel{native: n, ptr: p, mode: mode}
}

func (p *Parcel) close() { p.closed.Store(true) }

func (p *Parcel) Ptr() ParcelPtr { return p.ptr }

func (p *Parcel) readable() error {
	if p.closed.Load() {
		return ErrParcelClosed
	}
	if p.mode != parcelRead {
		return StatusInvalidOperation
	}
	return nil
}

func (p *Parcel) writable() error {
	if p.closed.Load() {
		return ErrParcelClosed
	}
	if p.mode != parcelWrite {
		return StatusInvalidOperation
	}
	return nil
}

func (p *Parcel) ReadInt32() (int32, error) {
	if err := p.readable(); err != nil {
		return 0, err
	}
	v, st := p.native.ParcelReadInt32(p.ptr)
	return v, st.Err()
}

func (p *Parcel) WriteInt32(v int32) error {
	if err := p.writable(); err != nil {
		return err
	}
	return p.native.ParcelWriteInt32(p.ptr, v).Err()
}

func (p *Parcel) ReadString() (string, error) {
	if err := p.readable(); err != nil {
		return "", err
	}
	s, st := p.native.ParcelReadString(p.ptr)
	return s, st.Err()
}

func (p *Parcel) WriteString(s string) error {
	if err := p.writable(); err != nil {
		return err
	}
	return p.native.ParcelWriteString(p.ptr, s).Err()
}

func (p *Parcel) ReadBytes() ([]byte, error) {
	if err := p.readable(); err != nil {
		return nil, err
	}
	b, st := p.native.ParcelReadBytes(p.ptr)
	return b, st.Err()
}

func (p *Parcel) WriteBytes(b []byte) error {
	if err := p.writable(); err != nil {
		return err
	}
	return p.native.ParcelWriteBytes(p.ptr, b).Err()
}
