//go:build !android || !cgo

package ndk

import "github.com/mithrel/ndkbinder/pkg/binder"

// Open always fails outside Android cgo builds.
func Open(Options) (binder.Native, error) {
	return nil, ErrUnavailable
}
