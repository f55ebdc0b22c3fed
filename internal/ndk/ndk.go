// Package ndk binds binder.Native to libbinder_ndk. The real backend only
// builds for Android with cgo enabled (API level 33 or newer, for
// AIBinder_Class_disableInterfaceTokenHeader); everywhere else Open reports
// ErrUnavailable.
package ndk

import "errors"

var ErrUnavailable = errors.New("ndk: libbinder_ndk backend not available in this build")

// Options controls process-wide binder setup performed by Open.
type Options struct {
	// ThreadPoolSize is the maximum number of binder threads serving
	// incoming calls. Zero leaves the libbinder default.
	ThreadPoolSize uint32
	// StartThreadPool starts the binder thread pool so local objects can
	// receive calls from other processes.
	StartThreadPool bool
}
