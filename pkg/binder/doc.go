// Package binder is a Go facade over the NDK binder layer.
//
// A process defines a Class (an interface descriptor plus create, destroy,
// transact and optional dump callbacks), creates objects of it, and works
// with Object handles to local or remote binder objects.
//
// The native layer calls back through a fixed set of trampolines with no
// captured state. Each trampoline resolves the opaque args or user-data
// pointer through a handle table back to the Go closures of the owning
// class, and runs them behind a barrier that aborts the process if they
// panic: the frames above a trampoline belong to the native layer and
// cannot be unwound.
//
// The package talks to the native layer only through the Native interface.
// On Android, internal/ndk binds it to libbinder_ndk; internal/loopback
// provides an in-process implementation for tests and host tooling.
package binder
