package binder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mithrel/ndkbinder/internal/loopback"
	"github.com/mithrel/ndkbinder/pkg/binder"
)

func newRuntime(t *testing.T) *loopback.Runtime {
	t.Helper()
	return loopback.New(zaptest.NewLogger(t))
}

func echoCallbacks() binder.Callbacks {
	return binder.Callbacks{
		OnCreate:  func(args any) any { return args },
		OnDestroy: func(any) {},
		OnTransact: func(tx *binder.Transaction) binder.Status {
			b, err := tx.In.ReadBytes()
			if err != nil {
				return binder.StatusBadValue
			}
			if err := tx.Out.WriteBytes(b); err != nil {
				return binder.StatusNoMemory
			}
			return binder.StatusOK
		},
	}
}

// proxyOf returns an owned remote handle to obj.
func proxyOf(t *testing.T, rt *loopback.Runtime, obj *binder.Object) *binder.Object {
	t.Helper()
	p := rt.Proxy(obj.Ptr())
	require.NotZero(t, p)
	h, err := binder.FromPtr(rt, p)
	require.NoError(t, err)
	rt.DecStrong(p)
	return h
}

// within fails the test if fn does not return before d.
func within(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("did not finish within %v", d)
	}
}
