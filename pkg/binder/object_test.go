package binder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/ndkbinder/pkg/binder"
)

// noCalls panics on any method, proving nothing reached the native layer.
type noCalls struct{ binder.Native }

func TestFromNullPointerRejected(t *testing.T) {
	obj, err := binder.FromPtr(noCalls{}, 0)
	require.ErrorIs(t, err, binder.ErrNullObject)
	assert.Nil(t, obj)
}

func TestAliveUntilLastReference(t *testing.T) {
	rt := newRuntime(t)
	destroyed := 0
	cb := echoCallbacks()
	cb.OnDestroy = func(any) { destroyed++ }
	c, err := binder.Define(rt, "com.example.ILifetime", cb)
	require.NoError(t, err)

	first, err := c.New(nil)
	require.NoError(t, err)
	ptr := first.Ptr()
	assert.Equal(t, int32(1), rt.StrongCount(ptr))

	second, err := first.Clone()
	require.NoError(t, err)
	third, err := binder.FromPtr(rt, ptr)
	require.NoError(t, err)
	assert.Equal(t, int32(3), rt.StrongCount(ptr))

	// a native-side owner outlives every Go handle
	rt.IncStrong(ptr)

	first.Release()
	first.Release()
	assert.False(t, first.IsAlive())
	assert.True(t, second.IsAlive())
	assert.Equal(t, int32(3), rt.StrongCount(ptr))

	second.Release()
	third.Release()
	assert.True(t, rt.IsAlive(ptr))
	assert.Zero(t, destroyed)

	rt.DecStrong(ptr)
	assert.False(t, rt.IsAlive(ptr))
	assert.Equal(t, 1, destroyed)
}

func TestReleasedHandle(t *testing.T) {
	rt := newRuntime(t)
	c, err := binder.Define(rt, "com.example.IReleased", echoCallbacks())
	require.NoError(t, err)
	obj, err := c.New(nil)
	require.NoError(t, err)
	obj.Release()

	_, err = obj.Clone()
	assert.ErrorIs(t, err, binder.ErrReleased)
	assert.ErrorIs(t, obj.Transact(1, binder.FlagNone, nil, nil), binder.ErrReleased)
	_, err = obj.DumpString()
	assert.ErrorIs(t, err, binder.ErrReleased)
	assert.Nil(t, obj.Class())
	assert.False(t, obj.IsRemote())
}

func TestBorrowedHandleInCallback(t *testing.T) {
	rt := newRuntime(t)
	var kept *binder.Object
	cb := echoCallbacks()
	cb.OnTransact = func(tx *binder.Transaction) binder.Status {
		if !tx.Target.Borrowed() {
			return binder.StatusBadValue
		}
		// releasing a borrowed view gives back nothing
		tx.Target.Release()
		k, err := tx.Target.Clone()
		if err != nil {
			return binder.StatusUnknownError
		}
		kept = k
		return binder.StatusOK
	}
	c, err := binder.Define(rt, "com.example.IBorrowed", cb)
	require.NoError(t, err)
	obj, err := c.New(nil)
	require.NoError(t, err)
	ptr := obj.Ptr()

	require.NoError(t, obj.Transact(1, binder.FlagNone, nil, nil))
	require.NotNil(t, kept)
	assert.False(t, kept.Borrowed())

	obj.Release()
	assert.True(t, rt.IsAlive(ptr), "clone taken in the callback keeps the object")
	kept.Release()
	assert.False(t, rt.IsAlive(ptr))
}

func TestRemoteHandle(t *testing.T) {
	rt := newRuntime(t)
	c, err := binder.Define(rt, "com.example.IRemote", echoCallbacks())
	require.NoError(t, err)
	obj, err := c.New("local-state")
	require.NoError(t, err)
	defer obj.Release()

	remote := proxyOf(t, rt, obj)
	defer remote.Release()
	assert.True(t, remote.IsRemote())
	assert.False(t, obj.IsRemote())
	assert.True(t, remote.IsAlive())
	assert.Same(t, c, remote.Class())
	_, ok := remote.UserData()
	assert.False(t, ok)

	rt.Kill(remote.Ptr())
	assert.False(t, remote.IsAlive())
	assert.True(t, obj.IsAlive())
	err = remote.Transact(1, binder.FlagNone, nil, nil)
	assert.ErrorIs(t, err, binder.StatusDeadObject)
	_, err = remote.DumpString()
	assert.ErrorIs(t, err, binder.StatusDeadObject)
}

func TestProxyKeepsTargetAlive(t *testing.T) {
	rt := newRuntime(t)
	destroyed := false
	cb := echoCallbacks()
	cb.OnDestroy = func(any) { destroyed = true }
	c, err := binder.Define(rt, "com.example.IKeep", cb)
	require.NoError(t, err)
	obj, err := c.New(nil)
	require.NoError(t, err)
	ptr := obj.Ptr()

	remote := proxyOf(t, rt, obj)
	obj.Release()
	assert.True(t, rt.IsAlive(ptr))
	assert.False(t, destroyed)

	remote.Release()
	assert.False(t, rt.IsAlive(ptr))
	assert.True(t, destroyed)
}
