package binder

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusErr(t *testing.T) {
	assert.NoError(t, StatusOK.Err())
	err := StatusDeadObject.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, StatusDeadObject))
	assert.Equal(t, "binder: STATUS_DEAD_OBJECT", err.Error())

	wrapped := fmt.Errorf("call: %w", StatusBadType)
	var st Status
	require.True(t, errors.As(wrapped, &st))
	assert.Equal(t, StatusBadType, st)
}

func TestStatusValuesMatchNDK(t *testing.T) {
	assert.Equal(t, int32(-2147483648), int32(StatusUnknownError))
	assert.Equal(t, int32(-2147483647), int32(StatusBadType))
	assert.Equal(t, int32(-2147483646), int32(StatusFailedTransaction))
	assert.Equal(t, int32(-32), int32(StatusDeadObject))
	assert.Equal(t, int32(-38), int32(StatusInvalidOperation))
	assert.Equal(t, int32(-74), int32(StatusUnknownTransaction))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "STATUS_OK", StatusOK.String())
	assert.Equal(t, "STATUS(-999)", Status(-999).String())
	assert.False(t, Status(-999).Known())
}

func TestStatusFromErrno(t *testing.T) {
	assert.Equal(t, StatusOK, StatusFromErrno(0))
	assert.Equal(t, StatusDeadObject, StatusFromErrno(syscall.Errno(32)))
	assert.Equal(t, StatusNoMemory, StatusFromErrno(syscall.Errno(12)))
	// errnos outside the set never produce new status values
	assert.Equal(t, StatusUnknownError, StatusFromErrno(syscall.Errno(9)))
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, StatusBadValue, statusFromError(fmt.Errorf("x: %w", StatusBadValue)))
	assert.Equal(t, StatusDeadObject, statusFromError(fmt.Errorf("write: %w", syscall.Errno(32))))
	assert.Equal(t, StatusUnknownError, statusFromError(errors.New("other")))
}

func TestTransactionCodeRange(t *testing.T) {
	assert.False(t, TransactionCode(0).UserCode())
	assert.True(t, FirstCallTransaction.UserCode())
	assert.True(t, LastCallTransaction.UserCode())
	assert.False(t, (LastCallTransaction + 1).UserCode())
}
