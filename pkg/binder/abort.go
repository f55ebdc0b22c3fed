package binder

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// abort ends the process after a panic reached a native callback boundary.
// The calling frames belong to the native layer and cannot be unwound, so
// there is no recovery path.
func abort(callback string, cause any, stack []byte) {
	log().Error("panic in native callback, aborting",
		zap.String("callback", callback),
		zap.Any("panic", cause),
		zap.ByteString("stack", stack))
	_ = log().Sync()
	fmt.Fprintf(os.Stderr, "binder: panic in %s: %v\n%s\n", callback, cause, stack)

	if err := unix.Kill(unix.Getpid(), unix.SIGABRT); err == nil {
		// Delivery is asynchronous; give the runtime a moment to act on it.
		time.Sleep(time.Second)
	}
	os.Exit(134)
}
