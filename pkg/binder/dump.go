package binder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// CollectDump gives fn the write end of a pipe and returns everything
// written to it. A drain goroutine reads concurrently, so fn may write more
// than the pipe buffer holds. The write end is closed on every path once fn
// returns, which bounds the drain.
func CollectDump(fn func(w *os.File) error) (string, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return "", fmt.Errorf("dump pipe: %w", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&buf, r)
		return err
	})

	dumpErr := fn(w)
	closeErr := w.Close()
	drainErr := g.Wait()

	if dumpErr != nil {
		return buf.String(), dumpErr
	}
	if closeErr != nil {
		return buf.String(), fmt.Errorf("dump pipe close: %w", closeErr)
	}
	if drainErr != nil {
		return buf.String(), fmt.Errorf("dump drain: %w", drainErr)
	}
	return buf.String(), nil
}

// fdSink writes to a descriptor it does not own. It buffers, flushes on
// demand, and never closes the descriptor.
type fdSink struct {
	*bufio.Writer
}

func newFDSink(fd uintptr) *fdSink {
	return &fdSink{Writer: bufio.NewWriter(fdWriter(fd))}
}

type fdWriter uintptr

func (f fdWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.Write(int(f), p[written:])
		if n > 0 {
			written += n
		}
		switch {
		case err == nil:
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN):
			fds := []unix.PollFd{{Fd: int32(f), Events: unix.POLLOUT}}
			if _, perr := unix.Poll(fds, -1); perr != nil && !errors.Is(perr, unix.EINTR) {
				return written, perr
			}
		default:
			return written, err
		}
	}
	return written, nil
}

func statusFromError(err error) Status {
	var st Status
	if errors.As(err, &st) {
		return st
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return StatusFromErrno(errno)
	}
	return StatusUnknownError
}
