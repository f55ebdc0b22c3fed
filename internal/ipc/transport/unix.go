package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// UnixListener listens on a Unix domain socket path.
type UnixListener struct{ Path string }

func (u UnixListener) Listen(ctx context.Context) (net.Listener, error) {
	// Remove stale socket
	_ = os.Remove(u.Path)
	l, err := net.Listen("unix", u.Path)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(u.Path, 0o600)
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()
	return l, nil
}

// UnixServer implements Server for Unix sockets.
type UnixServer struct {
	L   Listener
	Log *zap.Logger
	// IOTimeout bounds reading the request and writing the response; zero
	// means 30 seconds.
	IOTimeout time.Duration
}

func NewUnixServer(l Listener, log *zap.Logger) *UnixServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &UnixServer{L: l, Log: log}
}

func (s *UnixServer) Serve(ctx context.Context, h Handler) error {
	pt, ok := h.(ProtoTypes)
	if !ok {
		return fmt.Errorf("transport: handler %T does not declare its message types", h)
	}
	l, err := s.L.Listen(ctx)
	if err != nil {
		return err
	}
	var conns sync.WaitGroup
	errc := make(chan error, 1)
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				errc <- err
				return
			}
			conns.Add(1)
			go func() {
				defer conns.Done()
				s.serveConn(ctx, c, h, pt)
			}()
		}
	}()

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errc:
	}
	_ = l.Close()
	if err == nil {
		err = <-errc
	}
	// In-flight requests finish before Serve returns.
	conns.Wait()
	// If context canceled shortly after, suppress spurious errors
	if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *UnixServer) serveConn(ctx context.Context, conn net.Conn, h Handler, pt ProtoTypes) {
	defer conn.Close()
	timeout := s.IOTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	req, _ := pt.ProtoTypes()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	if err := readProto(conn, req); err != nil {
		s.Log.Debug("ipc read failed", zap.Error(err))
		return
	}
	resp, err := h.Handle(ctx, req)
	if err != nil {
		s.Log.Warn("ipc handler failed", zap.Error(err))
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := writeProto(conn, resp); err != nil {
		s.Log.Debug("ipc write failed", zap.Error(err))
	}
}

// UnixClient implements Client for Unix sockets.
type UnixClient struct{ Path string }

func NewUnixClient(path string) *UnixClient { return &UnixClient{Path: path} }

// Do writes req and unmarshals the reply into resp. Without a ctx deadline
// the read gives up after 30 seconds.
func (c *UnixClient) Do(ctx context.Context, req, resp proto.Message) error {
	d := &net.Dialer{}
	conn, err := d.DialContext(ctx, "unix", c.Path)
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := writeProto(conn, req); err != nil {
		return err
	}
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	}
	if err := readProto(conn, resp); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
