// Package transport moves length-prefixed protobuf messages over stream
// sockets, one request and one response per connection.
package transport

import (
	"context"
	"net"

	"google.golang.org/protobuf/proto"
)

// Handler processes a single protobuf request and returns a response.
type Handler interface {
	Handle(ctx context.Context, req proto.Message) (proto.Message, error)
}

// ProtoTypes lets a Handler tell the server which message types to decode
// requests into.
type ProtoTypes interface {
	ProtoTypes() (req proto.Message, resp proto.Message)
}

// Server accepts connections and dispatches requests to a Handler.
type Server interface {
	// Serve blocks, handling requests until ctx is done or an error occurs.
	Serve(ctx context.Context, h Handler) error
}

// Client sends one request and waits for its response.
type Client interface {
	Do(ctx context.Context, req, resp proto.Message) error
}

// Listener abstracts how a server obtains a net.Listener.
type Listener interface {
	Listen(ctx context.Context) (net.Listener, error)
}
