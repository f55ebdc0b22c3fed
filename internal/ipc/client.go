package ipc

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mithrel/ndkbinder/internal/ipc/transport"
)

// Request sends a Message to the daemon and waits for a Response.
func Request(ctx context.Context, path string, m Message) (Response, error) {
	req, err := toStruct(m)
	if err != nil {
		return Response{}, fmt.Errorf("encode %s: %w", m.Name, err)
	}
	var resp structpb.Struct
	if err := transport.NewUnixClient(path).Do(ctx, req, &resp); err != nil {
		return Response{}, err
	}
	return responseFromStruct(&resp)
}
