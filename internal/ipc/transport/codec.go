package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/proto"
)

// MaxMessageSize bounds a single frame. Dumps of large objects are the
// biggest messages in practice.
const MaxMessageSize = 16 << 20

// writeProto writes a varint length-prefixed protobuf message to w.
func writeProto(w io.Writer, m proto.Message) error {
	b, err := proto.Marshal(m)
	if err != nil {
		return err
	}
	if len(b) > MaxMessageSize {
		return fmt.Errorf("message too large: %d", len(b))
	}
	frame := binary.AppendUvarint(make([]byte, 0, len(b)+binary.MaxVarintLen64), uint64(len(b)))
	_, err = w.Write(append(frame, b...))
	return err
}

// readProto reads a single length-prefixed protobuf message into dst.
func readProto(r io.Reader, dst proto.Message) error {
	br := bufio.NewReader(r)
	ln, err := binary.ReadUvarint(br)
	if err != nil {
		return err
	}
	if ln > MaxMessageSize {
		return fmt.Errorf("message too large: %d", ln)
	}
	buf := make([]byte, ln)
	if _, err := io.ReadFull(br, buf); err != nil {
		return err
	}
	return proto.Unmarshal(buf, dst)
}
