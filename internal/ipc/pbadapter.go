package ipc

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mithrel/ndkbinder/internal/ipc/transport"
)

// Messages travel as structpb.Struct. Byte payloads are base64 strings
// since Struct has no bytes kind.

func toStruct(m Message) (*structpb.Struct, error) {
	fields := map[string]any{"name": m.Name}
	if m.Object != "" {
		fields["object"] = m.Object
	}
	if len(m.Args) > 0 {
		args := make([]any, len(m.Args))
		for i, a := range m.Args {
			args[i] = a
		}
		fields["args"] = args
	}
	if m.Code != 0 {
		fields["code"] = m.Code
	}
	if m.Payload != nil {
		fields["payload"] = base64.StdEncoding.EncodeToString(m.Payload)
	}
	return structpb.NewStruct(fields)
}

func fromStruct(s *structpb.Struct) (Message, error) {
	f := s.GetFields()
	m := Message{
		Name:   f["name"].GetStringValue(),
		Object: f["object"].GetStringValue(),
		Code:   int32(f["code"].GetNumberValue()),
	}
	for _, v := range f["args"].GetListValue().GetValues() {
		m.Args = append(m.Args, v.GetStringValue())
	}
	if v, ok := f["payload"]; ok {
		b, err := base64.StdEncoding.DecodeString(v.GetStringValue())
		if err != nil {
			return m, fmt.Errorf("payload: %w", err)
		}
		m.Payload = b
	}
	return m, nil
}

func responseToStruct(r Response) (*structpb.Struct, error) {
	fields := map[string]any{"ok": r.OK}
	if r.Msg != "" {
		fields["msg"] = r.Msg
	}
	if r.Status != 0 {
		fields["status"] = r.Status
	}
	if r.Output != "" {
		fields["output"] = r.Output
	}
	if r.Payload != nil {
		fields["payload"] = base64.StdEncoding.EncodeToString(r.Payload)
	}
	if len(r.Objects) > 0 {
		objs := make([]any, 0, len(r.Objects))
		for _, o := range r.Objects {
			objs = append(objs, map[string]any{
				"name":       o.Name,
				"descriptor": o.Descriptor,
				"alive":      o.Alive,
				"remote":     o.Remote,
				"served":     o.Served,
			})
		}
		fields["objects"] = objs
	}
	return structpb.NewStruct(fields)
}

func responseFromStruct(s *structpb.Struct) (Response, error) {
	f := s.GetFields()
	r := Response{
		OK:     f["ok"].GetBoolValue(),
		Msg:    f["msg"].GetStringValue(),
		Status: int32(f["status"].GetNumberValue()),
		Output: f["output"].GetStringValue(),
	}
	if v, ok := f["payload"]; ok {
		b, err := base64.StdEncoding.DecodeString(v.GetStringValue())
		if err != nil {
			return r, fmt.Errorf("payload: %w", err)
		}
		r.Payload = b
	}
	for _, v := range f["objects"].GetListValue().GetValues() {
		of := v.GetStructValue().GetFields()
		r.Objects = append(r.Objects, ObjectInfo{
			Name:       of["name"].GetStringValue(),
			Descriptor: of["descriptor"].GetStringValue(),
			Alive:      of["alive"].GetBoolValue(),
			Remote:     of["remote"].GetBoolValue(),
			Served:     int32(of["served"].GetNumberValue()),
		})
	}
	return r, nil
}

// pbHandler adapts a Message handler to the protobuf transport.
type pbHandler struct {
	fn func(context.Context, Message) Response
}

func (h pbHandler) ProtoTypes() (proto.Message, proto.Message) {
	return &structpb.Struct{}, &structpb.Struct{}
}

func (h pbHandler) Handle(ctx context.Context, req proto.Message) (proto.Message, error) {
	s, ok := req.(*structpb.Struct)
	if !ok {
		return nil, fmt.Errorf("unexpected request type %T", req)
	}
	m, err := fromStruct(s)
	var r Response
	if err != nil {
		r = Response{OK: false, Msg: "bad request: " + err.Error()}
	} else {
		r = h.fn(ctx, m)
	}
	return responseToStruct(r)
}

// PBHandler builds a transport.Handler around a Message handler.
func PBHandler(fn func(context.Context, Message) Response) transport.Handler {
	return pbHandler{fn: fn}
}
