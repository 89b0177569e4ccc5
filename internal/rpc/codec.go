package rpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the content subtype served by the codec. It replaces the
// default "proto" codec so confessions messages use their own wire
// encoding while generated messages, such as the health service's, go
// through proto.Marshal as before.
const CodecName = "proto"

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case message:
		return marshalWire(m)
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("rpc: cannot marshal %T", v)
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case message:
		return unmarshalWire(data, m)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("rpc: cannot unmarshal into %T", v)
}

func (codec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(codec{})
}
