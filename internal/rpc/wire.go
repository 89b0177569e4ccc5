package rpc

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// message is implemented by every request and response type. Field
// numbers follow api/confessions/v1/confessions.proto.
type message interface {
	reset()
	appendWire(b []byte) ([]byte, error)
	// consumeField decodes the value of one field and returns its length,
	// or 0 when the field is not known to the message.
	consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error)
}

func marshalWire(m message) ([]byte, error) {
	return m.appendWire(nil)
}

func unmarshalWire(b []byte, m message) error {
	m.reset()
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := m.consumeField(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	bits := math.Float64bits(v)
	if bits == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, bits)
}

func appendTime(b []byte, num protowire.Number, t time.Time) ([]byte, error) {
	if t.IsZero() {
		return b, nil
	}
	ts, err := proto.Marshal(timestamppb.New(t))
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, ts), nil
}

func appendMessage(b []byte, num protowire.Number, m message) ([]byte, error) {
	sub, err := m.appendWire(nil)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub), nil
}

// The consume helpers return 0 on a wire type mismatch so the field is
// skipped as unknown.

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*dst = append([]byte(nil), v...)
	}
	return n
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int64(v)
	}
	return n
}

func consumeInt32(typ protowire.Type, b []byte, dst *int32) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int32(v)
	}
	return n
}

func consumeDouble(typ protowire.Type, b []byte, dst *float64) int {
	if typ != protowire.Fixed64Type {
		return 0
	}
	v, n := protowire.ConsumeFixed64(b)
	if n >= 0 {
		*dst = math.Float64frombits(v)
	}
	return n
}

func consumeTime(typ protowire.Type, b []byte, dst *time.Time) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	var ts timestamppb.Timestamp
	if err := proto.Unmarshal(v, &ts); err != nil {
		return 0, err
	}
	if err := ts.CheckValid(); err != nil {
		return 0, err
	}
	*dst = ts.AsTime()
	return n, nil
}

func consumeMessage(typ protowire.Type, b []byte, m message) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	return n, unmarshalWire(v, m)
}

func (m *IdentifyRequest) reset() { *m = IdentifyRequest{} }

func (m *IdentifyRequest) appendWire(b []byte) ([]byte, error) {
	return appendBytes(b, 1, m.DeviceSecret), nil
}

func (m *IdentifyRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	if num == 1 {
		return consumeBytes(typ, b, &m.DeviceSecret), nil
	}
	return 0, nil
}

func (m *IdentifyResponse) reset() { *m = IdentifyResponse{} }

func (m *IdentifyResponse) appendWire(b []byte) ([]byte, error) {
	b = appendString(b, 1, m.IdentityToken)
	return appendTime(b, 2, m.ExpiresAt)
}

func (m *IdentifyResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case 1:
		return consumeString(typ, b, &m.IdentityToken), nil
	case 2:
		return consumeTime(typ, b, &m.ExpiresAt)
	}
	return 0, nil
}

func (m *SubmitRequest) reset() { *m = SubmitRequest{} }

func (m *SubmitRequest) appendWire(b []byte) ([]byte, error) {
	b = appendString(b, 1, m.Content)
	b = appendBool(b, 2, m.IncludeLocation)
	b = appendDouble(b, 3, m.Latitude)
	b = appendDouble(b, 4, m.Longitude)
	return appendString(b, 5, m.RequestID), nil
}

func (m *SubmitRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case 1:
		return consumeString(typ, b, &m.Content), nil
	case 2:
		return consumeBool(typ, b, &m.IncludeLocation), nil
	case 3:
		return consumeDouble(typ, b, &m.Latitude), nil
	case 4:
		return consumeDouble(typ, b, &m.Longitude), nil
	case 5:
		return consumeString(typ, b, &m.RequestID), nil
	}
	return 0, nil
}

func (m *SubmitResponse) reset() { *m = SubmitResponse{} }

func (m *SubmitResponse) appendWire(b []byte) ([]byte, error) {
	b = appendString(b, 1, m.ConfessionID)
	return appendBool(b, 2, m.Duplicate), nil
}

func (m *SubmitResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case 1:
		return consumeString(typ, b, &m.ConfessionID), nil
	case 2:
		return consumeBool(typ, b, &m.Duplicate), nil
	}
	return 0, nil
}

func (m *FeedRequest) reset() { *m = FeedRequest{} }

func (m *FeedRequest) appendWire(b []byte) ([]byte, error) {
	b = appendString(b, 1, m.Order)
	b = appendString(b, 2, m.Cursor)
	return appendInt64(b, 3, int64(m.Limit)), nil
}

func (m *FeedRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case 1:
		return consumeString(typ, b, &m.Order), nil
	case 2:
		return consumeString(typ, b, &m.Cursor), nil
	case 3:
		return consumeInt32(typ, b, &m.Limit), nil
	}
	return 0, nil
}

func (m *Confession) reset() { *m = Confession{} }

func (m *Confession) appendWire(b []byte) ([]byte, error) {
	b = appendString(b, 1, m.ID)
	b = appendString(b, 2, m.Content)
	b = appendString(b, 3, m.GeneralLocation)
	b, err := appendTime(b, 4, m.CreatedAt)
	if err != nil {
		return nil, err
	}
	b = appendInt64(b, 5, m.ViewCount)
	return appendBool(b, 6, m.Trending), nil
}

func (m *Confession) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case 1:
		return consumeString(typ, b, &m.ID), nil
	case 2:
		return consumeString(typ, b, &m.Content), nil
	case 3:
		return consumeString(typ, b, &m.GeneralLocation), nil
	case 4:
		return consumeTime(typ, b, &m.CreatedAt)
	case 5:
		return consumeInt64(typ, b, &m.ViewCount), nil
	case 6:
		return consumeBool(typ, b, &m.Trending), nil
	}
	return 0, nil
}

func (m *FeedResponse) reset() { *m = FeedResponse{} }

func (m *FeedResponse) appendWire(b []byte) ([]byte, error) {
	for i := range m.Items {
		var err error
		if b, err = appendMessage(b, 1, &m.Items[i]); err != nil {
			return nil, err
		}
	}
	return appendString(b, 2, m.NextCursor), nil
}

func (m *FeedResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case 1:
		var c Confession
		n, err := consumeMessage(typ, b, &c)
		if n > 0 && err == nil {
			m.Items = append(m.Items, c)
		}
		return n, err
	case 2:
		return consumeString(typ, b, &m.NextCursor), nil
	}
	return 0, nil
}

func (m *ViewRequest) reset() { *m = ViewRequest{} }

func (m *ViewRequest) appendWire(b []byte) ([]byte, error) {
	return appendString(b, 1, m.ConfessionID), nil
}

func (m *ViewRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	if num == 1 {
		return consumeString(typ, b, &m.ConfessionID), nil
	}
	return 0, nil
}

func (m *ViewResponse) reset() { *m = ViewResponse{} }

func (m *ViewResponse) appendWire(b []byte) ([]byte, error) {
	return appendInt64(b, 1, m.ViewCount), nil
}

func (m *ViewResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	if num == 1 {
		return consumeInt64(typ, b, &m.ViewCount), nil
	}
	return 0, nil
}

func (m *StatusRequest) reset() { *m = StatusRequest{} }

func (m *StatusRequest) appendWire(b []byte) ([]byte, error) { return b, nil }

func (m *StatusRequest) consumeField(protowire.Number, protowire.Type, []byte) (int, error) {
	return 0, nil
}

func (m *StatusResponse) reset() { *m = StatusResponse{} }

func (m *StatusResponse) appendWire(b []byte) ([]byte, error) {
	b = appendBool(b, 1, m.CanSubmit)
	b = appendInt64(b, 2, m.RetryAfterSeconds)
	b, err := appendTime(b, 3, m.NextEligibleAt)
	if err != nil {
		return nil, err
	}
	return appendInt64(b, 4, m.TotalPosts), nil
}

func (m *StatusResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case 1:
		return consumeBool(typ, b, &m.CanSubmit), nil
	case 2:
		return consumeInt64(typ, b, &m.RetryAfterSeconds), nil
	case 3:
		return consumeTime(typ, b, &m.NextEligibleAt)
	case 4:
		return consumeInt64(typ, b, &m.TotalPosts), nil
	}
	return 0, nil
}
