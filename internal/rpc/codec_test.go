package rpc

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestCodec_ReplacesDefault(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	assert.IsType(t, codec{}, c)
}

func TestCodec_RoundTrip(t *testing.T) {
	created := time.Date(2026, 6, 1, 12, 0, 0, 123456000, time.UTC)
	tests := []struct {
		name string
		in   message
		out  message
	}{
		{"identify request", &IdentifyRequest{DeviceSecret: []byte{1, 2, 3}}, &IdentifyRequest{}},
		{"identify response", &IdentifyResponse{IdentityToken: "tok", ExpiresAt: created}, &IdentifyResponse{}},
		{"submit request", &SubmitRequest{Content: "hi", IncludeLocation: true, Latitude: -33.87, Longitude: 151.2, RequestID: "r1"}, &SubmitRequest{}},
		{"duplicate", &SubmitResponse{Duplicate: true}, &SubmitResponse{}},
		{"feed request", &FeedRequest{Order: "trending", Cursor: "abc", Limit: 20}, &FeedRequest{}},
		{"feed response", &FeedResponse{
			Items: []Confession{
				{ID: "a", Content: "one", GeneralLocation: "Harbor", CreatedAt: created, ViewCount: 5000, Trending: true},
				{ID: "b", Content: "two", CreatedAt: created.Add(-time.Hour)},
			},
			NextCursor: "next",
		}, &FeedResponse{}},
		{"view", &ViewResponse{ViewCount: 7}, &ViewResponse{}},
		{"status", &StatusResponse{RetryAfterSeconds: 5400, NextEligibleAt: created, TotalPosts: 3}, &StatusResponse{}},
		{"empty status", &StatusResponse{}, &StatusResponse{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := codec{}.Marshal(tt.in)
			require.NoError(t, err)
			require.NoError(t, codec{}.Unmarshal(b, tt.out))
			if diff := cmp.Diff(tt.in, tt.out); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCodec_MatchesProtoLayout(t *testing.T) {
	b, err := codec{}.Marshal(&ViewRequest{ConfessionID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 3, 'a', 'b', 'c'}, b)

	// A zero request has no fields on the wire.
	b, err = codec{}.Marshal(&FeedRequest{})
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestCodec_TimestampIsWellKnownType(t *testing.T) {
	at := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	b, err := codec{}.Marshal(&IdentifyResponse{ExpiresAt: at})
	require.NoError(t, err)

	num, typ, n := protowire.ConsumeTag(b)
	require.Positive(t, n)
	assert.Equal(t, protowire.Number(2), num)
	assert.Equal(t, protowire.BytesType, typ)
	v, m := protowire.ConsumeBytes(b[n:])
	require.Positive(t, m)

	var ts timestamppb.Timestamp
	require.NoError(t, proto.Unmarshal(v, &ts))
	assert.Equal(t, at.Unix(), ts.GetSeconds())
}

func TestCodec_SkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendString(b, "from a newer client")
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "id-1")
	// Wrong wire type for a known field is skipped too.
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)

	var req ViewRequest
	require.NoError(t, codec{}.Unmarshal(b, &req))
	assert.Equal(t, "id-1", req.ConfessionID)
}

func TestCodec_UnmarshalResetsTarget(t *testing.T) {
	req := SubmitRequest{Content: "stale", RequestID: "old"}
	b, err := codec{}.Marshal(&SubmitRequest{Content: "fresh"})
	require.NoError(t, err)
	require.NoError(t, codec{}.Unmarshal(b, &req))
	assert.Equal(t, SubmitRequest{Content: "fresh"}, req)
}

func TestCodec_Malformed(t *testing.T) {
	var req FeedRequest
	assert.Error(t, codec{}.Unmarshal([]byte{0x0a, 10, 'x'}, &req)) // truncated string
	assert.Error(t, codec{}.Unmarshal([]byte{0xff}, &req))           // truncated tag

	var b []byte
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte{0x08}) // truncated seconds
	var resp IdentifyResponse
	assert.Error(t, codec{}.Unmarshal(b, &resp))
}

func TestCodec_FallsBackToProtoMessages(t *testing.T) {
	in := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}
	b, err := codec{}.Marshal(in)
	require.NoError(t, err)

	var out healthpb.HealthCheckResponse
	require.NoError(t, codec{}.Unmarshal(b, &out))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, out.GetStatus())

	_, err = codec{}.Marshal(struct{}{})
	assert.Error(t, err)
}
