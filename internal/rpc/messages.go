// Package rpc is the wire contract between the confessions server and its
// clients: message types with their protobuf wire encoding, the gRPC
// codec and the service descriptor with client and server bindings.
package rpc

import "time"

type IdentifyRequest struct {
	// DeviceSecret is a digest of the installation secret, never the
	// secret itself.
	DeviceSecret []byte `json:"device_secret"`
}

type IdentifyResponse struct {
	IdentityToken string    `json:"identity_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type SubmitRequest struct {
	Content         string  `json:"content"`
	IncludeLocation bool    `json:"include_location"`
	Latitude        float64 `json:"latitude,omitempty"`
	Longitude       float64 `json:"longitude,omitempty"`
	RequestID       string  `json:"request_id,omitempty"`
}

// SubmitResponse carries the new confession id. A repeated request id
// yields Duplicate=true and no id.
type SubmitResponse struct {
	ConfessionID string `json:"confession_id,omitempty"`
	Duplicate    bool   `json:"duplicate,omitempty"`
}

type FeedRequest struct {
	Order  string `json:"order,omitempty"`
	Cursor string `json:"cursor,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
}

type Confession struct {
	ID              string    `json:"id"`
	Content         string    `json:"content"`
	GeneralLocation string    `json:"general_location,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ViewCount       int64     `json:"view_count"`
	Trending        bool      `json:"trending"`
}

type FeedResponse struct {
	Items      []Confession `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type ViewRequest struct {
	ConfessionID string `json:"confession_id"`
}

type ViewResponse struct {
	ViewCount int64 `json:"view_count"`
}

type StatusRequest struct{}

type StatusResponse struct {
	CanSubmit         bool      `json:"can_submit"`
	RetryAfterSeconds int64     `json:"retry_after_seconds"`
	NextEligibleAt    time.Time `json:"next_eligible_at"`
	TotalPosts        int64     `json:"total_posts"`
}
