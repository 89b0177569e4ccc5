package common

// IdentityTokenHeaderName is the gRPC metadata key used to carry the
// identity token on outbound requests.
const IdentityTokenHeaderName = "identity_token"

// MaxContentLength is the upper bound, in characters, of a confession.
const MaxContentLength = 500
