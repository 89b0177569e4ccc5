// Package client is the confessions client core: the local SQLite database,
// the gRPC transport with retries and the Service that ties them together
// for the CLI.
//
// The installation secret never leaves the device. The server only sees its
// SHA-256 digest, from which it derives the pseudonymous identity.
package client
