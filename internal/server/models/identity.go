// Package models defines server-side data models persisted in the database.
package models

import (
	"encoding/hex"
	"fmt"
	"time"
)

// IdentityIDSize is the length in bytes of a pseudonymous identity.
const IdentityIDSize = 32

// IdentityID is an opaque pseudonymous identity derived one-way from a
// device secret. It is hex encoded in tokens and storage.
type IdentityID [IdentityIDSize]byte

func (id IdentityID) String() string {
	return hex.EncodeToString(id[:])
}

func (id IdentityID) IsZero() bool {
	return id == IdentityID{}
}

// ParseIdentityID decodes the hex form produced by IdentityID.String.
func ParseIdentityID(s string) (IdentityID, error) {
	var id IdentityID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("decode identity: %w", err)
	}
	if len(b) != IdentityIDSize {
		return id, fmt.Errorf("identity must be %d bytes, got %d", IdentityIDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// PseudonymousIdentity is what the identity service hands back to a device.
type PseudonymousIdentity struct {
	ID        IdentityID
	CreatedAt time.Time
}
