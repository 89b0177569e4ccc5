// Package identity derives stable pseudonymous identities from device
// secrets. The derivation is a keyed one-way hash: the same secret always
// maps to the same identity, and the identity reveals nothing about the
// secret without the server key. Rotating the key invalidates every
// identity previously handed out.
package identity

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

const (
	MinSecretSize = 16
	MaxSecretSize = 64
)

var hkdfInfo = []byte("confessions/identity/v1")

type Resolver struct {
	key []byte
}

// NewResolver expands serverKey with HKDF-SHA256 into the BLAKE2b MAC key,
// keeping the identity key separate from any other use of the same secret.
func NewResolver(serverKey []byte) (*Resolver, error) {
	if len(serverKey) == 0 {
		return nil, errors.New("identity key is empty")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, serverKey, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive identity key: %w", err)
	}
	return &Resolver{key: key}, nil
}

// Resolve maps a device secret to its identity. Secrets shorter than
// MinSecretSize or longer than MaxSecretSize yield common.ErrInvalidSecret.
func (r *Resolver) Resolve(deviceSecret []byte) (models.IdentityID, error) {
	var id models.IdentityID

	if len(deviceSecret) < MinSecretSize || len(deviceSecret) > MaxSecretSize {
		return id, common.ErrInvalidSecret
	}

	h, err := blake2b.New256(r.key)
	if err != nil {
		return id, fmt.Errorf("blake2b: %w", err)
	}
	h.Write(deviceSecret)
	copy(id[:], h.Sum(nil))

	return id, nil
}
