// Package cryptox holds the client's installation secret helpers.
package cryptox

import (
	"crypto/sha256"

	"github.com/dmitrijs2005/confessions/internal/common"
)

// InstallationSecretSize is the length of a freshly generated secret.
const InstallationSecretSize = 32

func NewInstallationSecret() []byte {
	return common.GenerateRandByteArray(InstallationSecretSize)
}

// DeviceDigest is what leaves the device in place of the installation
// secret.
func DeviceDigest(secret []byte) []byte {
	hash := sha256.Sum256(secret)
	return hash[:]
}
