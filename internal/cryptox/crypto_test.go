package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstallationSecret(t *testing.T) {
	a := NewInstallationSecret()
	b := NewInstallationSecret()
	require.Len(t, a, InstallationSecretSize)
	assert.NotEqual(t, a, b)
}

func TestDeviceDigest_Deterministic(t *testing.T) {
	secret := []byte("abc")

	d1 := DeviceDigest(secret)
	d2 := DeviceDigest(secret)
	require.Len(t, d1, 32)
	assert.Equal(t, d1, d2)

	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		hex.EncodeToString(d1))
}

func TestDeviceDigest_DiffersFromSecret(t *testing.T) {
	secret := NewInstallationSecret()
	assert.NotEqual(t, secret, DeviceDigest(secret))
}
