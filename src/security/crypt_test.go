package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sealed, err := EncryptString("binance-api-key-123")
	require.NoError(t, err)
	assert.NotEqual(t, "binance-api-key-123", sealed)

	plain, err := DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "binance-api-key-123", plain)
}

func TestEncryptUsesFreshNonces(t *testing.T) {
	a, err := EncryptString("same-secret")
	require.NoError(t, err)
	b, err := EncryptString("same-secret")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsTamperedBlob(t *testing.T) {
	sealed, err := EncryptString("secret")
	require.NoError(t, err)

	_, err = DecryptString("not base64!!")
	assert.Error(t, err)

	_, err = DecryptString("c2hvcnQ=") // valid base64, shorter than a nonce
	assert.Error(t, err)

	// Flip a character inside the sealed blob.
	tampered := []byte(sealed)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}
	_, err = DecryptString(string(tampered))
	assert.Error(t, err)
}
