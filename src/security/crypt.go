package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Exchange API credentials live inside the operator's bot_config document.
// They are sealed with XChaCha20-Poly1305 under the key from
// EXCHANGE_CREDENTIALS_KEY; the nonce is prepended to the ciphertext and the
// whole blob is base64-encoded.

func aead() (interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}, error) {
	config := GetConfig()

	key, err := base64.StdEncoding.DecodeString(config.CredentialsKey)
	if err != nil {
		return nil, fmt.Errorf("credentials key is not valid base64: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credentials key must be %d bytes, got %d",
			chacha20poly1305.KeySize, len(key))
	}

	return chacha20poly1305.NewX(key)
}

// EncryptString seals a credential for storage.
func EncryptString(plain string) (string, error) {
	cipher, err := aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, cipher.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := cipher.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a credential previously sealed with EncryptString.
func DecryptString(encoded string) (string, error) {
	cipher, err := aead()
	if err != nil {
		return "", err
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("sealed credential is not valid base64: %w", err)
	}
	if len(blob) < cipher.NonceSize() {
		return "", errors.New("sealed credential too short")
	}

	nonce, sealed := blob[:cipher.NonceSize()], blob[cipher.NonceSize():]
	plain, err := cipher.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open sealed credential: %w", err)
	}

	return string(plain), nil
}
