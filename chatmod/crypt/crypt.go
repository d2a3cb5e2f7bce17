// Obscures watch-state expiry timestamps before they are shared with
// cooperating bots over the exchange channel, so that a compromised peer feed
// cannot forge watch windows.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

type Box struct {
	aead cipher.AEAD
}

// NewBox derives a 256-bit key from the shared secret and returns a sealed
// AES-GCM box.
func NewBox(secret string) (*Box, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: aead}, nil
}

// Encrypt seals text and returns a base64 string carrying nonce + ciphertext.
func (b *Box) Encrypt(text string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(text), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (b *Box) Decrypt(blob string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", err
	}
	ns := b.aead.NonceSize()
	if len(sealed) < ns {
		return "", fmt.Errorf("ciphertext too short")
	}
	plain, err := b.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
