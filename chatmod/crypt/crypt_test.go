package crypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncryptRoundTrip(t *testing.T) {
	assert := assert.New(t)

	box, err := NewBox("shared-secret")
	assert.NoError(err)

	blob, err := box.Encrypt("1735689600")
	assert.NoError(err)
	assert.NotEqual("1735689600", blob)

	plain, err := box.Decrypt(blob)
	assert.NoError(err)
	assert.Equal("1735689600", plain)
}

func TestDecryptWrongKey(t *testing.T) {
	assert := assert.New(t)

	box1, err := NewBox("secret-one")
	assert.NoError(err)
	box2, err := NewBox("secret-two")
	assert.NoError(err)

	blob, err := box1.Encrypt("hello")
	assert.NoError(err)

	_, err = box2.Decrypt(blob)
	assert.Error(err)

	_, err = box2.Decrypt("not base64 at all!")
	assert.Error(err)
}
