package misc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptorRoundtrip(t *testing.T) {
	e, err := NewEncryptor("correct horse battery staple")
	require.NoError(t, err)

	plaintext := []byte("sensitive table dump")
	ciphertext, err := e.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := e.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncryptorFreshNonce(t *testing.T) {
	e, err := NewEncryptor("key")
	require.NoError(t, err)

	a, err := e.Encrypt([]byte("same payload"))
	require.NoError(t, err)
	b, err := e.Encrypt([]byte("same payload"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryptorRejectsTampering(t *testing.T) {
	e, err := NewEncryptor("key")
	require.NoError(t, err)

	ciphertext, err := e.Encrypt([]byte("payload"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xff
	_, err = e.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestEncryptorRejectsShortCiphertext(t *testing.T) {
	e, err := NewEncryptor("key")
	require.NoError(t, err)

	_, err = e.Decrypt([]byte("tiny"))
	assert.Error(t, err)
}

func TestNewEncryptorRequiresSecret(t *testing.T) {
	_, err := NewEncryptor("")
	assert.Error(t, err)
}
