package misc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

// Encryptor seals and opens backup/archive payloads with AES-256-GCM.
// A fresh nonce is generated per Encrypt call and prepended to the
// ciphertext so it travels with the artifact.
type Encryptor interface {
	Encrypt(data []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}

type encryptor struct {
	key []byte
}

// NewEncryptor derives a 32 byte key from the configured secret. The secret
// may be a 64 char hex string (used as-is) or any passphrase (hashed).
func NewEncryptor(secret string) (Encryptor, error) {
	if secret == "" {
		return nil, errors.New("encryption key is not configured")
	}

	if key, err := hex.DecodeString(secret); err == nil && len(key) == 32 {
		return &encryptor{key: key}, nil
	}

	sum := sha256.Sum256([]byte(secret))
	return &encryptor{key: sum[:]}, nil
}

func (e *encryptor) Encrypt(data []byte) ([]byte, error) {
	aesGCM, err := e.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return aesGCM.Seal(nonce, nonce, data, nil), nil
}

func (e *encryptor) Decrypt(data []byte) ([]byte, error) {
	aesGCM, err := e.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return aesGCM.Open(nil, nonce, ciphertext, nil)
}

func (e *encryptor) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
